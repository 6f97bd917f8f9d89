package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

const httpTimeout = 10 * time.Second

func (testCtx *TestContext) theRecognitionAPIIsRunning() error {
	return testCtx.startTestHTTPServer(serverOptions{})
}

func (testCtx *TestContext) theRecognitionAPIIsRunningWithCatalog(file string) error {
	return testCtx.startTestHTTPServer(serverOptions{catalogFile: file})
}

func (testCtx *TestContext) theRecognitionAPIIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startTestHTTPServer(serverOptions{requestsPerMinute: perMinute})
}

func (testCtx *TestContext) theRecognitionAPIIsRunningWithCORSOrigin(origin string) error {
	return testCtx.startTestHTTPServer(serverOptions{corsOrigin: origin})
}

// doRequest sends a request to the test server and records the response.
func (testCtx *TestContext) doRequest(method, endpoint string, body []byte) error {
	base, err := testCtx.serverURL()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) iGET(endpoint string) error {
	return testCtx.doRequest(http.MethodGet, endpoint, nil)
}

func (testCtx *TestContext) iPOSTTheFileTo(file, endpoint string) error {
	data, err := os.ReadFile(testCtx.resolvePath(file))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	return testCtx.doRequest(http.MethodPost, endpoint, data)
}

func (testCtx *TestContext) iPOSTTheFileToTimes(file, endpoint string, times int) error {
	for range times {
		if err := testCtx.iPOSTTheFileTo(file, endpoint); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) iPOSTToWithBody(endpoint string, body *godog.DocString) error {
	return testCtx.doRequest(http.MethodPost, endpoint, []byte(testCtx.substituteCommandVariables(body.Content)))
}

// iPOSTTheFilesToTheBatchEndpoint wraps a comma-separated file list in a
// batch request.
func (testCtx *TestContext) iPOSTTheFilesToTheBatchEndpoint(files string) error {
	var docs []json.RawMessage
	for _, file := range strings.Split(files, ",") {
		data, err := os.ReadFile(testCtx.resolvePath(strings.TrimSpace(file)))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		docs = append(docs, data)
	}
	body, err := json.Marshal(map[string]interface{}{"documents": docs})
	if err != nil {
		return fmt.Errorf("failed to encode batch request: %w", err)
	}
	return testCtx.doRequest(http.MethodPost, "/v1/recognize/batch", body)
}

// iSendTheFileOverTheWebSocket sends one recognize message and collects the
// replies until the request completes or fails.
func (testCtx *TestContext) iSendTheFileOverTheWebSocket(file string) error {
	base, err := testCtx.serverURL()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.resolvePath(file))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	msg, err := json.Marshal(map[string]interface{}{
		"type":       "recognize",
		"request_id": "scenario",
		"document":   json.RawMessage(data),
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	testCtx.LastWSMessages = nil
	_ = conn.SetReadDeadline(time.Now().Add(httpTimeout))
	for {
		_, reply, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read reply: %w", err)
		}
		testCtx.LastWSMessages = append(testCtx.LastWSMessages, string(reply))

		var status struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(reply, &status); err != nil {
			return fmt.Errorf("reply is not JSON: %w", err)
		}
		if status.Status != "processing" {
			testCtx.LastHTTPResponse = string(reply)
			return nil
		}
	}
}

func (testCtx *TestContext) theWebSocketStatusesShouldBe(statuses string) error {
	got := make([]string, 0, len(testCtx.LastWSMessages))
	for _, m := range testCtx.LastWSMessages {
		var status struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal([]byte(m), &status)
		got = append(got, status.Status)
	}
	if strings.Join(got, ",") != statuses {
		return fmt.Errorf("expected statuses %s, got %s", statuses, strings.Join(got, ","))
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(expectedStatus int) error {
	if testCtx.LastHTTPStatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d\nResponse: %s",
			expectedStatus, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nResponse: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, expected string) error {
	data, err := parseJSON(testCtx.LastHTTPResponse)
	if err != nil {
		return err
	}
	return checkJSONField(data, path, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldHaveHeader(name string) error {
	if testCtx.LastHTTPHeaders.Get(name) == "" {
		return fmt.Errorf("response has no %s header", name)
	}
	return nil
}

// RegisterServerSteps registers HTTP and WebSocket API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the recognition API is running$`, testCtx.theRecognitionAPIIsRunning)
	sc.Step(`^the recognition API is running with the catalog "([^"]*)"$`, testCtx.theRecognitionAPIIsRunningWithCatalog)
	sc.Step(`^the recognition API is running with a limit of (\d+) requests per minute$`,
		testCtx.theRecognitionAPIIsRunningWithRateLimit)
	sc.Step(`^the recognition API is running with CORS origin "([^"]*)"$`, testCtx.theRecognitionAPIIsRunningWithCORSOrigin)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST the file "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheFileTo)
	sc.Step(`^I POST the file "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iPOSTTheFileToTimes)
	sc.Step(`^I POST to "([^"]*)" with body:$`, testCtx.iPOSTToWithBody)
	sc.Step(`^I POST the files "([^"]*)" to the batch endpoint$`, testCtx.iPOSTTheFilesToTheBatchEndpoint)
	sc.Step(`^I send the file "([^"]*)" over the WebSocket$`, testCtx.iSendTheFileOverTheWebSocket)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should have a "([^"]*)" header$`, testCtx.theResponseShouldHaveHeader)
	sc.Step(`^the WebSocket statuses should be "([^"]*)"$`, testCtx.theWebSocketStatusesShouldBe)
}
