package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/testutil"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() Config {
	return Config{RedisURL: "redis://localhost:6379/0", QueueName: "holdscan", Concurrency: 2, MaxRetry: 3, Timeout: time.Minute}
}

func newHandler(t *testing.T, store catalog.Store) *Handler {
	t.Helper()
	h, err := NewHandler(recognizer.New(recognizer.WithLogger(discard)), store, discard)
	require.NoError(t, err)
	return h
}

type errStore struct{ err error }

func (s errStore) Snapshot(context.Context, string) ([]catalog.Asset, error) { return nil, s.err }
func (s errStore) Close(context.Context) error                               { return nil }

func TestNewRecognizeTask(t *testing.T) {
	doc := testutil.NewPage().Row("鑫尊利28天持盈", "12,345.67").JSON(t)
	confirm := 0.7

	task, err := NewRecognizeTask("job-1", doc, &matcher.Overrides{ConfirmThreshold: &confirm})
	require.NoError(t, err)
	assert.Equal(t, TypeRecognize, task.Type())

	var payload RecognizePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-1", payload.JobID)
	assert.JSONEq(t, string(doc), string(payload.Document))
	assert.InDelta(t, 0.7, *payload.Policy.ConfirmThreshold, 1e-9)

	task, err = NewRecognizeTask("", doc, nil)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Len(t, payload.JobID, 36)
}

func TestNewRecognizeTask_Invalid(t *testing.T) {
	_, err := NewRecognizeTask("j", []byte(`{"pages": []}`), nil)
	require.ErrorContains(t, err, "invalid document")

	high := 2.0
	_, err = NewRecognizeTask("j", []byte(`{"regions": []}`), &matcher.Overrides{ConfirmThreshold: &high})
	require.ErrorContains(t, err, "invalid policy")
}

func TestHandler_ProcessTask(t *testing.T) {
	doc := testutil.NewPage().Row("鑫尊利28天持盈", "12,345.67").Asset("7", "鑫尊利28天持盈1号").JSON(t)
	task, err := NewRecognizeTask("job-1", doc, nil)
	require.NoError(t, err)

	require.NoError(t, newHandler(t, nil).ProcessTask(context.Background(), task))
}

func TestHandler_Recognize_StoreCatalog(t *testing.T) {
	store := catalog.NewMemoryStore()
	store.Put("u1", []catalog.Asset{{ID: "7", Name: "鑫尊利28天持盈1号"}})
	doc := testutil.NewPage().User("u1").Row("鑫尊利28天持盈", "12,345.67").JSON(t)

	res, err := newHandler(t, store).Recognize(context.Background(), RecognizePayload{JobID: "j", Document: doc})
	require.NoError(t, err)
	assert.Equal(t, "j", res.JobID)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, "row", res.Processor)
	require.Len(t, res.Holdings, 1)
	assert.Equal(t, "12345.67", res.Holdings[0].Amount)
	assert.Equal(t, "7", res.Holdings[0].AssetID)
}

func TestHandler_Recognize_PolicyOverride(t *testing.T) {
	doc := testutil.NewPage().Row("鑫尊利28天持盈", "12,345.67").Asset("7", "鑫尊利28天持盈1号").JSON(t)
	one := 1.0

	res, err := newHandler(t, nil).Recognize(context.Background(),
		RecognizePayload{Document: doc, Policy: &matcher.Overrides{ConfirmThreshold: &one}})
	require.NoError(t, err)
	require.Len(t, res.Holdings, 1)
	assert.False(t, res.Holdings[0].Confirmed)
}

func TestHandler_SkipRetry(t *testing.T) {
	h := newHandler(t, errStore{catalog.ErrUserRequired})
	high := 2.0
	page := testutil.NewPage().Row("鑫尊利28天持盈", "12,345.67").JSON(t)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"malformed payload", []byte("{")},
		{"bad document", []byte(`{"job_id": "j", "document": {"pages": []}}`)},
		{"bad policy", mustJSON(t, RecognizePayload{Document: page, Policy: &matcher.Overrides{MinThreshold: &high}})},
		{"missing user", mustJSON(t, RecognizePayload{Document: page})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.ProcessTask(context.Background(), asynq.NewTask(TypeRecognize, tt.payload))
			require.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
}

func TestHandler_RetryableStoreError(t *testing.T) {
	h := newHandler(t, errStore{errors.New("connection refused")})
	doc := testutil.NewPage().User("u1").Row("鑫尊利28天持盈", "12,345.67").JSON(t)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeRecognize, mustJSON(t, RecognizePayload{Document: doc})))
	require.ErrorContains(t, err, "connection refused")
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestNewHandler_RequiresEngine(t *testing.T) {
	_, err := NewHandler(nil, nil, nil)
	require.Error(t, err)
}

func TestNewClientAndWorker_Config(t *testing.T) {
	h := newHandler(t, nil)

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	w, err := NewWorker(testConfig(), h, discard)
	require.NoError(t, err)
	assert.NotNil(t, w.mux)

	bad := testConfig()
	bad.RedisURL = "http://localhost"
	_, err = NewClient(bad)
	require.ErrorContains(t, err, "failed to parse Redis URL")
	_, err = NewWorker(bad, h, discard)
	require.Error(t, err)

	bad = testConfig()
	bad.QueueName = ""
	_, err = NewClient(bad)
	require.ErrorContains(t, err, "queue name")

	_, err = NewWorker(testConfig(), nil, discard)
	require.ErrorContains(t, err, "handler is required")
}

func TestClient_TaskOptions(t *testing.T) {
	c := &Client{config: testConfig()}
	assert.Len(t, c.taskOptions(), 3)

	c.config.Retention = time.Hour
	assert.Len(t, c.taskOptions(), 4)

	c.config.Timeout = 0
	assert.Len(t, c.taskOptions(), 3)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, retryDelay(0, nil, nil))
	assert.Equal(t, 10*time.Second, retryDelay(1, nil, nil))
	assert.Equal(t, 40*time.Second, retryDelay(3, nil, nil))
	assert.Equal(t, time.Minute, retryDelay(4, nil, nil))
	assert.Equal(t, time.Minute, retryDelay(30, nil, nil))
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	a := slogAdapter{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	a.Debug("dbg")
	a.Info("starting ", 3, " workers")
	a.Warn("careful")
	a.Error("broken")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=dbg")
	assert.Contains(t, out, `msg="starting 3 workers"`)
	assert.Contains(t, out, "level=WARN msg=careful")
	assert.Contains(t, out, "level=ERROR msg=broken")
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
