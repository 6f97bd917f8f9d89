package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/holdscan/cmd/holdscan/cmd"
	"github.com/MeKo-Tech/holdscan/internal/testutil"
	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

// commandTimeout bounds one in-process CLI run.
const commandTimeout = 30 * time.Second

// theTestPagesAreAvailable checks that the shared OCR fixtures exist.
func (testCtx *TestContext) theTestPagesAreAvailable() error {
	pagesDir := filepath.Join(testCtx.WorkingDir, "testdata", "pages")
	for _, name := range []string{"row_page.json", "pogo_page.json", "empty_page.json"} {
		if !testutil.FileExists(filepath.Join(pagesDir, name)) {
			return fmt.Errorf("test page not found: %s", filepath.Join(pagesDir, name))
		}
	}
	return nil
}

// iRunCommand executes a holdscan command line in-process.
func (testCtx *TestContext) iRunCommand(command string) error {
	return testCtx.run(command, nil)
}

// iRunCommandWithStdin executes a command with a file piped to stdin.
func (testCtx *TestContext) iRunCommandWithStdin(command, file string) error {
	data, err := os.ReadFile(testCtx.resolvePath(file))
	if err != nil {
		return fmt.Errorf("failed to read stdin file: %w", err)
	}
	return testCtx.run(command, bytes.NewReader(data))
}

func (testCtx *TestContext) run(command string, stdin io.Reader) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] != "holdscan" {
		return fmt.Errorf("unsupported command %q", parts[0])
	}

	root := cmd.NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	root.SetIn(stdin)
	root.SetArgs(parts[1:])

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	err := root.ExecuteContext(ctx)

	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastOutput = testCtx.LastStdout + testCtx.LastStderr
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastStdout, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastStdout)
	}
	return nil
}

func (testCtx *TestContext) stderrShouldContain(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("stderr does not contain '%s'\nActual stderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies stdout is a single JSON document.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := parseJSON(testCtx.LastStdout)
	return err
}

// theJSONFieldShouldBe compares a dotted path such as files.0.holdings.0.asset_id.
func (testCtx *TestContext) theJSONFieldShouldBe(path, expected string) error {
	data, err := parseJSON(testCtx.LastStdout)
	if err != nil {
		return err
	}
	return checkJSONField(data, path, expected)
}

// theJSONShouldContain verifies JSON contains a specific field.
func (testCtx *TestContext) theJSONShouldContain(path string) error {
	data, err := parseJSON(testCtx.LastStdout)
	if err != nil {
		return err
	}
	_, err = lookupJSON(data, path)
	return err
}

// theJSONArrayShouldHaveItems checks the length of the array at path.
func (testCtx *TestContext) theJSONArrayShouldHaveItems(path string, expected int) error {
	data, err := parseJSON(testCtx.LastStdout)
	if err != nil {
		return err
	}
	value, err := lookupJSON(data, path)
	if err != nil {
		return err
	}
	items, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("JSON field %s is not an array", path)
	}
	if len(items) != expected {
		return fmt.Errorf("JSON array %s has %d items, expected %d", path, len(items), expected)
	}
	return nil
}

// theErrorShouldMention verifies the error message contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastOutput
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}

	// Convert to lowercase for case-insensitive matching
	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// aPageWithRows writes a row-layout page built from a name/amount table.
// An optional catalog column attaches inline assets as "id:name".
func (testCtx *TestContext) aPageWithRows(name, user string, table *godog.Table) error {
	page := testutil.NewPage().User(user)
	header, rows, err := splitTable(table)
	if err != nil {
		return err
	}
	for _, row := range rows {
		page.Row(row[header["name"]], row[header["amount"]])
		if col, ok := header["catalog"]; ok && row[col] != "" {
			id, assetName, found := strings.Cut(row[col], ":")
			if !found {
				return fmt.Errorf("catalog cell %q must be id:name", row[col])
			}
			page.Asset(id, assetName)
		}
	}

	data, err := json.Marshal(page.Document())
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}
	return testCtx.writeArtifact(name, data)
}

type catalogFile struct {
	Assets []catalogEntry            `yaml:"assets"`
	Users  map[string][]catalogEntry `yaml:"users"`
}

type catalogEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// aCatalogFileForUser writes a file-driver catalog from an id/name table.
func (testCtx *TestContext) aCatalogFileForUser(name, user string, table *godog.Table) error {
	header, rows, err := splitTable(table)
	if err != nil {
		return err
	}
	entries := make([]catalogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, catalogEntry{ID: row[header["id"]], Name: row[header["name"]]})
	}

	data, err := yaml.Marshal(catalogFile{Assets: entries, Users: map[string][]catalogEntry{user: entries}})
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return testCtx.writeArtifact(name, data)
}

// aFileWithContent writes a doc string to the scenario temp directory after
// variable substitution.
func (testCtx *TestContext) aFileWithContent(name string, content *godog.DocString) error {
	return testCtx.writeArtifact(name, []byte(testCtx.substituteCommandVariables(content.Content)))
}

func (testCtx *TestContext) writeArtifact(name string, data []byte) error {
	path := testCtx.tempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// theFileShouldExist verifies a file was created.
func (testCtx *TestContext) theFileShouldExist(filename string) error {
	path := testCtx.resolvePath(filename)
	if !testutil.FileExists(path) {
		return fmt.Errorf("file %s does not exist", path)
	}
	testCtx.LastOutputFile = path
	return nil
}

// theFileShouldContain verifies file content.
func (testCtx *TestContext) theFileShouldContain(filename, expectedContent string) error {
	path := testCtx.resolvePath(filename)
	content, err := os.ReadFile(path) //nolint:gosec // G304: scenario-controlled path
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if !strings.Contains(string(content), expectedContent) {
		return fmt.Errorf("file %s does not contain '%s'\nActual content: %s", path, expectedContent, string(content))
	}
	return nil
}

// theFileShouldHaveCSVRows counts data rows below the header.
func (testCtx *TestContext) theFileShouldHaveCSVRows(filename string, expected int) error {
	path := testCtx.resolvePath(filename)
	f, err := os.Open(path) //nolint:gosec // G304: scenario-controlled path
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("file %s is not valid CSV: %w", path, err)
	}
	if len(records) == 0 || records[0][0] != "file" {
		return fmt.Errorf("file %s has no CSV header", path)
	}
	if got := len(records) - 1; got != expected {
		return fmt.Errorf("expected %d CSV rows, got %d", expected, got)
	}
	return nil
}

// theEnvironmentVariableIsSetTo sets an environment variable for the scenario.
func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	return testCtx.SetEnvVar(name, testCtx.substituteCommandVariables(value))
}

// substituteCommandVariables replaces variables in command strings.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	command = strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
	command = strings.ReplaceAll(command, "{pages}", filepath.Join(testCtx.WorkingDir, "testdata", "pages"))
	command = strings.ReplaceAll(command, "{testdata}", filepath.Join(testCtx.WorkingDir, "testdata"))
	return command
}

// splitTable returns a column index by header name plus the data rows.
func splitTable(table *godog.Table) (map[string]int, [][]string, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, nil, errors.New("table must have a header row")
	}
	header := make(map[string]int, len(table.Rows[0].Cells))
	for i, cell := range table.Rows[0].Cells {
		header[cell.Value] = i
	}
	rows := make([][]string, 0, len(table.Rows)-1)
	for _, r := range table.Rows[1:] {
		row := make([]string, len(r.Cells))
		for i, cell := range r.Cells {
			row[i] = cell.Value
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func parseJSON(s string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &data); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, s)
	}
	return data, nil
}

// lookupJSON follows a dotted path; numeric parts index into arrays.
func lookupJSON(data interface{}, path string) (interface{}, error) {
	current := data
	for i, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(strings.Split(path, ".")[:i+1], "."))
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("index '%s' out of range in '%s' (length %d)", part, path, len(v))
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot navigate into non-container at '%s'", part)
		}
	}
	return current, nil
}

func checkJSONField(data interface{}, path, expected string) error {
	value, err := lookupJSON(data, path)
	if err != nil {
		return err
	}
	var got string
	switch v := value.(type) {
	case string:
		got = v
	case nil:
		got = "null"
	default:
		raw, _ := json.Marshal(v)
		got = string(raw)
	}
	if got != expected {
		return fmt.Errorf("JSON field %s is %q, expected %q", path, got, expected)
	}
	return nil
}

// registerBackgroundSteps registers background setup steps.
func (testCtx *TestContext) registerBackgroundSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the test pages are available$`, testCtx.theTestPagesAreAvailable)
	sc.Step(`^a page "([^"]*)" for user "([^"]*)" with rows:$`, testCtx.aPageWithRows)
	sc.Step(`^a catalog file "([^"]*)" where user "([^"]*)" holds:$`, testCtx.aCatalogFileForUser)
	sc.Step(`^a file "([^"]*)" with content:$`, testCtx.aFileWithContent)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}

// registerCommandSteps registers command execution steps.
func (testCtx *TestContext) registerCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^I run "([^"]*)" with "([^"]*)" on stdin$`, testCtx.iRunCommandWithStdin)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
}

// registerOutputSteps registers output verification steps.
func (testCtx *TestContext) registerOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^stderr should contain "([^"]*)"$`, testCtx.stderrShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the JSON array "([^"]*)" should have (\d+) items?$`, testCtx.theJSONArrayShouldHaveItems)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
}

// registerFileSteps registers file verification steps.
func (testCtx *TestContext) registerFileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the file should contain "([^"]*)"$`, func(content string) error {
		return testCtx.theFileShouldContain(testCtx.LastOutputFile, content)
	})
	sc.Step(`^the file "([^"]*)" should have (\d+) CSV rows?$`, testCtx.theFileShouldHaveCSVRows)
}

// RegisterCommonSteps registers all common step definitions.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	testCtx.registerBackgroundSteps(sc)
	testCtx.registerCommandSteps(sc)
	testCtx.registerOutputSteps(sc)
	testCtx.registerFileSteps(sc)
}
