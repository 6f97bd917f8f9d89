package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pagePath(t *testing.T, name string) string {
	t.Helper()
	return testutil.GetPagePath(t, name)
}

func testDataPath(t *testing.T, parts ...string) string {
	t.Helper()
	return filepath.Join(append([]string{testutil.GetTestDataDir(t)}, parts...)...)
}

type jsonOutput struct {
	Files []struct {
		File     string `json:"file"`
		UserID   string `json:"user_id"`
		Error    string `json:"error"`
		Holdings []struct {
			Name    string `json:"name"`
			Amount  string `json:"amount"`
			AssetID string `json:"asset_id"`
		} `json:"holdings"`
	} `json:"files"`
	Stats struct {
		TotalFiles int `json:"total_files"`
		Failed     int `json:"failed"`
	} `json:"stats"`
}

func decodeOutput(t *testing.T, out string) jsonOutput {
	t.Helper()
	var got jsonOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	return got
}

func TestRecognizeCommand_Text(t *testing.T) {
	out, _, err := execute(t, nil, "recognize", pagePath(t, "row_page.json"))
	require.NoError(t, err)

	assert.Contains(t, out, "12345.67")
	assert.Contains(t, out, "[7]")
	assert.Contains(t, out, "5000")
}

func TestRecognizeCommand_StdinJSON(t *testing.T) {
	data, err := os.ReadFile(pagePath(t, "row_page.json"))
	require.NoError(t, err)

	out, _, err := execute(t, strings.NewReader(string(data)), "recognize", "--format", "json")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "-", got.Files[0].File)
	assert.Equal(t, "demo", got.Files[0].UserID)
	require.NotEmpty(t, got.Files[0].Holdings)
	assert.Equal(t, "7", got.Files[0].Holdings[0].AssetID)
}

func TestRecognizeCommand_UserCatalogFromFile(t *testing.T) {
	out, _, err := execute(t, nil,
		"--catalog-driver", "file", "--catalog-file", testDataPath(t, "catalog.yaml"),
		"recognize", pagePath(t, "pogo_page.json"), "--user", "demo", "--format", "json")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	require.Len(t, got.Files, 1)
	require.NotEmpty(t, got.Files[0].Holdings)
	assert.Equal(t, "7", got.Files[0].Holdings[0].AssetID)
	assert.Equal(t, "12345.67", got.Files[0].Holdings[0].Amount)
}

func TestRecognizeCommand_Report(t *testing.T) {
	out, _, err := execute(t, nil, "recognize", pagePath(t, "row_page.json"), "--report")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, report, "processor")
	assert.Contains(t, report, "results")
}

func TestRecognizeCommand_OutputFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "holdings.csv")

	out, _, err := execute(t, nil, "recognize", pagePath(t, "row_page.json"), "--format", "csv", "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "12345.67")
}

func TestRecognizeCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"recognize", "does-not-exist.json"}, "does-not-exist.json"},
		{"parquet to stdout", []string{"recognize", "page.json", "--format", "parquet"}, "requires --output"},
		{"invalid policy", []string{"recognize", "ROW", "--confirm-threshold", "2"}, "invalid policy"},
		{"unknown format", []string{"recognize", "ROW", "--format", "xml"}, "unsupported"},
		{"too many args", []string{"recognize", "a.json", "b.json"}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := make([]string, len(tt.args))
			for i, a := range tt.args {
				if a == "ROW" {
					a = pagePath(t, "row_page.json")
				}
				args[i] = a
			}
			_, _, err := execute(t, nil, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRecognizeCommand_MaxResults(t *testing.T) {
	out, _, err := execute(t, nil, "recognize", pagePath(t, "row_page.json"), "--format", "json", "--max-results", "1")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	require.Len(t, got.Files, 1)
	assert.Len(t, got.Files[0].Holdings, 1)
}

func TestBatchCommand_JSON(t *testing.T) {
	out, _, err := execute(t, nil, "batch", testutil.GetPagesDir(t), "--format", "json", "--workers", "2")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	assert.Equal(t, 3, got.Stats.TotalFiles)
	assert.Equal(t, 0, got.Stats.Failed)
	require.Len(t, got.Files, 3)
	for i := 1; i < len(got.Files); i++ {
		assert.Less(t, got.Files[i-1].File, got.Files[i].File, "results follow input order")
	}
}

func TestBatchCommand_StatsAndExclude(t *testing.T) {
	out, stderr, err := execute(t, nil, "batch", testutil.GetPagesDir(t), "--exclude", "pogo_*", "--stats")
	require.NoError(t, err)

	assert.Contains(t, out, "row_page.json")
	assert.NotContains(t, out, "pogo_page.json")
	assert.Contains(t, stderr, "Processing Statistics:")
	assert.Contains(t, stderr, "Total files: 2")
}

func TestBatchCommand_Parquet(t *testing.T) {
	_, _, err := execute(t, nil, "batch", testutil.GetPagesDir(t), "--format", "parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parquet output requires an output file")

	output := filepath.Join(t.TempDir(), "holdings.parquet")
	_, _, err = execute(t, nil, "batch", testutil.GetPagesDir(t), "--format", "parquet", "--output", output, "--quiet")
	require.NoError(t, err)
	assert.True(t, testutil.FileExists(output))
}

func TestBatchCommand_NoFiles(t *testing.T) {
	_, _, err := execute(t, nil, "batch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no OCR documents found")
}

func TestBatchCommand_FailingPage(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.json", "{not json")
	testutil.NewPage().Row("鑫尊利28天持盈", "100.00").WriteFile(t, dir, "good.json")

	_, _, err := execute(t, nil, "batch", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")

	out, _, err := execute(t, nil, "batch", dir, "--continue-on-error", "--format", "json")
	require.NoError(t, err)
	got := decodeOutput(t, out)
	assert.Equal(t, 1, got.Stats.Failed)
}

func TestEvalCommand(t *testing.T) {
	dataset := testDataPath(t, "eval", "holdings.yaml")

	out, _, err := execute(t, nil, "eval", dataset)
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset: sample-holdings")
	assert.Contains(t, out, "Cases: 3 passed, 0 failed")

	out, _, err = execute(t, nil, "eval", dataset, "--format", "json")
	require.NoError(t, err)
	var report struct {
		Passed int     `json:"passed"`
		F1     float64 `json:"f1"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Passed)
	assert.InDelta(t, 1.0, report.F1, 1e-9)
}

func TestEvalCommand_MinF1(t *testing.T) {
	dataset := testDataPath(t, "eval", "holdings.yaml")

	_, _, err := execute(t, nil, "eval", dataset, "--min-f1", "1.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the required")
}

func TestEvalCommand_ReportFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "report.yaml")
	_, _, err := execute(t, nil, "eval", testDataPath(t, "eval", "holdings.yaml"), "--format", "yaml", "--output", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dataset: sample-holdings")
}

func TestConfigShow(t *testing.T) {
	t.Setenv("HOLDSCAN_SERVER_PORT", "9191")

	out, _, err := execute(t, nil, "--log-level", "warn", "config", "show", "--format", "json")
	require.NoError(t, err)

	var cfg struct {
		LogLevel string `json:"log_level"`
		Server   struct {
			Port int `json:"port"`
		} `json:"server"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9191, cfg.Server.Port)

	out, _, err = execute(t, nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: info")
}

func TestConfigShow_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "custom.yaml", "log_level: error\nbatch:\n  workers: 2\n")

	out, _, err := execute(t, nil, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: error")
	assert.Contains(t, out, "workers: 2")
}

func TestConfigInfo(t *testing.T) {
	out, _, err := execute(t, nil, "config", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Environment prefix: HOLDSCAN")
	assert.Contains(t, out, "Configuration search paths:")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdscan.yaml")

	out, _, err := execute(t, nil, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)
	assert.True(t, testutil.FileExists(path))

	_, _, err = execute(t, nil, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, nil, "config", "init", path, "--force")
	require.NoError(t, err)

	// The generated file round-trips through the loader.
	out, _, err = execute(t, nil, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: info")
}

func TestEnqueueCommand_Validation(t *testing.T) {
	dir := t.TempDir()
	bad := testutil.WriteFile(t, dir, "bad.json", `{"regions": "nope"}`)
	good := pagePath(t, "row_page.json")

	_, _, err := execute(t, nil, "enqueue", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid document "+bad)

	_, _, err = execute(t, nil, "enqueue", good, good, "--job-id", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single file")

	_, _, err = execute(t, nil, "enqueue", good, "--redis-url", "ftp://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}

func TestWorkerCommand_InvalidRedisURL(t *testing.T) {
	_, _, err := execute(t, nil, "worker", "--redis-url", "ftp://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}

func TestServeCommand_GracefulShutdown(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)

	root := NewRootCmd()
	var stdout, stderr strings.Builder
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"serve", "--host", "127.0.0.1", "--port", "0", "--shutdown-timeout", "1"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, root.ExecuteContext(ctx))
	assert.Contains(t, stderr.String(), "Starting recognition server")
	assert.Contains(t, stderr.String(), "Graceful shutdown completed")
}

func TestServeCommand_InvalidPort(t *testing.T) {
	_, _, err := execute(t, nil, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}
