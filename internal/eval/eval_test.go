package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *recognizer.Engine {
	return recognizer.New(recognizer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := LoadDataset(filepath.Join(testutil.GetTestDataDir(t), "eval", "holdings.yaml"))
	require.NoError(t, err)
	return ds
}

func TestCounts_Metrics(t *testing.T) {
	c := Counts{TruePositives: 3, FalsePositives: 1, FalseNegatives: 2}
	assert.InDelta(t, 0.75, c.Precision(), 1e-9)
	assert.InDelta(t, 0.6, c.Recall(), 1e-9)
	assert.InDelta(t, 2*0.75*0.6/1.35, c.F1(), 1e-9)

	var empty Counts
	assert.InDelta(t, 1.0, empty.Precision(), 1e-9)
	assert.InDelta(t, 1.0, empty.Recall(), 1e-9)
	assert.InDelta(t, 0.0, Counts{FalsePositives: 1, FalseNegatives: 1}.F1(), 1e-9)

	c.Add(Counts{TruePositives: 1})
	assert.Equal(t, 4, c.TruePositives)
}

func TestCompare_Multiset(t *testing.T) {
	expected := []Expectation{{AssetID: "7", Amount: "100.00"}, {AssetID: "7", Amount: "100"}, {Amount: "5"}}
	got := []recognizer.Holding{
		{AssetID: "7", Amount: "100"},
		{AssetID: "8", Amount: "100"},
		{Amount: "5.0"},
	}

	c, missing, extra := compare(expected, got)
	assert.Equal(t, Counts{TruePositives: 2, FalsePositives: 1, FalseNegatives: 1}, c)
	assert.Equal(t, []Expectation{{AssetID: "7", Amount: "100.00"}}, missing)
	assert.Equal(t, "8", extra[0].AssetID)
}

func TestLoadDataset(t *testing.T) {
	ds := sampleDataset(t)
	assert.Equal(t, "sample-holdings", ds.Name)
	require.Len(t, ds.Cases, 3)
	assert.Len(t, ds.Cases[1].Catalog, 1)
	assert.NotNil(t, ds.Cases[2].Page)
}

func TestLoadDataset_Invalid(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no cases", "name: x\ncases: []\n", "no cases"},
		{"unnamed", "cases:\n  - document: a.json\n", "has no name"},
		{"both sources", "cases:\n  - name: a\n    document: a.json\n    page: {regions: []}\n", "exactly one"},
		{"no source", "cases:\n  - name: a\n", "exactly one"},
		{"bad amount", "cases:\n  - name: a\n    document: a.json\n    expected: [{amount: abc}]\n", "invalid expected amount"},
		{"bad yaml", "cases: [", "failed to parse dataset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.name+".yaml", tt.content)
			_, err := LoadDataset(path)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := LoadDataset(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "failed to read dataset")
}

func TestRun_SampleDataset(t *testing.T) {
	rep, err := Run(context.Background(), sampleDataset(t), testEngine(), nil)
	require.NoError(t, err)

	require.Len(t, rep.Cases, 3)
	for _, c := range rep.Cases {
		assert.True(t, c.Passed(), "%s: %+v", c.Name, c)
	}
	assert.Equal(t, Counts{TruePositives: 3}, rep.Total)
	assert.Equal(t, 3, rep.Passed)
	assert.InDelta(t, 1.0, rep.F1, 1e-9)
}

func TestRun_MissingDocument(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.WriteFile(t, dir, "ds.yaml",
		"cases:\n  - name: gone\n    document: nope.json\n    expected: [{asset_id: '1', amount: '10'}]\n")
	ds, err := LoadDataset(path)
	require.NoError(t, err)

	rep, err := Run(context.Background(), ds, testEngine(), nil)
	require.NoError(t, err)
	require.Len(t, rep.Cases, 1)
	assert.NotEmpty(t, rep.Cases[0].Error)
	assert.Equal(t, Counts{FalseNegatives: 1}, rep.Total)
	assert.Equal(t, 1, rep.Failed)
	assert.InDelta(t, 0.0, rep.Recall, 1e-9)
}

func TestRun_WrongMatchCountsAmountsSeparately(t *testing.T) {
	page := testutil.NewPage().Row("鑫尊利28天持盈", "12,345.67").Asset("7", "鑫尊利28天持盈1号").Document()
	ds := &Dataset{Name: "inline", Cases: []Case{{
		Name: "wrong id", Page: page, Expected: []Expectation{{AssetID: "9", Amount: "12345.67"}},
	}}}

	rep, err := Run(context.Background(), ds, testEngine(), nil)
	require.NoError(t, err)
	assert.Equal(t, Counts{FalsePositives: 1, FalseNegatives: 1}, rep.Total)
	assert.Equal(t, Counts{TruePositives: 1}, rep.Amounts)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, sampleDataset(t), testEngine(), nil)
	require.ErrorIs(t, err, context.Canceled)

	_, err = Run(context.Background(), sampleDataset(t), nil, nil)
	require.Error(t, err)
}

func TestReport_Write(t *testing.T) {
	rep, err := Run(context.Background(), sampleDataset(t), testEngine(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.Write(&buf, "text"))
	assert.Contains(t, buf.String(), "[PASS] row page with inline catalog (tp=2 fp=0 fn=0)")
	assert.Contains(t, buf.String(), "Cases: 3 passed, 0 failed")

	buf.Reset()
	require.NoError(t, rep.Write(&buf, "json"))
	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rep.Total, decoded.Total)

	buf.Reset()
	require.NoError(t, rep.Write(&buf, "yaml"))
	assert.Contains(t, buf.String(), "dataset: sample-holdings")

	require.Error(t, rep.Write(&buf, "csv"))
}
