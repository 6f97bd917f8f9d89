package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	id := catalog.AssetID("7")
	name := "鑫尊利28天持盈1号"
	matched := recognizer.MatchResult{
		OriginalName: "鑫尊利28天持盈",
		Amount:       decimal.RequireFromString("12345.67"),
		AssetID:      &id,
		AssetName:    &name,
		Score:        0.91,
		Confirmed:    true,
		Method:       "substring",
	}
	unmatched := recognizer.MatchResult{
		OriginalName: "未知产品A",
		Amount:       decimal.RequireFromString("5000"),
		Method:       "none",
	}
	return &Result{
		Files: []FileResult{
			{File: "a.json", UserID: "u1", Report: recognizer.Report{
				Results: []recognizer.MatchResult{matched, unmatched}, Processor: recognizer.RowOriented,
			}, Duration: 2 * time.Millisecond},
			{File: "b.json", Report: recognizer.Report{Processor: recognizer.RowOriented}},
			{File: "c.json", Err: errors.New("failed to parse document")},
		},
		Duration:    10 * time.Millisecond,
		WorkerCount: 2,
	}
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().Write(&buf, "json"))

	var got batchReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Files, 3)
	assert.Equal(t, "u1", got.Files[0].UserID)
	assert.Equal(t, "row", got.Files[0].Processor)
	require.Len(t, got.Files[0].Holdings, 2)
	assert.Equal(t, "12345.67", got.Files[0].Holdings[0].Amount)
	assert.Equal(t, "7", got.Files[0].Holdings[0].AssetID)
	assert.Empty(t, got.Files[1].Holdings)
	assert.Equal(t, "failed to parse document", got.Files[2].Error)
	assert.Equal(t, 3, got.Stats.TotalFiles)
	assert.Equal(t, 1, got.Stats.Failed)
}

func TestWriteResults_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().Write(&buf, "yaml"))

	var got batchReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Files, 3)
	assert.Equal(t, "鑫尊利28天持盈1号", got.Files[0].Holdings[0].AssetName)
	assert.Equal(t, 2, got.Stats.Holdings)
}

func TestWriteResults_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().Write(&buf, "csv"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"a.json", "1", "鑫尊利28天持盈", "12345.67", "7", "鑫尊利28天持盈1号", "0.910", "true", "substring", "0.000", ""}, records[1])
	assert.Equal(t, "5000", records[2][3])
	assert.Equal(t, "b.json", records[3][0])
	assert.Empty(t, records[3][2])
	assert.Equal(t, "failed to parse document", records[4][10])
}

func TestWriteResults_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().Write(&buf, "text"))

	out := buf.String()
	assert.Contains(t, out, "# a.json\n鑫尊利28天持盈\t12345.67\t= 鑫尊利28天持盈1号 [7] 0.91\n")
	assert.Contains(t, out, "未知产品A\t5000\n")
	assert.Contains(t, out, "# b.json\n(no holdings)\n")
	assert.Contains(t, out, "# c.json\nerror: failed to parse document\n")
}

func TestWriteResults_Parquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().Write(&buf, "parquet"))

	pf, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pf.NumRows())

	reader := parquet.NewGenericReader[holdingRow](pf)
	defer reader.Close()
	rows := make([]holdingRow, 4)
	n, _ := reader.Read(rows)
	require.Equal(t, 2, n)

	assert.Equal(t, "a.json", rows[0].File)
	assert.Equal(t, int32(1), rows[0].Rank)
	assert.Equal(t, "12345.67", rows[0].Amount)
	assert.Equal(t, "7", rows[0].AssetID)
	assert.True(t, rows[0].Confirmed)
	assert.Equal(t, int32(2), rows[1].Rank)
	assert.Empty(t, rows[1].AssetID)
}

func TestWriteResults_UnknownFormat(t *testing.T) {
	require.ErrorContains(t, sampleResult().Write(&bytes.Buffer{}, "xml"), "unsupported output format")
}
