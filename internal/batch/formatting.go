package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// fileReport is the serialized view of a FileResult.
type fileReport struct {
	File         string               `json:"file" yaml:"file"`
	UserID       string               `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Holdings     []recognizer.Holding `json:"holdings" yaml:"holdings"`
	Processor    string               `json:"processor,omitempty" yaml:"processor,omitempty"`
	FallbackUsed bool                 `json:"fallback_used" yaml:"fallback_used"`
	Error        string               `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS   float64              `json:"duration_ms" yaml:"duration_ms"`
}

type batchReport struct {
	Files []fileReport `json:"files" yaml:"files"`
	Stats Stats        `json:"stats" yaml:"stats"`
}

// holdingRow is one parquet row: a holding together with its source file.
type holdingRow struct {
	File       string  `parquet:"file"`
	UserID     string  `parquet:"user_id,optional"`
	Rank       int32   `parquet:"rank"`
	Name       string  `parquet:"name"`
	Amount     string  `parquet:"amount"`
	AssetID    string  `parquet:"asset_id,optional"`
	AssetName  string  `parquet:"asset_name,optional"`
	Score      float64 `parquet:"score"`
	Confirmed  bool    `parquet:"confirmed"`
	Method     string  `parquet:"method"`
	Confidence float64 `parquet:"confidence"`
}

// writeResults renders r in format to w.
func writeResults(w io.Writer, r *Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, r)
	case "yaml":
		return writeYAML(w, r)
	case "csv":
		return writeCSV(w, r)
	case "parquet":
		return writeParquet(w, r)
	case "", "text":
		return writeText(w, r)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func toReport(r *Result) batchReport {
	out := batchReport{Files: make([]fileReport, 0, len(r.Files)), Stats: r.Stats()}
	for _, f := range r.Files {
		fr := fileReport{
			File:       f.File,
			UserID:     f.UserID,
			Holdings:   f.Holdings(),
			DurationMS: float64(f.Duration.Microseconds()) / 1000,
		}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		} else {
			fr.Processor = f.Report.Processor.String()
			fr.FallbackUsed = f.Report.FallbackUsed
		}
		out.Files = append(out.Files, fr)
	}
	return out
}

func writeJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toReport(r))
}

func writeYAML(w io.Writer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toReport(r)); err != nil {
		return err
	}
	return enc.Close()
}

var csvHeader = []string{
	"file", "rank", "name", "amount", "asset_id", "asset_name", "score", "confirmed", "method", "confidence", "error",
}

func writeCSV(w io.Writer, r *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, f := range r.Files {
		holdings := f.Holdings()
		if f.Err != nil || len(holdings) == 0 {
			errText := ""
			if f.Err != nil {
				errText = f.Err.Error()
			}
			if err := cw.Write([]string{f.File, "", "", "", "", "", "", "", "", "", errText}); err != nil {
				return err
			}
			continue
		}
		for i, h := range holdings {
			row := []string{
				f.File,
				strconv.Itoa(i + 1),
				h.Name,
				h.Amount,
				h.AssetID,
				h.AssetName,
				strconv.FormatFloat(h.Score, 'f', 3, 64),
				strconv.FormatBool(h.Confirmed),
				h.Method,
				strconv.FormatFloat(h.Confidence, 'f', 3, 64),
				"",
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeText(w io.Writer, r *Result) error {
	var b strings.Builder
	for i, f := range r.Files {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", f.File)
		if f.Err != nil {
			fmt.Fprintf(&b, "error: %v\n", f.Err)
			continue
		}
		holdings := f.Holdings()
		if len(holdings) == 0 {
			b.WriteString("(no holdings)\n")
			continue
		}
		for _, h := range holdings {
			fmt.Fprintf(&b, "%s\t%s", h.Name, h.Amount)
			if h.AssetID != "" {
				mark := "?"
				if h.Confirmed {
					mark = "="
				}
				fmt.Fprintf(&b, "\t%s %s [%s] %.2f", mark, h.AssetName, h.AssetID, h.Score)
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeParquet(w io.Writer, r *Result) error {
	var rows []holdingRow
	for _, f := range r.Files {
		if f.Err != nil {
			continue
		}
		for i, h := range f.Holdings() {
			rows = append(rows, holdingRow{
				File:       f.File,
				UserID:     f.UserID,
				Rank:       int32(i + 1), //nolint:gosec // bounded by max_results
				Name:       h.Name,
				Amount:     h.Amount,
				AssetID:    h.AssetID,
				AssetName:  h.AssetName,
				Score:      h.Score,
				Confirmed:  h.Confirmed,
				Method:     h.Method,
				Confidence: h.Confidence,
			})
		}
	}

	pw := parquet.NewGenericWriter[holdingRow](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
