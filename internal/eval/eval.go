package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"gopkg.in/yaml.v3"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name       string               `json:"name" yaml:"name"`
	Counts     Counts               `json:"counts" yaml:"counts"`
	Amounts    Counts               `json:"amounts" yaml:"amounts"`
	Missing    []Expectation        `json:"missing,omitempty" yaml:"missing,omitempty"`
	Extra      []recognizer.Holding `json:"extra,omitempty" yaml:"extra,omitempty"`
	Processor  string               `json:"processor,omitempty" yaml:"processor,omitempty"`
	Error      string               `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS float64              `json:"duration_ms" yaml:"duration_ms"`
}

// Passed reports whether the case produced exactly the expected pairs.
func (r CaseResult) Passed() bool {
	return r.Error == "" && r.Counts.FalsePositives == 0 && r.Counts.FalseNegatives == 0
}

// Report aggregates a dataset run. Amounts counts compare amounts only, so
// extraction quality can be told apart from catalog matching.
type Report struct {
	Dataset   string       `json:"dataset" yaml:"dataset"`
	Cases     []CaseResult `json:"cases" yaml:"cases"`
	Total     Counts       `json:"total" yaml:"total"`
	Amounts   Counts       `json:"amounts" yaml:"amounts"`
	Passed    int          `json:"passed" yaml:"passed"`
	Failed    int          `json:"failed" yaml:"failed"`
	Precision float64      `json:"precision" yaml:"precision"`
	Recall    float64      `json:"recall" yaml:"recall"`
	F1        float64      `json:"f1" yaml:"f1"`
}

// Run evaluates every case of ds. Cases whose page cannot be loaded are
// recorded as errors with all expectations missing.
func Run(ctx context.Context, ds *Dataset, engine *recognizer.Engine, store catalog.Store) (*Report, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	rep := &Report{Dataset: ds.Name, Cases: make([]CaseResult, 0, len(ds.Cases))}
	for _, c := range ds.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := runCase(ctx, ds, c, engine, store)
		rep.Total.Add(res.Counts)
		rep.Amounts.Add(res.Amounts)
		if res.Passed() {
			rep.Passed++
		} else {
			rep.Failed++
		}
		rep.Cases = append(rep.Cases, res)
	}
	rep.Precision = rep.Total.Precision()
	rep.Recall = rep.Total.Recall()
	rep.F1 = rep.Total.F1()
	return rep, nil
}

func runCase(ctx context.Context, ds *Dataset, c Case, engine *recognizer.Engine,
	store catalog.Store) (res CaseResult) {
	start := time.Now()
	res.Name = c.Name
	defer func() { res.DurationMS = float64(time.Since(start).Microseconds()) / 1000 }()

	fail := func(err error) CaseResult {
		res.Error = err.Error()
		res.Counts = Counts{FalseNegatives: len(c.Expected)}
		res.Amounts = res.Counts
		res.Missing = c.Expected
		return res
	}

	doc, err := ds.document(c)
	if err != nil {
		return fail(err)
	}
	regions, err := doc.TextRegions()
	if err != nil && !errors.Is(err, ingest.ErrNoRegions) {
		return fail(err)
	}
	assets, err := doc.Assets(ctx, store)
	if err != nil {
		return fail(err)
	}

	report := engine.Analyze(regions, assets)
	holdings := recognizer.Holdings(report.Results)
	res.Processor = report.Processor.String()
	res.Counts, res.Missing, res.Extra = compare(c.Expected, holdings)
	res.Amounts, _, _ = compare(amountsOnly(c.Expected), amountsOnlyHoldings(holdings))
	return res
}

func amountsOnly(expected []Expectation) []Expectation {
	out := make([]Expectation, len(expected))
	for i, e := range expected {
		out[i] = Expectation{Amount: e.Amount}
	}
	return out
}

func amountsOnlyHoldings(holdings []recognizer.Holding) []recognizer.Holding {
	out := make([]recognizer.Holding, len(holdings))
	for i, h := range holdings {
		out[i] = recognizer.Holding{Amount: h.Amount}
	}
	return out
}

// Write renders the report as text, json or yaml.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		_, err := io.WriteString(w, r.text())
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func (r *Report) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", r.Dataset)
	for _, c := range r.Cases {
		status := "PASS"
		if !c.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %s (tp=%d fp=%d fn=%d)\n", status, c.Name,
			c.Counts.TruePositives, c.Counts.FalsePositives, c.Counts.FalseNegatives)
		if c.Error != "" {
			fmt.Fprintf(&b, "      error: %s\n", c.Error)
		}
		for _, m := range c.Missing {
			fmt.Fprintf(&b, "      missing: %s %s\n", displayID(m.AssetID), m.Amount)
		}
		for _, h := range c.Extra {
			fmt.Fprintf(&b, "      extra: %s %s (%s)\n", displayID(h.AssetID), h.Amount, h.Name)
		}
	}
	fmt.Fprintf(&b, "\nCases: %d passed, %d failed\n", r.Passed, r.Failed)
	fmt.Fprintf(&b, "Holdings: precision %.3f, recall %.3f, F1 %.3f\n", r.Precision, r.Recall, r.F1)
	fmt.Fprintf(&b, "Amounts:  precision %.3f, recall %.3f, F1 %.3f\n",
		r.Amounts.Precision(), r.Amounts.Recall(), r.Amounts.F1())
	return b.String()
}

func displayID(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
