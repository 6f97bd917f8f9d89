package eval

import (
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/shopspring/decimal"
)

// Counts are pair-level confusion counts. A pair is (asset ID, amount).
type Counts struct {
	TruePositives  int `json:"true_positives" yaml:"true_positives"`
	FalsePositives int `json:"false_positives" yaml:"false_positives"`
	FalseNegatives int `json:"false_negatives" yaml:"false_negatives"`
}

// Add accumulates o into c.
func (c *Counts) Add(o Counts) {
	c.TruePositives += o.TruePositives
	c.FalsePositives += o.FalsePositives
	c.FalseNegatives += o.FalseNegatives
}

// Precision is TP / (TP + FP), or 1 when nothing was predicted.
func (c Counts) Precision() float64 {
	if c.TruePositives+c.FalsePositives == 0 {
		return 1
	}
	return float64(c.TruePositives) / float64(c.TruePositives+c.FalsePositives)
}

// Recall is TP / (TP + FN), or 1 when nothing was expected.
func (c Counts) Recall() float64 {
	if c.TruePositives+c.FalseNegatives == 0 {
		return 1
	}
	return float64(c.TruePositives) / float64(c.TruePositives+c.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall.
func (c Counts) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

type pair struct {
	assetID string
	amount  string
}

func normalizeAmount(s string) (string, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", false
	}
	return d.String(), true
}

// compare matches holdings against expectations as multisets of pairs.
func compare(expected []Expectation, got []recognizer.Holding) (Counts, []Expectation, []recognizer.Holding) {
	want := make(map[pair]int, len(expected))
	for _, e := range expected {
		amount, _ := normalizeAmount(e.Amount)
		want[pair{e.AssetID, amount}]++
	}

	var c Counts
	var extra []recognizer.Holding
	for _, h := range got {
		amount, ok := normalizeAmount(h.Amount)
		if !ok {
			amount = h.Amount
		}
		p := pair{h.AssetID, amount}
		if want[p] > 0 {
			want[p]--
			c.TruePositives++
			continue
		}
		c.FalsePositives++
		extra = append(extra, h)
	}

	var missing []Expectation
	for _, e := range expected {
		amount, _ := normalizeAmount(e.Amount)
		p := pair{e.AssetID, amount}
		if want[p] > 0 {
			want[p]--
			c.FalseNegatives++
			missing = append(missing, e)
		}
	}
	return c, missing, extra
}
