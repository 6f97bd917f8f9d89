package recognizer

import (
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/holdscan/internal/vocab"
	"github.com/shopspring/decimal"
)

// classifier tags regions as Amount, Content or Irrelevant from their text.
type classifier struct {
	cfg   Config
	vocab *vocab.Vocabulary
	clean CleanOptions
}

func newClassifier(cfg Config, v *vocab.Vocabulary) classifier {
	return classifier{cfg: cfg, vocab: v, clean: DefaultCleanOptions()}
}

// kindOf classifies cleaned text. Ambiguous text ends up as Content.
func (c classifier) kindOf(text string) (Kind, decimal.Decimal) {
	if amount, ok := parseAmount(text, c.cfg); ok {
		return KindAmount, amount
	}
	if c.isIrrelevant(text) {
		return KindIrrelevant, decimal.Zero
	}
	return KindContent, decimal.Zero
}

func (c classifier) isIrrelevant(text string) bool {
	if utf8.RuneCountInString(text) < 2 || isPunctOrSpace(text) {
		return true
	}
	// Rates and yields, e.g. "3.25%".
	if strings.HasSuffix(text, "%") && countDigits(text) > 0 && countHan(text) == 0 {
		return true
	}
	return c.vocab.IsIrrelevant(text)
}

// classify tags one region. The ID is assigned by the caller.
func (c classifier) classify(id int, r TextRegion) ClassifiedRegion {
	text := PostProcessText(r.Text, c.clean)
	kind, amount := c.kindOf(text)
	return ClassifiedRegion{ID: id, Region: r, Text: text, Kind: kind, Amount: amount}
}

// classifyAll tags every region, assigning IDs in input order.
func (c classifier) classifyAll(regions []TextRegion) []ClassifiedRegion {
	out := make([]ClassifiedRegion, len(regions))
	for i, r := range regions {
		out[i] = c.classify(i, r)
	}
	return out
}
