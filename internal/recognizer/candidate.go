package recognizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MeKo-Tech/holdscan/internal/vocab"
)

// Processor turns a classified page into candidates.
type Processor func(page PageLayout) []ProductCandidate

// candidateBuilder holds what the processors share.
type candidateBuilder struct {
	cfg   Config
	vocab *vocab.Vocabulary
	names CleanOptions
}

func newCandidateBuilder(cfg Config, v *vocab.Vocabulary) candidateBuilder {
	return candidateBuilder{cfg: cfg, vocab: v, names: NameCleanOptions(v.Separators)}
}

// build assembles a candidate from an amount region and its name regions.
func (b candidateBuilder) build(amount ClassifiedRegion, names []ClassifiedRegion, seq int) ProductCandidate {
	names = append([]ClassifiedRegion(nil), names...)
	sortReadingOrder(names)

	raw := joinNames(names)
	conf := amount.Region.Confidence
	for _, n := range names {
		conf += n.Region.Confidence
	}
	return ProductCandidate{
		AmountRegion:  amount,
		Amount:        amount.Amount,
		NameRegions:   names,
		RawName:       raw,
		CleanedName:   b.cleanName(raw),
		Confidence:    conf / float64(len(names)+1),
		PagePosition:  amount.Region.Center.Y,
		SequenceIndex: seq,
	}
}

func (b candidateBuilder) cleanName(raw string) string {
	return PostProcessText(raw, b.names)
}

// looksLikeProductName reports whether a content region can stand alone as
// a product name: long enough, mostly not digits, and either carrying a
// domain keyword or enough Han ideographs.
func (b candidateBuilder) looksLikeProductName(r ClassifiedRegion) bool {
	if r.Kind != KindContent || !hasLetter(r.Text) {
		return false
	}
	n := utf8.RuneCountInString(r.Text)
	if n < b.cfg.MinNameLength || countDigits(r.Text)*2 >= n {
		return false
	}
	return b.vocab.HasDomainKeyword(r.Text) || countHan(r.Text) >= b.cfg.MinNameHan
}

// isNamePart reports whether a region may contribute to a name.
func isNamePart(r ClassifiedRegion) bool {
	return r.Kind == KindContent && hasLetter(r.Text)
}

// joinNames concatenates region texts, keeping a space only between two
// Latin or digit runs.
func joinNames(names []ClassifiedRegion) string {
	var b strings.Builder
	for i, n := range names {
		if i > 0 && needsSpace(names[i-1].Text, n.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(n.Text)
	}
	return b.String()
}

func needsSpace(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	isWord := func(r rune) bool {
		return unicode.IsDigit(r) || unicode.In(r, unicode.Latin)
	}
	return isWord(last) && isWord(first)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
