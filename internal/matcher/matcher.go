// Package matcher scores recognized product names against a user's catalog.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/vocab"
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Method names the similarity signal that produced a score.
type Method string

const (
	MethodExact          Method = "exact"
	MethodSubstring      Method = "substring"
	MethodJaroWinkler    Method = "jaro_winkler"
	MethodCharJaccard    Method = "char_jaccard"
	MethodKeywordJaccard Method = "keyword_jaccard"
	MethodNone           Method = "none"
)

// Match is the best catalog entry for one name.
type Match struct {
	Asset  catalog.Asset
	Index  int // position in the catalog snapshot, -1 when unmatched
	Score  float64
	Method Method
}

// Found reports whether a catalog entry cleared the minimum threshold.
func (m Match) Found() bool { return m.Index >= 0 }

// Matcher is safe for concurrent use.
type Matcher struct {
	policy Policy
	vocab  *vocab.Vocabulary
	jw     *metrics.JaroWinkler
}

// New creates a matcher. A nil vocabulary uses vocab.Default().
func New(policy Policy, v *vocab.Vocabulary) *Matcher {
	if v == nil {
		v = vocab.Default()
	}
	return &Matcher{policy: policy, vocab: v, jw: metrics.NewJaroWinkler()}
}

// Policy returns the thresholds in use.
func (m *Matcher) Policy() Policy { return m.policy }

// Key normalizes a name for comparison: NFKC, lower case, no whitespace,
// punctuation or symbols.
func Key(s string) string {
	s = cases.Lower(language.Und).String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Score returns the maximum of the similarity signals between two names
// and the signal that produced it.
func (m *Matcher) Score(a, b string) (float64, Method) {
	ka, kb := Key(a), Key(b)
	if ka == "" || kb == "" {
		return 0, MethodNone
	}
	if ka == kb {
		return 1, MethodExact
	}

	best, method := 0.0, MethodNone
	consider := func(score float64, how Method) {
		if score > best {
			best, method = score, how
		}
	}
	consider(containment(ka, kb), MethodSubstring)
	consider(strutil.Similarity(ka, kb, m.jw), MethodJaroWinkler)
	consider(jaccard(runeSet(ka), runeSet(kb)), MethodCharJaccard)
	consider(m.policy.KeywordWeight*jaccard(m.keywordSet(ka), m.keywordSet(kb)), MethodKeywordJaccard)
	return best, method
}

// Best scores name against every asset. Ties go to the earlier entry.
// Scores below the minimum threshold yield an unmatched result with score 0.
func (m *Matcher) Best(name string, assets []catalog.Asset) Match {
	best := Match{Index: -1, Method: MethodNone}
	for i, a := range assets {
		score, how := m.Score(name, a.Name)
		if score > best.Score {
			best = Match{Asset: a, Index: i, Score: score, Method: how}
		}
	}
	if best.Index < 0 || m.policy.Tier(best.Score) == TierUnmatched {
		return Match{Index: -1, Method: MethodNone}
	}
	return best
}

func containment(a, b string) float64 {
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return 0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	short, long := min(la, lb), max(la, lb)
	return 0.75 + 0.2*float64(short)/float64(long)
}

func runeSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range s {
		out[string(r)] = struct{}{}
	}
	return out
}

func (m *Matcher) keywordSet(s string) map[string]struct{} {
	words := m.vocab.Keywords(s)
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
