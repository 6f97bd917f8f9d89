// Package vocab holds the domain vocabulary used as weak signals by the
// recognizer and the matcher: product-type keywords, institution names,
// name separators and UI metadata strings.
package vocab

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Vocabulary is immutable after construction. Share one value across
// goroutines freely.
type Vocabulary struct {
	ProductKeywords    []string `yaml:"product_keywords" json:"product_keywords"`
	Institutions       []string `yaml:"institutions" json:"institutions"`
	Separators         []string `yaml:"separators" json:"separators"`
	IrrelevantExact    []string `yaml:"irrelevant_exact" json:"irrelevant_exact"`
	IrrelevantContains []string `yaml:"irrelevant_contains" json:"irrelevant_contains"`
	TotalMarkers       []string `yaml:"total_markers" json:"total_markers"`
	DefaultNames       []string `yaml:"default_names" json:"default_names"`

	exact    map[string]struct{}
	defaults map[string]struct{}
}

var loadDefault = sync.OnceValue(func() *Vocabulary {
	v, err := parse(defaultYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("vocab: embedded default is invalid: %v", err))
	}
	return v
})

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return loadDefault()
}

// Parse decodes a YAML vocabulary. Sections that are absent fall back to the
// built-in defaults, so an override file only needs the lists it changes.
func Parse(data []byte) (*Vocabulary, error) {
	return parse(data, Default())
}

func parse(data []byte, base *Vocabulary) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if base != nil {
		v.fillFrom(base)
	}
	if len(v.ProductKeywords) == 0 && len(v.Institutions) == 0 {
		return nil, errors.New("vocabulary has no product keywords or institutions")
	}
	v.index()
	return &v, nil
}

// Load reads a vocabulary override file. An empty path returns Default().
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided vocabulary file
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	return Parse(data)
}

func (v *Vocabulary) fillFrom(d *Vocabulary) {
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = append([]string(nil), src...)
		}
	}
	fill(&v.ProductKeywords, d.ProductKeywords)
	fill(&v.Institutions, d.Institutions)
	fill(&v.Separators, d.Separators)
	fill(&v.IrrelevantExact, d.IrrelevantExact)
	fill(&v.IrrelevantContains, d.IrrelevantContains)
	fill(&v.TotalMarkers, d.TotalMarkers)
	fill(&v.DefaultNames, d.DefaultNames)
}

func (v *Vocabulary) index() {
	v.exact = make(map[string]struct{}, len(v.IrrelevantExact))
	for _, s := range v.IrrelevantExact {
		v.exact[s] = struct{}{}
	}
	v.defaults = make(map[string]struct{}, len(v.DefaultNames))
	for _, s := range v.DefaultNames {
		v.defaults[s] = struct{}{}
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// IsNameFragment reports whether text carries a product keyword, an
// institution name or a name separator.
func (v *Vocabulary) IsNameFragment(text string) bool {
	return containsAny(text, v.ProductKeywords) ||
		containsAny(text, v.Institutions) ||
		containsAny(text, v.Separators)
}

// HasDomainKeyword reports whether text carries a product keyword or an
// institution name. Separators alone do not count.
func (v *Vocabulary) HasDomainKeyword(text string) bool {
	return containsAny(text, v.ProductKeywords) || containsAny(text, v.Institutions)
}

// IsIrrelevant reports whether text is a UI label or metadata string.
func (v *Vocabulary) IsIrrelevant(text string) bool {
	if _, ok := v.exact[text]; ok {
		return true
	}
	return containsAny(text, v.IrrelevantContains)
}

// IsTotalMarker reports whether text carries a page total label.
func (v *Vocabulary) IsTotalMarker(text string) bool {
	return containsAny(text, v.TotalMarkers)
}

// IsDefaultName reports whether name is a placeholder label.
func (v *Vocabulary) IsDefaultName(name string) bool {
	_, ok := v.defaults[name]
	return ok
}

// Keywords returns the sorted, de-duplicated product keywords and
// institution names found in text.
func (v *Vocabulary) Keywords(text string) []string {
	seen := make(map[string]struct{})
	for _, list := range [][]string{v.ProductKeywords, v.Institutions} {
		for _, w := range list {
			if w != "" && strings.Contains(text, w) {
				seen[w] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
