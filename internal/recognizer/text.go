package recognizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls text post-processing behavior.
type CleanOptions struct {
	NormalizeForm      string            // "NFKC" (default), "NFC", "" to disable
	CollapseWhitespace bool              // collapse runs of whitespace to a single space
	JoinHanSpaces      bool              // drop spaces that sit next to a Han ideograph
	Trim               bool              // trim leading/trailing whitespace
	RemoveControlChars bool              // remove non-printable control characters
	RemoveZeroWidth    bool              // remove zero-width spaces/joiners
	TrimSeparators     []string          // strip these from both ends after trimming
	ReplaceMap         map[string]string // string replacements applied after normalization
}

// DefaultCleanOptions returns defaults for OCR fragments of holdings pages.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFKC",
		CollapseWhitespace: true,
		JoinHanSpaces:      true,
		Trim:               true,
		RemoveControlChars: true,
		RemoveZeroWidth:    true,
	}
}

// NameCleanOptions extends the defaults with separator trimming and the
// punctuation replacements used for product names.
func NameCleanOptions(separators []string) CleanOptions {
	opts := DefaultCleanOptions()
	opts.TrimSeparators = separators
	opts.ReplaceMap = map[string]string{
		"‘": "'",
		"’": "'",
		"“": "\"",
		"”": "\"",
		"–": "-",
		"—": "-",
		"\u3000": " ",
	}
	return opts
}

// PostProcessText applies normalization and cleaning to OCR text.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}

	s = applyNormalization(s, opts)
	if opts.RemoveZeroWidth {
		s = removeZeroWidth(s)
	}
	if opts.RemoveControlChars {
		s = removeControlChars(s)
	}
	if len(opts.ReplaceMap) > 0 {
		s = applyReplaceMap(s, opts.ReplaceMap)
	}
	if opts.CollapseWhitespace {
		s = collapseWhitespace(s)
	}
	if opts.JoinHanSpaces {
		s = joinHanSpaces(s)
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	if len(opts.TrimSeparators) > 0 {
		s = trimSeparators(s, opts.TrimSeparators)
	}

	return s
}

func applyNormalization(s string, opts CleanOptions) string {
	switch strings.ToUpper(opts.NormalizeForm) {
	case "NFKC":
		return norm.NFKC.String(s)
	case "NFC":
		return norm.NFC.String(s)
	}
	return s
}

func applyReplaceMap(s string, replaceMap map[string]string) string {
	// Longer keys first to avoid partial overlaps
	keys := make([]string, 0, len(replaceMap))
	for k := range replaceMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, replaceMap[k])
	}
	return s
}

func removeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var wsRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string { return wsRe.ReplaceAllString(s, " ") }

// joinHanSpaces removes single spaces with a Han ideograph on either side.
// OCR inserts these between glyphs of wide fonts.
func joinHanSpaces(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if r == ' ' && i > 0 && i < len(runes)-1 &&
			(unicode.Is(unicode.Han, runes[i-1]) || unicode.Is(unicode.Han, runes[i+1])) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func trimSeparators(s string, seps []string) string {
	for {
		before := s
		for _, sep := range seps {
			s = strings.TrimPrefix(s, sep)
			s = strings.TrimSuffix(s, sep)
		}
		s = strings.TrimSpace(s)
		if s == before {
			return s
		}
	}
}

// removeZeroWidth removes common zero-width characters used in OCR noise.
func removeZeroWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u200B', // ZERO WIDTH SPACE
			'\u200C', // ZERO WIDTH NON-JOINER
			'\u200D', // ZERO WIDTH JOINER
			'\uFEFF': // ZERO WIDTH NO-BREAK SPACE (BOM)
			// skip
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isPunctOrSpace reports whether s holds nothing but punctuation, symbols
// and whitespace.
func isPunctOrSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// countHan returns the number of Han ideographs in s.
func countHan(s string) int {
	n := 0
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			n++
		}
	}
	return n
}

// countDigits returns the number of decimal digits in s.
func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
