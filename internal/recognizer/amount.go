package recognizer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var (
	datePattern     = regexp.MustCompile(`\d{4}\s*[-/.年]\s*\d{1,2}\s*[-/.月]\s*\d{1,2}`)
	timePattern     = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
	defectPattern   = regexp.MustCompile(`^\d+\.\d{3}\.\d{2}$`)
	groupedPattern  = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d{2})?$`)
	decimalPattern  = regexp.MustCompile(`^\d+\.\d{1,4}$`)
	integerPattern  = regexp.MustCompile(`^\d+$`)
	embeddedPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+\.\d{3}\.\d{2}|\d+\.\d{1,4}`)
)

var currencyPrefixes = []string{"¥", "$", "€", "£"}

// ParseAmount parses OCR text as a monetary amount using the default bounds.
// It reports false when the text is not amount-shaped.
func ParseAmount(text string) (decimal.Decimal, bool) {
	return parseAmount(text, DefaultConfig())
}

func parseAmount(text string, cfg Config) (decimal.Decimal, bool) {
	s := strings.TrimSpace(norm.NFKC.String(text))
	if s == "" {
		return decimal.Zero, false
	}
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.In(r, unicode.Latin) {
			return decimal.Zero, false
		}
	}
	if datePattern.MatchString(s) || timePattern.MatchString(s) {
		return decimal.Zero, false
	}
	for _, p := range currencyPrefixes {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Zero, false
	}

	if defectPattern.MatchString(s) {
		s = strings.Replace(s, ".", ",", 1)
	}

	switch {
	case groupedPattern.MatchString(s), decimalPattern.MatchString(s):
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case integerPattern.MatchString(s):
		if len(s) > cfg.MaxIntegerDigits {
			return decimal.Zero, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < cfg.MinIntegerAmount || n > cfg.MaxIntegerAmount {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(n), true
	}
	return decimal.Zero, false
}

// findEmbeddedAmount scans free text for the first amount-shaped substring.
func findEmbeddedAmount(text string, cfg Config) (decimal.Decimal, bool) {
	s := norm.NFKC.String(text)
	if datePattern.MatchString(s) {
		s = datePattern.ReplaceAllString(s, " ")
	}
	for _, m := range embeddedPattern.FindAllString(s, -1) {
		if d, ok := parseAmount(m, cfg); ok && d.IsPositive() {
			return d, true
		}
	}
	return decimal.Zero, false
}
