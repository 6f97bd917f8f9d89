package matcher

import (
	"errors"
	"fmt"
)

// Policy holds the three score thresholds and the result cap.
type Policy struct {
	ConfirmThreshold    float64 `json:"confirm_threshold" yaml:"confirm_threshold" mapstructure:"confirm_threshold"`
	MinThreshold        float64 `json:"min_threshold" yaml:"min_threshold" mapstructure:"min_threshold"`
	MinDisplayThreshold float64 `json:"min_display_threshold" yaml:"min_display_threshold" mapstructure:"min_display_threshold"`
	MaxResults          int     `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
	KeywordWeight       float64 `json:"keyword_weight" yaml:"keyword_weight" mapstructure:"keyword_weight"`
}

// DefaultPolicy returns the documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		ConfirmThreshold:    0.65,
		MinThreshold:        0.25,
		MinDisplayThreshold: 0.60,
		MaxResults:          30,
		KeywordWeight:       0.9,
	}
}

// Validate checks threshold ranges.
func (p Policy) Validate() error {
	if err := validateThreshold(p.ConfirmThreshold, "confirm_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(p.MinThreshold, "min_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(p.MinDisplayThreshold, "min_display_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(p.KeywordWeight, "keyword_weight"); err != nil {
		return err
	}
	if p.MinThreshold > p.MinDisplayThreshold {
		return errors.New("min_threshold must not exceed min_display_threshold")
	}
	if p.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", p.MaxResults)
	}
	return nil
}

func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("%s must be between 0.0 and 1.0, got %f", name, value)
	}
	return nil
}

// Tier is the visibility class of a scored match.
type Tier int

const (
	// TierUnmatched scores fall below the minimum; the match is discarded.
	TierUnmatched Tier = iota
	// TierHidden matches exist but are suppressed from results.
	TierHidden
	// TierVisible matches are returned.
	TierVisible
)

func (t Tier) String() string {
	switch t {
	case TierVisible:
		return "visible"
	case TierHidden:
		return "hidden"
	default:
		return "unmatched"
	}
}

// Tier classifies a best-match score.
func (p Policy) Tier(score float64) Tier {
	switch {
	case score < p.MinThreshold:
		return TierUnmatched
	case score < p.MinDisplayThreshold:
		return TierHidden
	default:
		return TierVisible
	}
}

// Confirmed reports whether a score is high enough to auto-apply.
func (p Policy) Confirmed(score float64) bool {
	return score >= p.ConfirmThreshold
}

// Overrides adjusts a policy for one request. Unset fields keep the base
// values.
type Overrides struct {
	ConfirmThreshold    *float64 `json:"confirm_threshold,omitempty"`
	MinThreshold        *float64 `json:"min_threshold,omitempty"`
	MinDisplayThreshold *float64 `json:"min_display_threshold,omitempty"`
	MaxResults          *int     `json:"max_results,omitempty"`
}

// Apply returns base with the overrides applied, or an error if the result is invalid.
func (o *Overrides) Apply(base Policy) (Policy, error) {
	if o == nil {
		return base, nil
	}
	p := base
	if o.ConfirmThreshold != nil {
		p.ConfirmThreshold = *o.ConfirmThreshold
	}
	if o.MinThreshold != nil {
		p.MinThreshold = *o.MinThreshold
	}
	if o.MinDisplayThreshold != nil {
		p.MinDisplayThreshold = *o.MinDisplayThreshold
	}
	if o.MaxResults != nil {
		p.MaxResults = *o.MaxResults
	}
	if err := p.Validate(); err != nil {
		return base, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}
