//nolint:lll
package recognizer

import (
	"errors"
	"fmt"
)

// Config holds the geometric and shape tunables of the recognition stages.
// Units are page coordinates as reported by OCR.
type Config struct {
	// Fragment merging
	MergeVerticalDistance float64 `mapstructure:"merge_vertical_distance" yaml:"merge_vertical_distance" json:"merge_vertical_distance"` // max center distance between fragments (≈50)
	MergeOverlapRatio     float64 `mapstructure:"merge_overlap_ratio" yaml:"merge_overlap_ratio" json:"merge_overlap_ratio"`             // min horizontal overlap ratio, exclusive (0.3)
	MergeAdjacencyGap     float64 `mapstructure:"merge_adjacency_gap" yaml:"merge_adjacency_gap" json:"merge_adjacency_gap"`             // max left/right gap for side-by-side fragments (≈20)

	// Layout detection
	MinLayoutRegions       int     `mapstructure:"min_layout_regions" yaml:"min_layout_regions" json:"min_layout_regions"`                      // below this the layout defaults to rows (4)
	DefaultConfidence      float64 `mapstructure:"default_confidence" yaml:"default_confidence" json:"default_confidence"`                      // confidence of the default guess (0.5)
	AmountRightEdgeRatio   float64 `mapstructure:"amount_right_edge_ratio" yaml:"amount_right_edge_ratio" json:"amount_right_edge_ratio"`       // left edge beyond this share of width counts as right side (0.6)
	ColumnAmountRatio      float64 `mapstructure:"column_amount_ratio" yaml:"column_amount_ratio" json:"column_amount_ratio"`                   // right-side share needed for columns (0.7)
	ColumnAmountRatioTotal float64 `mapstructure:"column_amount_ratio_total" yaml:"column_amount_ratio_total" json:"column_amount_ratio_total"` // same, when a total marker is present (0.5)
	DensityRowBand         float64 `mapstructure:"density_row_band" yaml:"density_row_band" json:"density_row_band"`                            // row bin height (50)
	DensityColumnBands     int     `mapstructure:"density_column_bands" yaml:"density_column_bands" json:"density_column_bands"`                // number of column bins across the width (4)
	DensityConfidence      float64 `mapstructure:"density_confidence" yaml:"density_confidence" json:"density_confidence"`                      // confidence reported by the density signal (0.6)

	// Row processor
	RowWindowAbove   float64 `mapstructure:"row_window_above" yaml:"row_window_above" json:"row_window_above"`    // how far above a name an amount may sit (30)
	RowWindowBelow   float64 `mapstructure:"row_window_below" yaml:"row_window_below" json:"row_window_below"`    // how far below a name an amount may sit (180)
	HorizontalWeight float64 `mapstructure:"horizontal_weight" yaml:"horizontal_weight" json:"horizontal_weight"` // weight of dx against dy when ranking neighbours (0.1)
	MinNameHan       int     `mapstructure:"min_name_han" yaml:"min_name_han" json:"min_name_han"`                // Han count that makes keyword-less text a name (4)

	// Column processor
	SameRowTolerance float64 `mapstructure:"same_row_tolerance" yaml:"same_row_tolerance" json:"same_row_tolerance"` // first pass dy tolerance (60)
	NearRowTolerance float64 `mapstructure:"near_row_tolerance" yaml:"near_row_tolerance" json:"near_row_tolerance"` // widened dy tolerance (120)
	MaxNameParts     int     `mapstructure:"max_name_parts" yaml:"max_name_parts" json:"max_name_parts"`             // max regions joined into one name (3)

	// Selection
	FallbackMinCandidates int     `mapstructure:"fallback_min_candidates" yaml:"fallback_min_candidates" json:"fallback_min_candidates"` // primary results below this trigger the alternate (2)
	FallbackConfidence    float64 `mapstructure:"fallback_confidence" yaml:"fallback_confidence" json:"fallback_confidence"`             // decisions at or above this never fall back (0.8)

	// Validation and repair
	RepairWindowAbove float64 `mapstructure:"repair_window_above" yaml:"repair_window_above" json:"repair_window_above"` // page scan distance above the amount (150)
	MinNameLength     int     `mapstructure:"min_name_length" yaml:"min_name_length" json:"min_name_length"`             // runes (3)
	MaxIntegerDigits  int     `mapstructure:"max_integer_digits" yaml:"max_integer_digits" json:"max_integer_digits"`    // bare integer amounts (8)
	MinIntegerAmount  int64   `mapstructure:"min_integer_amount" yaml:"min_integer_amount" json:"min_integer_amount"`    // (1)
	MaxIntegerAmount  int64   `mapstructure:"max_integer_amount" yaml:"max_integer_amount" json:"max_integer_amount"`    // (99999999)
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MergeVerticalDistance:  50,
		MergeOverlapRatio:      0.3,
		MergeAdjacencyGap:      20,
		MinLayoutRegions:       4,
		DefaultConfidence:      0.5,
		AmountRightEdgeRatio:   0.6,
		ColumnAmountRatio:      0.7,
		ColumnAmountRatioTotal: 0.5,
		DensityRowBand:         50,
		DensityColumnBands:     4,
		DensityConfidence:      0.6,
		RowWindowAbove:         30,
		RowWindowBelow:         180,
		HorizontalWeight:       0.1,
		MinNameHan:             4,
		SameRowTolerance:       60,
		NearRowTolerance:       120,
		MaxNameParts:           3,
		FallbackMinCandidates:  2,
		FallbackConfidence:     0.8,
		RepairWindowAbove:      150,
		MinNameLength:          3,
		MaxIntegerDigits:       8,
		MinIntegerAmount:       1,
		MaxIntegerAmount:       99999999,
	}
}

type namedValue struct {
	name  string
	value float64
}

// Validate checks that the tunables are usable.
func (c Config) Validate() error {
	for _, nv := range []namedValue{
		{"merge_vertical_distance", c.MergeVerticalDistance},
		{"density_row_band", c.DensityRowBand},
		{"row_window_below", c.RowWindowBelow},
		{"same_row_tolerance", c.SameRowTolerance},
		{"near_row_tolerance", c.NearRowTolerance},
		{"repair_window_above", c.RepairWindowAbove},
	} {
		if nv.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", nv.name, nv.value)
		}
	}
	for _, nv := range []namedValue{
		{"merge_overlap_ratio", c.MergeOverlapRatio},
		{"amount_right_edge_ratio", c.AmountRightEdgeRatio},
		{"column_amount_ratio", c.ColumnAmountRatio},
		{"column_amount_ratio_total", c.ColumnAmountRatioTotal},
		{"fallback_confidence", c.FallbackConfidence},
	} {
		if nv.value < 0 || nv.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", nv.name, nv.value)
		}
	}
	if c.NearRowTolerance < c.SameRowTolerance {
		return errors.New("near_row_tolerance must not be smaller than same_row_tolerance")
	}
	if c.DensityColumnBands < 1 {
		return errors.New("density_column_bands must be at least 1")
	}
	if c.MaxNameParts < 1 {
		return errors.New("max_name_parts must be at least 1")
	}
	if c.MinNameLength < 1 {
		return errors.New("min_name_length must be at least 1")
	}
	if c.MinIntegerAmount > c.MaxIntegerAmount {
		return errors.New("min_integer_amount must not exceed max_integer_amount")
	}
	return nil
}
