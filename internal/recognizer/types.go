package recognizer

import (
	"fmt"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/utils"
	"github.com/shopspring/decimal"
)

// TextRegion is one OCR-detected text fragment.
type TextRegion struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        utils.Box   `json:"bounding_box"`
	Center     utils.Point `json:"center"`
}

// NewTextRegion builds a region with its center derived from the box.
func NewTextRegion(text string, confidence, left, top, right, bottom float64) TextRegion {
	box := utils.NewBox(left, top, right, bottom)
	return TextRegion{Text: text, Confidence: confidence, Box: box, Center: box.Center()}
}

// Kind tags a region after classification.
type Kind int

const (
	KindIrrelevant Kind = iota
	KindContent
	KindAmount
)

func (k Kind) String() string {
	switch k {
	case KindAmount:
		return "amount"
	case KindContent:
		return "content"
	default:
		return "irrelevant"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "amount":
		*k = KindAmount
	case "content":
		*k = KindContent
	case "irrelevant":
		*k = KindIrrelevant
	default:
		return fmt.Errorf("unknown region kind %q", text)
	}
	return nil
}

// ClassifiedRegion is a TextRegion tagged with its Kind. ID is unique within
// one recognition call.
type ClassifiedRegion struct {
	ID     int             `json:"id"`
	Region TextRegion      `json:"region"`
	Text   string          `json:"text"` // cleaned
	Kind   Kind            `json:"kind"`
	Amount decimal.Decimal `json:"amount,omitzero"` // set for KindAmount
}

// PageLayout is the read-only view of one page handed to the layout stages.
type PageLayout struct {
	Regions        []ClassifiedRegion // Amount and Content regions, reading order
	Width          float64
	Height         float64
	LeftBoundary   float64 // 40% of width, a prior only
	RightBoundary  float64 // 60% of width, a prior only
	HasTotalMarker bool
}

// Amounts returns the Amount regions in page order.
func (p PageLayout) Amounts() []ClassifiedRegion { return p.ofKind(KindAmount) }

// Contents returns the Content regions in page order.
func (p PageLayout) Contents() []ClassifiedRegion { return p.ofKind(KindContent) }

func (p PageLayout) ofKind(k Kind) []ClassifiedRegion {
	var out []ClassifiedRegion
	for _, r := range p.Regions {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

// LayoutType is the page arrangement of names and amounts.
type LayoutType int

const (
	RowOriented LayoutType = iota
	ColumnOriented
)

func (t LayoutType) String() string {
	if t == ColumnOriented {
		return "column"
	}
	return "row"
}

// MarshalText renders the layout by name.
func (t LayoutType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a layout name.
func (t *LayoutType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "row":
		*t = RowOriented
	case "column":
		*t = ColumnOriented
	default:
		return fmt.Errorf("unknown layout %q", text)
	}
	return nil
}

// Alternate returns the other layout.
func (t LayoutType) Alternate() LayoutType {
	if t == ColumnOriented {
		return RowOriented
	}
	return ColumnOriented
}

// LayoutDecision is the detector's verdict.
type LayoutDecision struct {
	Type       LayoutType `json:"type"`
	Confidence float64    `json:"confidence"`
	Signal     string     `json:"signal"` // amount, density or default
}

// ProductCandidate is a provisional (name, amount) pairing.
type ProductCandidate struct {
	AmountRegion  ClassifiedRegion   `json:"amount_region"`
	Amount        decimal.Decimal    `json:"amount"`
	NameRegions   []ClassifiedRegion `json:"name_regions"`
	RawName       string             `json:"raw_name"`
	CleanedName   string             `json:"cleaned_name"`
	Confidence    float64            `json:"confidence"`
	PagePosition  float64            `json:"page_position"`
	SequenceIndex int                `json:"sequence_index"`
}

// MatchResult pairs a candidate with its best catalog entry, if any.
type MatchResult struct {
	Candidate    ProductCandidate `json:"candidate"`
	OriginalName string           `json:"original_name"`
	Amount       decimal.Decimal  `json:"amount"`
	AssetID      *catalog.AssetID `json:"asset_id"`
	AssetName    *string          `json:"asset_name"`
	Score        float64          `json:"score"`
	Confirmed    bool             `json:"confirmed"`
	Method       matcher.Method   `json:"method"`
}

// Matched reports whether a catalog entry was assigned.
func (m MatchResult) Matched() bool { return m.AssetID != nil }

// Report describes one recognition call in full.
type Report struct {
	Results       []MatchResult  `json:"results"`
	Suppressed    []MatchResult  `json:"suppressed,omitempty"`
	Layout        LayoutDecision `json:"layout"`
	Processor     LayoutType     `json:"processor"`
	FallbackTried bool           `json:"fallback_tried"`
	FallbackUsed  bool           `json:"fallback_used"`
	AmountRegions int            `json:"amount_regions"`
	Candidates    int            `json:"candidates"`
	Dropped       int            `json:"dropped"`
}

// Holding is the flat view of a MatchResult used by output formats.
type Holding struct {
	Name       string  `json:"name" yaml:"name" parquet:"name"`
	Amount     string  `json:"amount" yaml:"amount" parquet:"amount"`
	AssetID    string  `json:"asset_id,omitempty" yaml:"asset_id,omitempty" parquet:"asset_id,optional"`
	AssetName  string  `json:"asset_name,omitempty" yaml:"asset_name,omitempty" parquet:"asset_name,optional"`
	Score      float64 `json:"score" yaml:"score" parquet:"score"`
	Confirmed  bool    `json:"confirmed" yaml:"confirmed" parquet:"confirmed"`
	Method     string  `json:"method" yaml:"method" parquet:"method"`
	Confidence float64 `json:"confidence" yaml:"confidence" parquet:"confidence"`
}

// Holding flattens the result.
func (m MatchResult) Holding() Holding {
	h := Holding{
		Name:       m.OriginalName,
		Amount:     m.Amount.String(),
		Score:      m.Score,
		Confirmed:  m.Confirmed,
		Method:     string(m.Method),
		Confidence: m.Candidate.Confidence,
	}
	if m.AssetID != nil {
		h.AssetID = string(*m.AssetID)
	}
	if m.AssetName != nil {
		h.AssetName = *m.AssetName
	}
	return h
}

// Holdings flattens a result list.
func Holdings(results []MatchResult) []Holding {
	out := make([]Holding, len(results))
	for i, r := range results {
		out[i] = r.Holding()
	}
	return out
}
