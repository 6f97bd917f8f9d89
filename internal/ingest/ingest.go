// Package ingest decodes OCR output into recognizer regions. Two layouts are
// accepted: the native {regions, catalog, user_id} document and pogo OCR
// results ({width, height, regions:[{polygon, box, text, rec_confidence}]},
// optionally wrapped as {"ocr": ...}).
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/utils"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for documents with no recognizable region list.
	ErrUnsupportedFormat = errors.New("unsupported OCR document format")
	// ErrNoRegions is returned when a document decodes but holds no usable region.
	ErrNoRegions = errors.New("document contains no text regions")
)

// BoundingBox is the native box layout. Centers are optional.
type BoundingBox struct {
	Left    float64  `json:"left" yaml:"left"`
	Top     float64  `json:"top" yaml:"top"`
	Right   float64  `json:"right" yaml:"right"`
	Bottom  float64  `json:"bottom" yaml:"bottom"`
	CenterX *float64 `json:"center_x,omitempty" yaml:"center_x,omitempty"`
	CenterY *float64 `json:"center_y,omitempty" yaml:"center_y,omitempty"`
}

// PogoBox is the integer x/y/w/h box emitted by pogo.
type PogoBox struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Region accepts both native and pogo region fields. Geometry is taken from
// bounding_box, then box, then polygon.
type Region struct {
	Text          string        `json:"text" yaml:"text"`
	Confidence    *float64      `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	RecConfidence *float64      `json:"rec_confidence,omitempty" yaml:"rec_confidence,omitempty"`
	BoundingBox   *BoundingBox  `json:"bounding_box,omitempty" yaml:"bounding_box,omitempty"`
	Box           *PogoBox      `json:"box,omitempty" yaml:"box,omitempty"`
	Polygon       []utils.Point `json:"polygon,omitempty" yaml:"polygon,omitempty"`
}

// Document is one page to recognize.
type Document struct {
	UserID  string          `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Width   float64         `json:"width,omitempty" yaml:"width,omitempty"`
	Height  float64         `json:"height,omitempty" yaml:"height,omitempty"`
	Regions []Region        `json:"regions" yaml:"regions"`
	Catalog []catalog.Asset `json:"catalog,omitempty" yaml:"catalog,omitempty"`
}

type envelope struct {
	Document
	OCR *Document `json:"ocr"`
}

// Decode reads a JSON document from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses a JSON document.
func DecodeBytes(data []byte) (*Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc := env.Document
	if env.OCR != nil {
		inner := *env.OCR
		if inner.UserID == "" {
			inner.UserID = doc.UserID
		}
		if len(inner.Catalog) == 0 {
			inner.Catalog = doc.Catalog
		}
		doc = inner
	}
	if doc.Regions == nil {
		return nil, ErrUnsupportedFormat
	}
	return &doc, nil
}

// DecodeFile reads a document from disk. YAML files are accepted alongside JSON.
func DecodeFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided input file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if doc.Regions == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
		}
		return &doc, nil
	}
	doc, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// TextRegions converts the document into recognizer regions. Regions
// without text or geometry are skipped.
func (d *Document) TextRegions() ([]recognizer.TextRegion, error) {
	out := make([]recognizer.TextRegion, 0, len(d.Regions))
	for _, r := range d.Regions {
		tr, ok := r.toTextRegion()
		if !ok {
			continue
		}
		out = append(out, tr)
	}
	if len(out) == 0 {
		return nil, ErrNoRegions
	}
	return out, nil
}

func (r Region) toTextRegion() (recognizer.TextRegion, bool) {
	if strings.TrimSpace(r.Text) == "" {
		return recognizer.TextRegion{}, false
	}

	conf := 1.0
	switch {
	case r.Confidence != nil:
		conf = *r.Confidence
	case r.RecConfidence != nil:
		conf = *r.RecConfidence
	}

	var box utils.Box
	var center utils.Point
	switch {
	case r.BoundingBox != nil:
		b := r.BoundingBox
		box = utils.NewBox(b.Left, b.Top, b.Right, b.Bottom)
		center = box.Center()
		if b.CenterX != nil && b.CenterY != nil {
			center = utils.Point{X: *b.CenterX, Y: *b.CenterY}
		}
	case r.Box != nil && (r.Box.W > 0 || r.Box.H > 0):
		b := r.Box
		box = utils.NewBox(float64(b.X), float64(b.Y), float64(b.X+b.W), float64(b.Y+b.H))
		center = box.Center()
	case len(r.Polygon) > 0:
		box = utils.BoundingBox(r.Polygon)
		center = box.Center()
	default:
		return recognizer.TextRegion{}, false
	}

	return recognizer.TextRegion{Text: r.Text, Confidence: conf, Box: box, Center: center}, true
}

// Assets returns the inline catalog when the document carries one and
// otherwise a snapshot from store for the document's user.
func (d *Document) Assets(ctx context.Context, store catalog.Store) ([]catalog.Asset, error) {
	if len(d.Catalog) > 0 {
		return d.Catalog, nil
	}
	if store == nil {
		return nil, nil
	}
	assets, err := store.Snapshot(ctx, d.UserID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	return assets, nil
}

// FromTextRegions builds a native document, used when exporting fixtures.
func FromTextRegions(regions []recognizer.TextRegion, assets []catalog.Asset) *Document {
	doc := &Document{Regions: make([]Region, 0, len(regions)), Catalog: assets}
	for _, tr := range regions {
		conf := tr.Confidence
		cx, cy := tr.Center.X, tr.Center.Y
		doc.Regions = append(doc.Regions, Region{
			Text:       tr.Text,
			Confidence: &conf,
			BoundingBox: &BoundingBox{
				Left: tr.Box.Left, Top: tr.Box.Top, Right: tr.Box.Right, Bottom: tr.Box.Bottom,
				CenterX: &cx, CenterY: &cy,
			},
		})
	}
	return doc
}
