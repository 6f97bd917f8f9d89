package testutil

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/stretchr/testify/require"
)

// Row geometry used by Page.Row: the name sits on the left, the amount on
// the right, and consecutive rows are rowPitch apart.
const (
	rowTop    = 100.0
	rowPitch  = 200.0
	rowHeight = 40.0
)

// Page builds native OCR documents for tests.
type Page struct {
	doc  ingest.Document
	rows int
}

// NewPage starts an empty page.
func NewPage() *Page {
	return &Page{doc: ingest.Document{Regions: []ingest.Region{}}}
}

// User sets the document's user ID.
func (p *Page) User(id string) *Page {
	p.doc.UserID = id
	return p
}

// Text adds a region with the given box and confidence 0.95.
func (p *Page) Text(text string, left, top, right, bottom float64) *Page {
	conf := 0.95
	p.doc.Regions = append(p.doc.Regions, ingest.Region{
		Text:        text,
		Confidence:  &conf,
		BoundingBox: &ingest.BoundingBox{Left: left, Top: top, Right: right, Bottom: bottom},
	})
	return p
}

// Row adds a name/amount pair on the next row of a row-layout page.
func (p *Page) Row(name, amount string) *Page {
	top := rowTop + float64(p.rows)*rowPitch
	p.rows++
	return p.Text(name, 0, top, 300, top+rowHeight).Text(amount, 600, top, 800, top+rowHeight)
}

// Asset adds an inline catalog entry.
func (p *Page) Asset(id, name string) *Page {
	p.doc.Catalog = append(p.doc.Catalog, catalog.Asset{ID: catalog.AssetID(id), Name: name})
	return p
}

// Document returns a copy of the built document.
func (p *Page) Document() *ingest.Document {
	doc := p.doc
	doc.Regions = append([]ingest.Region(nil), p.doc.Regions...)
	doc.Catalog = append([]catalog.Asset(nil), p.doc.Catalog...)
	return &doc
}

// JSON encodes the page.
func (p *Page) JSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(p.Document())
	require.NoError(t, err)
	return data
}

// WriteFile writes the page as JSON to dir/name and returns the path.
func (p *Page) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, string(p.JSON(t)))
}
