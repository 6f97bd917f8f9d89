// Package eval measures recognition accuracy against labelled pages.
package eval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"gopkg.in/yaml.v3"
)

// Dataset is a named list of labelled cases.
type Dataset struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`

	dir string
}

// Case is one page with the holdings it should produce. The page is either
// inline or a document path relative to the dataset file. Catalog, when
// set, replaces the page's own catalog.
type Case struct {
	Name     string           `yaml:"name"`
	Document string           `yaml:"document,omitempty"`
	Page     *ingest.Document `yaml:"page,omitempty"`
	Catalog  []catalog.Asset  `yaml:"catalog,omitempty"`
	Expected []Expectation    `yaml:"expected"`
}

// Expectation is one holding. An empty AssetID expects the amount to be
// reported without a catalog match.
type Expectation struct {
	AssetID string `yaml:"asset_id,omitempty"`
	Amount  string `yaml:"amount"`
}

// LoadDataset reads a YAML dataset.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided dataset path
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	ds.dir = filepath.Dir(path)
	if ds.Name == "" {
		ds.Name = filepath.Base(path)
	}
	if err := ds.validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return &ds, nil
}

func (d *Dataset) validate() error {
	if len(d.Cases) == 0 {
		return errors.New("no cases")
	}
	for i, c := range d.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i)
		}
		if (c.Document == "") == (c.Page == nil) {
			return fmt.Errorf("case %q needs exactly one of document or page", c.Name)
		}
		for _, e := range c.Expected {
			if _, ok := normalizeAmount(e.Amount); !ok {
				return fmt.Errorf("case %q: invalid expected amount %q", c.Name, e.Amount)
			}
		}
	}
	return nil
}

// document resolves the case's page.
func (d *Dataset) document(c Case) (*ingest.Document, error) {
	doc := c.Page
	if c.Document != "" {
		path := c.Document
		if !filepath.IsAbs(path) {
			path = filepath.Join(d.dir, path)
		}
		var err error
		if doc, err = ingest.DecodeFile(path); err != nil {
			return nil, err
		}
	}
	if len(c.Catalog) > 0 {
		cp := *doc
		cp.Catalog = c.Catalog
		doc = &cp
	}
	return doc, nil
}
