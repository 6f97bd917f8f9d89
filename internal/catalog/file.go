package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileCatalog is the on-disk layout: a shared list and per-user lists.
type fileCatalog struct {
	Assets []Asset            `json:"assets" yaml:"assets"`
	Users  map[string][]Asset `json:"users" yaml:"users"`
}

// FileStore reads catalogs from a YAML or JSON file on every Snapshot, so
// edits are picked up without a restart.
type FileStore struct {
	path string
}

// NewFileStore validates the path and returns a store reading it.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("catalog file path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog file: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Snapshot reads the file and returns the user's catalog, or the shared
// list when the user has none.
func (s *FileStore) Snapshot(_ context.Context, userID string) ([]Asset, error) {
	fc, err := readCatalogFile(s.path)
	if err != nil {
		return nil, err
	}
	if a, ok := fc.Users[userID]; ok && userID != "" {
		return clone(a), nil
	}
	return clone(fc.Assets), nil
}

// Close is a no-op.
func (s *FileStore) Close(context.Context) error { return nil }

// ReadAssets decodes a catalog file. Both a bare list of assets and the
// {assets, users} layout are accepted.
func ReadAssets(path string) ([]Asset, error) {
	fc, err := readCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return clone(fc.Assets), nil
}

func readCatalogFile(path string) (*fileCatalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided catalog file
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var fc fileCatalog
	isJSON := strings.EqualFold(filepath.Ext(path), ".json")

	var list []Asset
	if isJSON {
		if err := json.Unmarshal(data, &list); err == nil {
			return &fileCatalog{Assets: list}, nil
		}
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
		}
		return &fc, nil
	}
	if err := yaml.Unmarshal(data, &list); err == nil {
		return &fileCatalog{Assets: list}, nil
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return &fc, nil
}
