package testutil

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestGetPagePath(t *testing.T) {
	path := GetPagePath(t, "row_page.json")
	assert.Contains(t, path, filepath.Join("testdata", "pages", "row_page.json"))
	assert.True(t, FileExists(path))
}

func TestWriteFile_CreatesParents(t *testing.T) {
	dir := CreateTempDir(t)
	path := WriteFile(t, dir, "a/b/c.txt", "x")
	assert.True(t, FileExists(path))
	assert.True(t, DirExists(filepath.Join(dir, "a", "b")))
	assert.False(t, DirExists(path))
}

func TestPage_RoundTrip(t *testing.T) {
	dir := CreateTempDir(t)
	path := NewPage().User("u1").Row("鑫尊利28天持盈", "12,345.67").Row("招银日日金", "500.00").
		Asset("7", "鑫尊利28天持盈1号").WriteFile(t, dir, "page.json")

	doc, err := ingest.DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.UserID)
	require.Len(t, doc.Catalog, 1)

	regions, err := doc.TextRegions()
	require.NoError(t, err)
	require.Len(t, regions, 4)
	assert.InDelta(t, 100.0, regions[0].Box.Top, 1e-9)
	assert.InDelta(t, 300.0, regions[2].Box.Top, 1e-9)
	assert.InDelta(t, 600.0, regions[3].Box.Left, 1e-9)
}
