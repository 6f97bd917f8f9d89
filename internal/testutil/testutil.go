// Package testutil holds helpers shared by package and integration tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetProjectRoot returns the project root directory by finding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find go.mod file starting from %s", filepath.Dir(filename))
}

// GetTestDataDir returns the path to the testdata directory.
func GetTestDataDir(t *testing.T) string {
	t.Helper()

	root, err := GetProjectRoot()
	require.NoError(t, err, "Failed to find project root")

	return filepath.Join(root, "testdata")
}

// GetPagesDir returns the directory of sample OCR pages.
func GetPagesDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(GetTestDataDir(t), "pages")
}

// GetPagePath returns the path of a sample OCR page.
func GetPagePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(GetPagesDir(t), name)
}

// CreateTempDir creates a temporary directory for testing.
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
