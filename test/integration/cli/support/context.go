package support

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/testutil"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand    string
	LastOutput     string
	LastStdout     string
	LastStderr     string
	LastError      error
	LastExitCode   int
	LastStartTime  time.Time
	LastDuration   time.Duration
	LastOutputFile string

	// Test environment
	WorkingDir string
	TempDir    string
	savedEnv   map[string]*string

	// Server management
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    http.Header
	LastWSMessages     []string

	// Test artifacts
	CreatedFiles []string
}

// NewTestContext creates a new test context rooted at the project directory.
func NewTestContext() (*TestContext, error) {
	workingDir, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	// Create temporary directory for test artifacts
	tempDir, err := os.MkdirTemp("", "holdscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir: workingDir,
		TempDir:    tempDir,
		savedEnv:   map[string]*string{},
	}, nil
}

// Cleanup stops the test server, restores environment variables and removes
// all temporary files created during the scenario.
func (testCtx *TestContext) Cleanup() error {
	var errors []error

	if err := testCtx.StopServer(); err != nil {
		errors = append(errors, fmt.Errorf("failed to stop server: %w", err))
	}

	for name, old := range testCtx.savedEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errors = append(errors, fmt.Errorf("failed to restore %s: %w", name, err))
		}
	}
	testCtx.savedEnv = map[string]*string{}

	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errors = append(errors, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errors = append(errors, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("cleanup errors: %v", errors)
	}
	return nil
}

// SetEnvVar sets an environment variable for the rest of the scenario. The
// previous value is restored by Cleanup.
func (testCtx *TestContext) SetEnvVar(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// TrackFile adds a file to be cleaned up after tests.
func (testCtx *TestContext) TrackFile(filename string) {
	absPath := filename
	if !filepath.IsAbs(filename) {
		absPath = filepath.Join(testCtx.WorkingDir, filename)
	}
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, absPath)
}

// tempPath returns a path inside the scenario's temp directory.
func (testCtx *TestContext) tempPath(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// resolvePath makes relative paths relative to the project root.
func (testCtx *TestContext) resolvePath(path string) string {
	path = testCtx.substituteCommandVariables(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(testCtx.WorkingDir, path)
}
