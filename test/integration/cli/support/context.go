package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand    string
	LastOutput     string
	LastStderr     string
	LastError      error
	LastDuration   time.Duration
	LastOutputFile string

	// Test environment
	TempDir string
	// Files maps fixture names used in steps to their paths.
	Files map[string]string

	// Server state
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a context with its own temporary directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "framescan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:         tempDir,
		Files:           map[string]string{},
		LastHTTPHeaders: map[string]string{},
	}, nil
}

// Cleanup stops the test server and removes the temporary directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []string
	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Sprintf("failed to remove temp dir: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// path returns the location of a fixture file inside the temp directory.
func (testCtx *TestContext) path(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// expand replaces {name} placeholders with fixture paths and {tmp} with the
// temporary directory.
func (testCtx *TestContext) expand(s string) string {
	s = strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
	for name, p := range testCtx.Files {
		s = strings.ReplaceAll(s, "{"+name+"}", p)
	}
	return s
}
