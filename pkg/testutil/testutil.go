// Package testutil provides small helpers shared across test suites:
// filesystem scaffolding and error-code assertions.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// CreateFile creates a file with the given content in dir, creating
// parent directories as needed. It fails the test if the file cannot
// be created.
func CreateFile(t *testing.T, dir, name, content string) paths.Path {
	t.Helper()

	path := filepath.Join(dir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create parent directories for %s: %v", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create file %s: %v", path, err)
	}

	return paths.Path(path)
}

// CreateDir creates a directory under parent. It fails the test if the
// directory cannot be created.
func CreateDir(t *testing.T, parent, name string) paths.Path {
	t.Helper()

	path := filepath.Join(parent, name)

	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", path, err)
	}

	return paths.Path(path)
}

// ReadFile reads a file's contents, failing the test on error.
func ReadFile(t *testing.T, path paths.Path) string {
	t.Helper()

	raw, err := os.ReadFile(path.String())
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}

	return string(raw)
}

// FileExists reports whether path exists and is not a directory.
func FileExists(t *testing.T, path paths.Path) bool {
	t.Helper()

	info, err := os.Stat(path.String())
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// DirExists reports whether path exists and is a directory.
func DirExists(t *testing.T, path paths.Path) bool {
	t.Helper()

	info, err := os.Stat(path.String())
	if err != nil {
		return false
	}

	return info.IsDir()
}

// AssertErrorCode fails the test unless err carries the expected code.
func AssertErrorCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected error with code %s, got nil", code)
	}
	if got := errors.GetErrorCode(err); got != code {
		t.Fatalf("Expected error code %s, got %s (error: %v)", code, got, err)
	}
}
