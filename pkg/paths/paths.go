// Package paths provides centralized path handling for nbrun.
// It implements XDG Base Directory specification compliance for the
// tool's own files and provides the Path type used throughout the
// codebase for filesystem locations that appear in pipeline
// configuration.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvStateDir overrides the XDG state directory for nbrun
	EnvStateDir = "NBRUN_STATE_DIR"

	// EnvLogFile overrides the log file location
	EnvLogFile = "NBRUN_LOG_FILE"
)

// AppDirName is the directory name for nbrun-specific files inside the
// XDG state home. It is not user-configurable.
const AppDirName = "nbrun"

// Path is a filesystem path. Pipeline configuration structs use this
// type (rather than plain string) for every field that refers to a
// file or directory; hydration relies on the distinction to know which
// fields to prefix with the run output root.
type Path string

// String returns the path as a plain string.
func (p Path) String() string {
	return string(p)
}

// IsAbs reports whether the path is absolute.
func (p Path) IsAbs() bool {
	return filepath.IsAbs(string(p))
}

// Join appends path elements to p.
func (p Path) Join(elem ...string) Path {
	parts := append([]string{string(p)}, elem...)
	return Path(filepath.Join(parts...))
}

// Dir returns the parent directory of p.
func (p Path) Dir() Path {
	return Path(filepath.Dir(string(p)))
}

// Base returns the last element of p.
func (p Path) Base() string {
	return filepath.Base(string(p))
}

// Ext returns the file extension of p, including the dot.
func (p Path) Ext() string {
	return filepath.Ext(string(p))
}

// Stem returns the last element of p without its extension.
func (p Path) Stem() string {
	base := p.Base()
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WithExt returns p with its extension replaced by ext. A path without
// an extension simply gets ext appended. ext must include the dot.
func (p Path) WithExt(ext string) Path {
	s := string(p)
	return Path(strings.TrimSuffix(s, filepath.Ext(s)) + ext)
}

// RelativeTo returns p expressed relative to root.
func (p Path) RelativeTo(root Path) (Path, error) {
	rel, err := filepath.Rel(string(root), string(p))
	if err != nil {
		return "", err
	}
	return Path(rel), nil
}

// Abs returns the absolute form of p, resolved against the current
// working directory.
func (p Path) Abs() (Path, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", err
	}
	return Path(abs), nil
}

// StateDir returns the directory for nbrun state files (task database,
// logs). It respects NBRUN_STATE_DIR, falling back to the XDG state
// home.
func StateDir() Path {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return Path(dir)
	}
	return Path(filepath.Join(xdg.StateHome, AppDirName))
}

// LogFile returns the path of the log file, respecting NBRUN_LOG_FILE.
func LogFile() Path {
	if f := os.Getenv(EnvLogFile); f != "" {
		return Path(f)
	}
	return StateDir().Join(AppDirName + ".log")
}
