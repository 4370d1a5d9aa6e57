// Package checklist generates md5 checklists of output directories so
// published bundles can be verified with standard tooling (the file
// format matches md5sum's output).
package checklist

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// DefaultChecklistName is the file name used when no checklist file is
// supplied.
const DefaultChecklistName = "checklist.chk"

// ExcludeFunc reports whether a file should be left out of a
// checklist.
type ExcludeFunc func(p paths.Path) bool

// FileMD5 returns the hex md5 of the file's contents.
func FileMD5(p paths.Path) (string, error) {
	f, err := os.Open(p.String())
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "opening %s", p)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, errors.ErrChecklist, "hashing %s", p)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// MD5Dict returns a map from each file to its md5, skipping files for
// which any exclusion returns true.
func MD5Dict(files []paths.Path, exclusions ...ExcludeFunc) (map[paths.Path]string, error) {
	out := make(map[paths.Path]string, len(files))

	for _, f := range files {
		if excluded(f, exclusions) {
			continue
		}

		sum, err := FileMD5(f)
		if err != nil {
			return nil, err
		}
		out[f] = sum
	}

	return out, nil
}

// Options control checklist generation.
type Options struct {
	// ChecklistFile is where the checklist is written. Defaults to
	// <dir>/checklist.chk.
	ChecklistFile paths.Path

	// Exclusions filter files out of the checklist.
	Exclusions []ExcludeFunc
}

// GenerateDirectoryChecklist writes a checklist of the regular files
// directly inside dir (the checklist file itself is never listed) and
// returns the checklist path. Lines are `<md5>  <name>` in sorted
// order, the same format md5sum emits, so the checklist can be
// verified with `md5sum --check`.
func GenerateDirectoryChecklist(dir paths.Path, opts Options) (paths.Path, error) {
	info, err := os.Stat(dir.String())
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "checking %s", dir)
	}
	if !info.IsDir() {
		return "", errors.Newf(errors.ErrNotADir, "%s is not a directory", dir)
	}

	checklistFile := opts.ChecklistFile
	if checklistFile == "" {
		checklistFile = dir.Join(DefaultChecklistName)
	}

	entries, err := os.ReadDir(dir.String())
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrChecklist, "listing %s", dir)
	}

	var files []paths.Path
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		p := dir.Join(entry.Name())
		if p == checklistFile {
			continue
		}
		files = append(files, p)
	}

	sums, err := MD5Dict(files, opts.Exclusions...)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(sums))
	for f := range sums {
		names = append(names, f.Base())
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s  %s\n", sums[dir.Join(name)], name)
	}

	if err := os.WriteFile(checklistFile.String(), []byte(sb.String()), 0o644); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "writing %s", checklistFile)
	}

	return checklistFile, nil
}

func excluded(p paths.Path, exclusions []ExcludeFunc) bool {
	for _, exclude := range exclusions {
		if exclude(p) {
			return true
		}
	}
	return false
}
