package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
)

// AssertExists returns an error if the path does not exist on disk.
func AssertExists(p Path) error {
	if _, err := os.Stat(string(p)); err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrFileNotFound, "%s does not exist", p)
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "checking %s", p)
	}
	return nil
}

// AssertAbsolute returns an error if the path is not absolute.
// Configuration that crosses process boundaries (notebook parameters,
// hydrated config files) must only contain absolute paths.
func AssertAbsolute(p Path) error {
	if !p.IsAbs() {
		return errors.Newf(errors.ErrInvalidInput, "%s is not absolute", p)
	}
	return nil
}

// AssertSubdirectoryOf returns an error if p does not live underneath
// root. Both paths are cleaned before comparison; neither needs to
// exist.
func AssertSubdirectoryOf(p, root Path) error {
	cleanP := filepath.Clean(string(p))
	cleanRoot := filepath.Clean(string(root))

	rel, err := filepath.Rel(cleanRoot, cleanP)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Newf(errors.ErrInvalidInput,
			"%s is not a sub-directory of %s", p, root)
	}
	return nil
}
