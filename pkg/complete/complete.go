// Package complete writes the marker file recording that a run (or a
// run's bundle) finished.
package complete

import (
	"os"
	"time"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// TimestampLayout is the format of the default marker contents.
const TimestampLayout = "20060102150405"

// WriteCompleteFile writes contents to outFile, creating parent
// directories as needed. Empty contents are replaced with the current
// time in TimestampLayout form.
func WriteCompleteFile(outFile paths.Path, contents string) error {
	if contents == "" {
		contents = time.Now().Format(TimestampLayout)
	}

	if err := os.MkdirAll(outFile.Dir().String(), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", outFile.Dir())
	}

	if err := os.WriteFile(outFile.String(), []byte(contents), 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", outFile)
	}

	return nil
}
