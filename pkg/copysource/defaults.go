package copysource

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// GetRunCommandFunc infers the command a bundle user should run to
// reproduce the outputs.
type GetRunCommandFunc func(configFileRaw paths.Path, rawRunInstruction string) string

// GetRunCommandDefault prefixes the raw run instruction with the
// environment variable selecting the raw (portable) configuration
// file.
func GetRunCommandDefault(configFileRaw paths.Path, rawRunInstruction string) string {
	return fmt.Sprintf("NBRUN_CONFIGURATION_FILE=%s %s", configFileRaw, rawRunInstruction)
}

// CopyReadmeDefault copies the README into the bundle, appending a
// footer that records the run id and how to re-run the analysis from
// the bundle. The README must contain rawRunInstruction: if it does
// not, the injected instructions are probably wrong, so this errors
// instead of writing a misleading bundle.
//
// configFileRaw must be relative so the footer stays portable.
func CopyReadmeDefault(
	inPath, outPath paths.Path,
	runID string,
	configFileRaw paths.Path,
	rawRunInstruction string,
	getRunCommand GetRunCommandFunc,
) error {
	if getRunCommand == nil {
		getRunCommand = GetRunCommandDefault
	}

	if configFileRaw.IsAbs() {
		return errors.Newf(errors.ErrInvalidInput,
			"configFileRaw must be a relative path, received: %s", configFileRaw)
	}

	raw, err := os.ReadFile(inPath.String())
	if err != nil {
		return errors.Wrapf(err, errors.ErrBundleCopy, "reading %s", inPath)
	}

	if !strings.Contains(string(raw), rawRunInstruction) {
		return errors.Newf(errors.ErrBundleCopy,
			"could not find the expected run instructions in the README, "+
				"the injected run instructions probably won't be correct. "+
				"Expected run instruction: %s", rawRunInstruction)
	}

	footer := fmt.Sprintf(`
## Bundle info

This README was created from the raw %s file as part of the %q run.
The bundle should contain everything required to reproduce the outputs.

If you are looking to re-run the analysis, you should run the below

`+"```sh\n%s\n```"+`

The reason for this is that you want to use the configuration with relative
paths. The configuration file included in this bundle contains absolute paths
for reproducibility and traceability reasons. Such absolute paths are not
portable, so re-runs need the raw configuration file above, exactly as it was
used in the original run.

If you have any issues running the analysis, please make an issue in our code
repository or reach out via email.
`, inPath.Base(), runID, getRunCommand(configFileRaw, rawRunInstruction))

	out := append([]byte{}, raw...)
	out = append(out, []byte(footer)...)

	if err := os.WriteFile(outPath.String(), out, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", outPath)
	}

	return nil
}

// CopyMetadataDefault copies an archive metadata JSON file (zenodo.json
// style) into the bundle, rewriting metadata.version on the way.
func CopyMetadataDefault(inPath, outPath paths.Path, version string) error {
	raw, err := os.ReadFile(inPath.String())
	if err != nil {
		return errors.Wrapf(err, errors.ErrBundleCopy, "reading %s", inPath)
	}

	if !gjson.GetBytes(raw, "metadata").Exists() {
		return errors.Newf(errors.ErrBundleCopy,
			"%s has no \"metadata\" object to write the version into", inPath)
	}

	updated, err := sjson.SetBytes(raw, "metadata.version", version)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBundleCopy, "setting version in %s", inPath)
	}

	if err := os.WriteFile(outPath.String(), updated, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", outPath)
	}

	return nil
}

// CopyFileDefault copies a single file, preserving its mode.
func CopyFileDefault(inPath, outPath paths.Path) error {
	in, err := os.Open(inPath.String())
	if err != nil {
		return errors.Wrapf(err, errors.ErrBundleCopy, "opening %s", inPath)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.ErrBundleCopy, "checking %s", inPath)
	}

	if err := os.MkdirAll(outPath.Dir().String(), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", outPath.Dir())
	}

	out, err := os.OpenFile(outPath.String(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "creating %s", outPath)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, errors.ErrBundleCopy, "copying %s to %s", inPath, outPath)
	}

	return out.Close()
}

// Names and suffixes never copied into a bundle.
var treeIgnoreNames = map[string]bool{
	".git":               true,
	"__pycache__":        true,
	".ipynb_checkpoints": true,
}

// CopyTreeDefault recursively copies a file tree, skipping VCS
// directories and notebook/python artifacts. Existing directories in
// the destination are reused.
func CopyTreeDefault(inPath, outPath paths.Path) error {
	root := inPath.String()

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrBundleCopy, "walking %s", p)
		}

		if treeIgnoreNames[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".pyc") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return errors.Wrapf(err, errors.ErrBundleCopy, "relating %s to %s", p, root)
		}
		dest := outPath.Join(rel)

		if d.IsDir() {
			if err := os.MkdirAll(dest.String(), 0o755); err != nil {
				return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", dest)
			}
			return nil
		}

		return CopyFileDefault(paths.Path(p), dest)
	})
}
