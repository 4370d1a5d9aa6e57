// Package serialization provides the converter used to move pipeline
// configuration between Go values and their on-disk form, plus the
// digest helper that drives configuration-change detection.
//
// The default converter speaks YAML. Anything else (JSON, TOML) only
// needs to satisfy Converter; the rest of the codebase never assumes a
// format.
package serialization

import (
	"crypto/md5"
	"encoding/hex"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// Converter serializes configuration values to strings and back.
//
// Dumps must be stable: serializing the same value twice yields the
// same string, so digests of the output can be compared across runs.
type Converter interface {
	Dumps(v any) (string, error)
	Loads(s string, into any) error
}

// YAMLConverter is the default Converter, backed by gopkg.in/yaml.v3.
// Map keys are emitted in sorted order, which gives Dumps the
// stability Converter requires.
type YAMLConverter struct{}

// NewYAMLConverter returns a ready-to-use YAML converter.
func NewYAMLConverter() *YAMLConverter {
	return &YAMLConverter{}
}

// Dumps serializes v as YAML.
func (c *YAMLConverter) Dumps(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrConfigParse, "serializing to yaml")
	}
	return string(out), nil
}

// Loads deserializes YAML in s into the value pointed to by into.
func (c *YAMLConverter) Loads(s string, into any) error {
	if err := yaml.Unmarshal([]byte(s), into); err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, "parsing yaml")
	}
	return nil
}

// Digest returns the hex md5 of v's stable serialization. Tasks store
// this digest so a change anywhere in a notebook's configuration
// triggers a re-run even when no file dependency changed.
func Digest(converter Converter, v any) (string, error) {
	s, err := converter.Dumps(v)
	if err != nil {
		return "", err
	}
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}

// LoadFromFile loads an instance of T from the file at path using the
// given converter.
func LoadFromFile[T any](path paths.Path, converter Converter) (T, error) {
	var out T

	raw, err := os.ReadFile(path.String())
	if err != nil {
		return out, errors.Wrapf(err, errors.ErrConfigLoad, "reading %s", path)
	}

	if err := converter.Loads(string(raw), &out); err != nil {
		return out, errors.Wrapf(err, errors.ErrConfigLoad, "loading %s", path)
	}

	return out, nil
}

// HydratedConfigBundle is the part of a config bundle this package
// needs: the hydrated config value and where it should be written.
type HydratedConfigBundle interface {
	HydratedConfig() any
	HydratedConfigPath() paths.Path
}

// WriteConfigInBundleToDisk writes a bundle's hydrated configuration
// to its hydrated-config path and returns that path.
func WriteConfigInBundleToDisk(bundle HydratedConfigBundle, converter Converter) (paths.Path, error) {
	writePath := bundle.HydratedConfigPath()

	out, err := converter.Dumps(bundle.HydratedConfig())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(writePath.Dir().String(), 0o755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "creating %s", writePath.Dir())
	}

	if err := os.WriteFile(writePath.String(), []byte(out), 0o644); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "writing %s", writePath)
	}

	return writePath, nil
}
