// Package confighandling turns a raw pipeline configuration file into
// the hydrated config bundle the rest of a run works from: paths are
// rooted under the run's output directory, the hydrated config is
// written to disk for traceability, and step configurations can be
// looked up by their step config id.
package confighandling

import (
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
)

// Bundle carries a hydrated configuration together with the run
// bookkeeping that task generation needs.
type Bundle[C any] struct {
	// ConfigHydrated is the configuration with all relative paths
	// rooted under RootDirOutputRun.
	ConfigHydrated C

	// ConfigHydratedPath is where the hydrated config is written.
	ConfigHydratedPath paths.Path

	// RootDirOutputRun is the root directory for this run's output.
	RootDirOutputRun paths.Path

	// RunID identifies the run this bundle applies to.
	RunID string
}

// HydratedConfig implements serialization.HydratedConfigBundle.
func (b Bundle[C]) HydratedConfig() any {
	return b.ConfigHydrated
}

// HydratedConfigPath implements serialization.HydratedConfigBundle.
func (b Bundle[C]) HydratedConfigPath() paths.Path {
	return b.ConfigHydratedPath
}

// LoadFunc loads a raw (not yet hydrated) configuration from a file.
type LoadFunc[C any] func(configFile paths.Path) (C, error)

// LoadHydrateWriteConfigBundle loads the configuration file, hydrates
// it by rooting relative paths under rootDirOutputRun, writes the
// hydrated config next to the run output and returns the resulting
// bundle. The hydrated config keeps the raw configuration file's name.
func LoadHydrateWriteConfigBundle[C any](
	configFile paths.Path,
	load LoadFunc[C],
	rootDirOutputRun paths.Path,
	runID string,
	converter serialization.Converter,
) (Bundle[C], error) {
	config, err := load(configFile)
	if err != nil {
		return Bundle[C]{}, err
	}

	hydrated := InsertPathPrefix(config, rootDirOutputRun)

	bundle := Bundle[C]{
		ConfigHydrated:     hydrated,
		ConfigHydratedPath: rootDirOutputRun.Join(configFile.Base()),
		RootDirOutputRun:   rootDirOutputRun,
		RunID:              runID,
	}

	if _, err := serialization.WriteConfigInBundleToDisk(bundle, converter); err != nil {
		return Bundle[C]{}, err
	}

	return bundle, nil
}
