// Package config loads runtime settings for a run. Settings are
// layered: built-in defaults, then an optional nbrun.toml in the
// working directory, then NBRUN_* environment variables.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the prefix for environment variable overrides, e.g.
// NBRUN_CONFIGURATION_FILE.
const EnvPrefix = "NBRUN_"

// ConfigFileName is the optional settings file looked up in the
// working directory.
const ConfigFileName = "nbrun.toml"

// Settings are the runtime settings for a run.
type Settings struct {
	// RunID identifies the run. Defaults to a timestamp.
	RunID string `koanf:"run_id"`

	// ConfigurationFile is the workflow configuration to run.
	ConfigurationFile paths.Path `koanf:"configuration_file"`

	// RootDirOutput is the directory run outputs are written under.
	// Each run writes into <RootDirOutput>/<RunID>.
	RootDirOutput paths.Path `koanf:"root_dir_output"`

	// RootDirRawNotebooks is the directory holding the raw notebooks.
	RootDirRawNotebooks paths.Path `koanf:"root_dir_raw_notebooks"`

	// Workers is the number of tasks executed concurrently.
	Workers int `koanf:"workers"`

	// DatabaseFile holds the run's task state. Defaults to
	// .nbrun_<run_id>.db under RootDirOutput.
	DatabaseFile paths.Path `koanf:"database_file"`
}

// RootDirOutputRun is the output directory for this run.
func (s Settings) RootDirOutputRun() paths.Path {
	return s.RootDirOutput.Join(s.RunID)
}

// Load reads the settings, layering defaults, the optional settings
// file and the environment.
func Load() (Settings, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultConfig), toml.Parser()); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigLoad, "loading default settings")
	}

	if _, err := os.Stat(ConfigFileName); err == nil {
		if err := k.Load(file.Provider(ConfigFileName), toml.Parser()); err != nil {
			return Settings{}, errors.Wrapf(err, errors.ErrConfigParse, "loading %s", ConfigFileName)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigLoad, "loading environment settings")
	}

	var settings Settings
	if err := k.Unmarshal("", &settings); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigParse, "unmarshalling settings")
	}

	return settings.withDefaults()
}

// withDefaults fills in computed defaults and makes every path
// absolute so downstream bookkeeping is unambiguous.
func (s Settings) withDefaults() (Settings, error) {
	if s.RunID == "" {
		s.RunID = time.Now().Format("20060102150405")
	}
	if s.Workers < 1 {
		s.Workers = 1
	}

	var err error
	if s.ConfigurationFile, err = s.ConfigurationFile.Abs(); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigValid, "resolving configuration_file")
	}
	if s.RootDirOutput, err = s.RootDirOutput.Abs(); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigValid, "resolving root_dir_output")
	}
	if s.RootDirRawNotebooks, err = s.RootDirRawNotebooks.Abs(); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigValid, "resolving root_dir_raw_notebooks")
	}

	if s.DatabaseFile == "" {
		s.DatabaseFile = s.RootDirOutput.Join(fmt.Sprintf(".nbrun_%s.db", s.RunID))
	} else if s.DatabaseFile, err = s.DatabaseFile.Abs(); err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrConfigValid, "resolving database_file")
	}

	return s, nil
}
