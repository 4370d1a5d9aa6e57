// Package pipeline is the declarative front end to the workflow
// machinery. A pipeline configuration file declares named steps, each
// with its notebooks and configuration variants; this package loads,
// validates and converts it into notebook steps the task generator
// understands.
package pipeline

import (
	"github.com/znichollscr/pydoit-nb/pkg/confighandling"
	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/notebook"
	"github.com/znichollscr/pydoit-nb/pkg/notebookstep"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
)

// DefaultRawNotebookExt is used when a notebook declaration omits its
// raw extension.
const DefaultRawNotebookExt = ".py"

// Config is a declarative pipeline configuration.
type Config struct {
	// Name of the pipeline, used in display output only.
	Name string `yaml:"name"`

	// Steps, in the order their tasks are generated.
	Steps []Step `yaml:"steps"`
}

// Step is one named step of the pipeline.
type Step struct {
	Name string `yaml:"name"`

	// Notebooks that make up the step.
	Notebooks []StepNotebook `yaml:"notebooks"`

	// Variants are the step's configurations. Each variant runs every
	// notebook of the step once.
	Variants []Variant `yaml:"variants"`
}

// StepNotebook declares one notebook of a step.
type StepNotebook struct {
	// Path relative to the raw notebook directory, without extension.
	// A plain string, like the Variant.Notebooks keys: notebook paths
	// identify notebooks in the repository, they are not run outputs,
	// so hydration must not touch them.
	Path string `yaml:"path"`

	// RawNotebookExt overrides DefaultRawNotebookExt.
	RawNotebookExt string `yaml:"raw_notebook_ext"`

	Summary string `yaml:"summary"`
	Doc     string `yaml:"doc"`
}

// Variant is one configuration of a step.
type Variant struct {
	StepConfigID string `yaml:"step_config_id"`

	// Notebooks holds per-notebook wiring, keyed by notebook path.
	Notebooks map[string]VariantNotebook `yaml:"notebooks"`
}

// GetStepConfigID implements confighandling.StepConfigLike.
func (v Variant) GetStepConfigID() string {
	return v.StepConfigID
}

// VariantNotebook wires one notebook within one variant.
type VariantNotebook struct {
	// Dependencies are files the notebook reads.
	Dependencies []paths.Path `yaml:"dependencies"`

	// Targets are files the notebook writes.
	Targets []paths.Path `yaml:"targets"`

	// Parameters are extra values injected into the notebook (papermill
	// -p flags). They take part in change detection: editing a
	// parameter re-runs the notebook.
	Parameters map[string]string `yaml:"parameters"`
}

// LoadConfig reads a pipeline configuration from configFile and
// validates it. It has the shape confighandling expects of a config
// loader.
func LoadConfig(configFile paths.Path) (Config, error) {
	config, err := serialization.LoadFromFile[Config](configFile, serialization.NewYAMLConverter())
	if err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the structural invariants of the configuration:
// unique step names, unique step config ids within each step, and
// variant notebook keys that refer to declared notebooks.
func (c Config) Validate() error {
	seenSteps := map[string]bool{}
	for _, step := range c.Steps {
		if step.Name == "" {
			return errors.New(errors.ErrConfigValid, "a step is missing its name")
		}
		if seenSteps[step.Name] {
			return errors.Newf(errors.ErrConfigValid, "step %q is declared twice", step.Name)
		}
		seenSteps[step.Name] = true

		if len(step.Notebooks) == 0 {
			return errors.Newf(errors.ErrConfigValid, "step %q declares no notebooks", step.Name)
		}
		declared := map[string]bool{}
		for _, nb := range step.Notebooks {
			if nb.Path == "" {
				return errors.Newf(errors.ErrConfigValid,
					"step %q declares a notebook without a path", step.Name)
			}
			declared[nb.Path] = true
		}

		if err := confighandling.AssertUniqueStepConfigIDs(step.Variants); err != nil {
			return errors.Wrapf(err, errors.ErrConfigValid, "step %q", step.Name)
		}

		for _, variant := range step.Variants {
			if variant.StepConfigID == "" {
				return errors.Newf(errors.ErrConfigValid,
					"step %q has a variant without a step_config_id", step.Name)
			}
			for key := range variant.Notebooks {
				if !declared[key] {
					return errors.Newf(errors.ErrConfigValid,
						"step %q, variant %q: %q is not one of the step's notebooks",
						step.Name, variant.StepConfigID, key)
				}
			}
		}
	}

	return nil
}

// step returns the step named name from the configuration.
func (c Config) step(name string) (Step, error) {
	for _, step := range c.Steps {
		if step.Name == name {
			return step, nil
		}
	}
	return Step{}, errors.Newf(errors.ErrStepNotFound, "no step named %q in the configuration", name)
}

// NotebookSteps converts the pipeline into the steps the task
// generator consumes. Each step looks itself up by name in the
// hydrated configuration at generation time, so the conversion works
// on the raw configuration too.
func (c Config) NotebookSteps() []notebookstep.UnconfiguredStep[Config] {
	steps := make([]notebookstep.UnconfiguredStep[Config], 0, len(c.Steps))
	for _, s := range c.Steps {
		steps = append(steps, notebookstep.UnconfiguredStep[Config]{
			Name:                  s.Name,
			UnconfiguredNotebooks: s.unconfiguredNotebooks(),
			ConfigureNotebooks:    configureNotebooksFunc(s.Name),
			StepConfigIDs:         stepConfigIDsFunc(s.Name),
		})
	}
	return steps
}

func (s Step) unconfiguredNotebooks() []notebook.Unconfigured {
	out := make([]notebook.Unconfigured, 0, len(s.Notebooks))
	for _, nb := range s.Notebooks {
		ext := nb.RawNotebookExt
		if ext == "" {
			ext = DefaultRawNotebookExt
		}
		out = append(out, notebook.Unconfigured{
			NotebookPath:   paths.Path(nb.Path),
			RawNotebookExt: ext,
			Summary:        nb.Summary,
			Doc:            nb.Doc,
		})
	}
	return out
}

func stepConfigIDsFunc(stepName string) notebookstep.StepConfigIDsFunc[Config] {
	return func(config Config) ([]string, error) {
		step, err := config.step(stepName)
		if err != nil {
			return nil, err
		}
		return confighandling.GetStepConfigIDs(step.Variants), nil
	}
}

func configureNotebooksFunc(stepName string) notebookstep.ConfigureNotebooksFunc[Config] {
	return func(
		unconfigured []notebook.Unconfigured,
		bundle confighandling.Bundle[Config],
		_ string,
		stepConfigID string,
	) ([]notebook.Configured, error) {
		step, err := bundle.ConfigHydrated.step(stepName)
		if err != nil {
			return nil, err
		}

		variant, err := confighandling.GetConfigForStepID(step.Variants, stepName, stepConfigID)
		if err != nil {
			return nil, err
		}

		configured := make([]notebook.Configured, 0, len(unconfigured))
		for _, nb := range unconfigured {
			wiring := variant.Notebooks[nb.NotebookPath.String()]

			configured = append(configured, notebook.Configured{
				Unconfigured: nb,
				Dependencies: wiring.Dependencies,
				Targets:      wiring.Targets,
				ConfigFile:   bundle.ConfigHydratedPath,
				StepConfigID: stepConfigID,
				Parameters:   wiring.Parameters,
				// The wiring itself is the configuration the notebook
				// uses; any edit to it triggers a re-run.
				Configuration: []any{wiring},
			})
		}

		return configured, nil
	}
}
