// Package notebookstep defines notebook-based workflow steps: a named
// group of notebooks plus the logic that binds them to each step
// configuration, and the generation of their tasks.
package notebookstep

import (
	"github.com/znichollscr/pydoit-nb/pkg/confighandling"
	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/notebook"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// Subdirectory of the run output under which executed notebooks land,
// further split by step name and step config id.
const executedNotebooksDir = "notebooks-executed"

// ConfigureNotebooksFunc binds the step's unconfigured notebooks to
// the configuration selected by stepConfigID. It must return one
// configured notebook per unconfigured notebook.
type ConfigureNotebooksFunc[C any] func(
	unconfigured []notebook.Unconfigured,
	bundle confighandling.Bundle[C],
	stepName string,
	stepConfigID string,
) ([]notebook.Configured, error)

// StepConfigIDsFunc lists the step config ids present in the hydrated
// configuration for this step.
type StepConfigIDsFunc[C any] func(config C) ([]string, error)

// UnconfiguredStep is a notebook-based step before any configuration
// has been applied.
type UnconfiguredStep[C any] struct {
	// Name of the step. Also the key under which the step's
	// configurations live in the config.
	Name string

	// UnconfiguredNotebooks are the notebooks that make up the step.
	UnconfiguredNotebooks []notebook.Unconfigured

	// ConfigureNotebooks binds the notebooks to one step config id.
	ConfigureNotebooks ConfigureNotebooksFunc[C]

	// StepConfigIDs lists the configured ids for this step.
	StepConfigIDs StepConfigIDsFunc[C]
}

// GenNotebookTasks generates the step's tasks: first a group header
// per notebook, then one sub-task per (notebook, step config id) pair.
// Executed notebooks are written under
// <run output>/notebooks-executed/<step>/<step config id>.
func (s UnconfiguredStep[C]) GenNotebookTasks(
	bundle confighandling.Bundle[C],
	rootDirRawNotebooks paths.Path,
	converter serialization.Converter,
	clean bool,
) ([]task.Task, error) {
	var tasks []task.Task

	baseTasks := make(map[paths.Path]task.Task, len(s.UnconfiguredNotebooks))
	for _, nb := range s.UnconfiguredNotebooks {
		base := nb.BaseTask()
		baseTasks[nb.NotebookPath] = base
		tasks = append(tasks, base)
	}

	stepConfigIDs, err := s.StepConfigIDs(bundle.ConfigHydrated)
	if err != nil {
		return nil, err
	}

	for _, stepConfigID := range stepConfigIDs {
		configured, err := s.ConfigureNotebooks(s.UnconfiguredNotebooks, bundle, s.Name, stepConfigID)
		if err != nil {
			return nil, err
		}

		if len(configured) != len(s.UnconfiguredNotebooks) {
			return nil, errors.Newf(errors.ErrTaskGenerate,
				"step %q, step_config_id %q: the number of configured notebooks (%d) "+
					"does not match the number of unconfigured notebooks (%d)",
				s.Name, stepConfigID, len(configured), len(s.UnconfiguredNotebooks))
		}

		notebookOutputDir := bundle.RootDirOutputRun.Join(executedNotebooksDir, s.Name, stepConfigID)

		for _, nb := range configured {
			base, ok := baseTasks[nb.Unconfigured.NotebookPath]
			if !ok {
				return nil, errors.Newf(errors.ErrTaskGenerate,
					"step %q: configured notebook %q is not one of the step's notebooks",
					s.Name, nb.Unconfigured.NotebookPath)
			}

			t, err := nb.ToTask(rootDirRawNotebooks, notebookOutputDir, base, converter, clean)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}

	return tasks, nil
}
