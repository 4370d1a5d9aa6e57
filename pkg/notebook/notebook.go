// Package notebook defines the notebook types: the identity of a
// notebook in the repository (Unconfigured) and a notebook bound to
// one configuration of its step (Configured), plus the mapping from a
// configured notebook to a runnable task.
package notebook

import (
	"fmt"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/notebookrun"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// Suffix appended to a notebook's name for the not-yet-executed .ipynb
// written next to the executed one.
const unexecutedSuffix = "_unexecuted.ipynb"

// Unconfigured is a notebook without any configuration.
type Unconfigured struct {
	// NotebookPath is the notebook's path relative to the raw notebook
	// directory, without extension.
	NotebookPath paths.Path

	// RawNotebookExt is the extension of the raw notebook, e.g. ".py"
	// or ".md".
	RawNotebookExt string

	// Summary is a one line summary of the notebook.
	Summary string

	// Doc documents the notebook, can be longer than one line.
	Doc string
}

// BaseTask returns the group header task under which all configured
// variants of this notebook appear.
func (u Unconfigured) BaseTask() task.Task {
	return task.Task{
		Basename: fmt.Sprintf("(%s) %s", u.NotebookPath, u.Summary),
		Doc:      u.Doc,
	}
}

// Configured is a notebook bound to the configuration for one step
// config id.
type Configured struct {
	// Unconfigured is the notebook being configured.
	Unconfigured Unconfigured

	// Dependencies are paths the notebook depends on.
	Dependencies []paths.Path

	// Targets are paths the notebook creates or controls.
	Targets []paths.Path

	// ConfigFile is the hydrated config file passed to the notebook.
	ConfigFile paths.Path

	// StepConfigID selects the step configuration for this run of the
	// notebook.
	StepConfigID string

	// Parameters are extra values injected into the notebook alongside
	// config_file and step_config_id. Those two names are reserved and
	// cannot be overridden.
	Parameters map[string]string

	// Configuration holds the configuration values the notebook
	// actually uses. When set, the task re-runs only when their digest
	// changes. When nil, the task falls back to re-running whenever
	// the config file itself changes.
	Configuration []any
}

// ToTask converts the configured notebook into a task.
//
// The raw notebook is read from rootDirRawNotebooks, the unexecuted
// and executed notebooks are written to notebookOutputDir, and the
// task inherits basename and doc from baseTask. converter is required
// when Configuration is set; it serializes the configuration for
// digest-based change detection.
func (c Configured) ToTask(
	rootDirRawNotebooks paths.Path,
	notebookOutputDir paths.Path,
	baseTask task.Task,
	converter serialization.Converter,
	clean bool,
) (task.Task, error) {
	rawNotebook := rootDirRawNotebooks.Join(
		c.Unconfigured.NotebookPath.WithExt(c.Unconfigured.RawNotebookExt).String())

	notebookName := c.Unconfigured.NotebookPath.Base()
	unexecutedNotebook := notebookOutputDir.Join(notebookName + unexecutedSuffix)
	executedNotebook := notebookOutputDir.Join(notebookName + ".ipynb")

	fileDeps := make([]paths.Path, 0, len(c.Dependencies)+2)
	fileDeps = append(fileDeps, c.Dependencies...)
	fileDeps = append(fileDeps, rawNotebook)

	// Paths have to be passed as strings in the parameters.
	parameters := make(map[string]string, len(c.Parameters)+2)
	for k, v := range c.Parameters {
		parameters[k] = v
	}
	parameters["config_file"] = c.ConfigFile.String()
	parameters["step_config_id"] = c.StepConfigID

	t := task.Task{
		Basename: baseTask.Basename,
		Name:     c.StepConfigID,
		Doc:      fmt.Sprintf("%s. step_config_id='%s'", baseTask.Doc, c.StepConfigID),
		Actions: []task.Action{
			notebookrun.NewRunAction(notebookrun.Options{
				RawNotebook:        rawNotebook,
				UnexecutedNotebook: unexecutedNotebook,
				ExecutedNotebook:   executedNotebook,
				Parameters:         parameters,
			}),
		},
		Targets:  c.Targets,
		FileDeps: fileDeps,
		Clean:    clean,
	}

	if c.Configuration == nil {
		// Run whenever the config file changes.
		t.FileDeps = append(t.FileDeps, c.ConfigFile)
		return t, nil
	}

	if converter == nil {
		return task.Task{}, errors.New(errors.ErrInvalidInput,
			"a converter must be supplied when Configuration is set")
	}

	digest, err := serialization.Digest(converter, c.Configuration)
	if err != nil {
		return task.Task{}, err
	}
	t.UpToDateDigest = digest

	return t, nil
}
