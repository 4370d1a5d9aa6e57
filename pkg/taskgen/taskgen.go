// Package taskgen assembles the full task list for a workflow run.
package taskgen

import (
	"github.com/znichollscr/pydoit-nb/pkg/confighandling"
	"github.com/znichollscr/pydoit-nb/pkg/notebookstep"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// GenBundleTasksFunc builds the trailing bundle tasks (typically the
// copy-source-into-output group) from all preceding tasks. It receives
// every task generated so far so it can depend on their targets.
type GenBundleTasksFunc func(preceding []task.Task) ([]task.Task, error)

// GenerateAllTasks generates the tasks of every step, in order, then
// appends the bundle tasks built by genBundleTasks (when non-nil).
//
// This is a helper for the common workflow shape; projects with more
// exotic layouts can call the step generation directly.
func GenerateAllTasks[C any](
	bundle confighandling.Bundle[C],
	rootDirRawNotebooks paths.Path,
	converter serialization.Converter,
	steps []notebookstep.UnconfiguredStep[C],
	genBundleTasks GenBundleTasksFunc,
) ([]task.Task, error) {
	var tasks []task.Task

	for _, step := range steps {
		stepTasks, err := step.GenNotebookTasks(bundle, rootDirRawNotebooks, converter, true)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, stepTasks...)
	}

	if genBundleTasks != nil {
		bundleTasks, err := genBundleTasks(tasks)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, bundleTasks...)
	}

	return tasks, nil
}
