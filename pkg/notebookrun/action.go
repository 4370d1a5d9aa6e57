package notebookrun

import (
	"context"
	"fmt"
)

// RunAction adapts a notebook run into a task action.
type RunAction struct {
	Opts Options
}

// NewRunAction returns a task action that runs the notebook described
// by opts.
func NewRunAction(opts Options) *RunAction {
	return &RunAction{Opts: opts}
}

// Describe implements task.Action.
func (a *RunAction) Describe() string {
	return fmt.Sprintf("run notebook %s -> %s", a.Opts.RawNotebook, a.Opts.ExecutedNotebook)
}

// Run implements task.Action.
func (a *RunAction) Run(ctx context.Context) error {
	return RunNotebook(ctx, a.Opts)
}
