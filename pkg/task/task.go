// Package task defines the task specification produced by the
// generation layer and consumed by the runner. The shape follows the
// classic build-tool contract: actions, file dependencies, targets and
// an optional configuration digest for change detection.
package task

import (
	"context"

	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// Action is a single unit of work inside a task.
type Action interface {
	// Describe returns a short human-readable description of the action.
	Describe() string

	// Run executes the action. It must respect ctx cancellation.
	Run(ctx context.Context) error
}

// Task is one node of the workflow.
//
// A task with an empty Name and no actions is a group header: it
// exists so related sub-tasks share a basename and documentation, and
// the runner never executes it.
type Task struct {
	// Basename groups related tasks (all configured variants of one
	// notebook share a basename).
	Basename string

	// Name distinguishes sub-tasks within a basename, typically the
	// step config id. Empty for group headers.
	Name string

	// Doc is the human-readable documentation for the task.
	Doc string

	// Actions are executed in order.
	Actions []Action

	// Targets are the files this task creates or controls.
	Targets []paths.Path

	// FileDeps are the files this task depends on. A task re-runs when
	// any of them changes.
	FileDeps []paths.Path

	// Clean marks the targets for removal by the clean operation.
	Clean bool

	// UpToDateDigest, when non-empty, is the digest of the
	// configuration driving this task. The task re-runs when the
	// stored digest differs, independent of file dependencies.
	UpToDateDigest string
}

// ID returns the stable identifier used for state bookkeeping and
// dependency edges: "basename" for group headers, "basename:name"
// otherwise.
func (t Task) ID() string {
	if t.Name == "" {
		return t.Basename
	}
	return t.Basename + ":" + t.Name
}

// IsGroup reports whether the task is a group header with nothing to
// execute.
func (t Task) IsGroup() bool {
	return len(t.Actions) == 0 && t.Name == ""
}

// FuncAction adapts a description and a function into an Action.
type FuncAction struct {
	Desc string
	Fn   func(ctx context.Context) error
}

// NewFuncAction builds a FuncAction.
func NewFuncAction(desc string, fn func(ctx context.Context) error) *FuncAction {
	return &FuncAction{Desc: desc, Fn: fn}
}

// Describe implements Action.
func (a *FuncAction) Describe() string { return a.Desc }

// Run implements Action.
func (a *FuncAction) Run(ctx context.Context) error { return a.Fn(ctx) }
