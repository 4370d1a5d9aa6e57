// Package notebookrun runs a single parameterized notebook: the raw
// notebook (usually a text-format script) is rewritten to .ipynb, then
// executed with parameters injected. Both stages are delegated to
// external tools behind small interfaces, with jupytext and papermill
// as the defaults.
package notebookrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/logging"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// Rewriter converts a raw notebook into an executable .ipynb file.
type Rewriter interface {
	Rewrite(ctx context.Context, rawNotebook, unexecutedNotebook paths.Path) error
}

// Executor executes an .ipynb file with parameters, writing the
// executed notebook to a new location.
type Executor interface {
	Execute(ctx context.Context, unexecutedNotebook, executedNotebook paths.Path, parameters map[string]string) error
}

// ExecutionError is returned when a notebook fails to execute for any
// reason. It names the notebook so failures in large workflows are
// easy to locate.
type ExecutionError struct {
	Notebook paths.Path
	Err      error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed to execute: %v", e.Notebook, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// JupytextRewriter rewrites notebooks by invoking the jupytext CLI.
type JupytextRewriter struct {
	// Command is the executable to invoke. Defaults to "jupytext".
	Command string
}

// Rewrite implements Rewriter.
func (r *JupytextRewriter) Rewrite(ctx context.Context, rawNotebook, unexecutedNotebook paths.Path) error {
	logger := logging.GetLogger("notebookrun")

	command := r.Command
	if command == "" {
		command = "jupytext"
	}

	if err := paths.AssertExists(rawNotebook); err != nil {
		return err
	}

	if err := os.MkdirAll(unexecutedNotebook.Dir().String(), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", unexecutedNotebook.Dir())
	}

	args := []string{"--to", "ipynb", "--output", unexecutedNotebook.String(), rawNotebook.String()}
	logger.Info().Str("raw", rawNotebook.String()).Str("unexecuted", unexecutedNotebook.String()).
		Msg("Rewriting raw notebook")

	cmd := exec.CommandContext(ctx, command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, errors.ErrNotebookRewrite,
			"rewriting %s (output: %s)", rawNotebook, strings.TrimSpace(string(out)))
	}

	return nil
}

// PapermillExecutor executes notebooks by invoking the papermill CLI.
type PapermillExecutor struct {
	// Command is the executable to invoke. Defaults to "papermill".
	Command string
}

// Execute implements Executor.
func (e *PapermillExecutor) Execute(ctx context.Context, unexecutedNotebook, executedNotebook paths.Path, parameters map[string]string) error {
	logger := logging.GetLogger("notebookrun")

	command := e.Command
	if command == "" {
		command = "papermill"
	}

	args := []string{unexecutedNotebook.String(), executedNotebook.String()}
	for _, k := range sortedKeys(parameters) {
		args = append(args, "-p", k, parameters[k])
	}

	logger.Info().Str("notebook", unexecutedNotebook.String()).
		Str("executed", executedNotebook.String()).
		Msg("Executing notebook")

	cmd := exec.CommandContext(ctx, command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, errors.ErrNotebookExecute,
			"executing %s (output: %s)", unexecutedNotebook, strings.TrimSpace(string(out)))
	}

	return nil
}

// Options describes one notebook run.
type Options struct {
	RawNotebook        paths.Path
	UnexecutedNotebook paths.Path
	ExecutedNotebook   paths.Path
	Parameters         map[string]string

	// Rewriter and Executor override the jupytext/papermill defaults,
	// mostly in tests.
	Rewriter Rewriter
	Executor Executor
}

// RunNotebook rewrites then executes a notebook. Failures of either
// stage come back as an *ExecutionError naming the notebook.
func RunNotebook(ctx context.Context, opts Options) error {
	logger := logging.GetLogger("notebookrun")

	rewriter := opts.Rewriter
	if rewriter == nil {
		rewriter = &JupytextRewriter{}
	}
	executor := opts.Executor
	if executor == nil {
		executor = &PapermillExecutor{}
	}

	if err := rewriter.Rewrite(ctx, opts.RawNotebook, opts.UnexecutedNotebook); err != nil {
		return &ExecutionError{Notebook: opts.RawNotebook, Err: err}
	}

	executedDir := opts.ExecutedNotebook.Dir()
	if err := os.MkdirAll(executedDir.String(), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", executedDir)
	}

	if err := executor.Execute(ctx, opts.UnexecutedNotebook, opts.ExecutedNotebook, opts.Parameters); err != nil {
		logger.Error().Err(err).Str("notebook", opts.UnexecutedNotebook.String()).Msg("Notebook execution failed")
		return &ExecutionError{Notebook: opts.UnexecutedNotebook, Err: err}
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
