// Package runner executes task graphs incrementally. Tasks whose
// recorded state still matches their file dependencies and digest are
// skipped, everything else runs in dependency order across a worker
// pool.
package runner

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/znichollscr/pydoit-nb/pkg/checklist"
	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/logging"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// Status describes what the runner did with one task.
type Status string

const (
	StatusRan      Status = "ran"
	StatusUpToDate Status = "up-to-date"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusDryRun   Status = "dry-run"
	StatusGroup    Status = "group"
)

// Result is the outcome of one task.
type Result struct {
	Task     task.Task
	Status   Status
	Err      error
	Duration time.Duration
}

// Options configure a Runner.
type Options struct {
	// Store persists task state between runs. Required unless DryRun.
	Store StateStore

	// Workers is the number of tasks executed concurrently. Defaults
	// to 1.
	Workers int

	// DryRun reports what would run without executing anything.
	DryRun bool

	// Logger overrides the default component logger.
	Logger *zerolog.Logger
}

// Runner executes tasks.
type Runner struct {
	store   StateStore
	workers int
	dryRun  bool
	logger  zerolog.Logger
}

// New creates a Runner from options.
func New(opts Options) *Runner {
	logger := logging.GetLogger("runner")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}

	return &Runner{
		store:   store,
		workers: workers,
		dryRun:  opts.DryRun,
		logger:  logger,
	}
}

// Run executes the tasks, honouring their dependency order. It returns
// one Result per task, in execution order. Execution continues past
// failures, but every task downstream of a failed task is skipped.
func (r *Runner) Run(ctx context.Context, tasks []task.Task) ([]Result, error) {
	graph, err := BuildGraph(tasks)
	if err != nil {
		return nil, err
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []Result
		failed  = make(map[string]bool)
	)

	// remaining counts unfinished dependencies per task; a task is
	// dispatched once its count hits zero.
	remaining := make(map[string]int, len(order))
	for _, id := range order {
		remaining[id] = len(graph.nodes[id].deps)
	}

	ready := make(chan string, len(order))
	done := make(chan struct{})
	var pending sync.WaitGroup

	finish := func(id string, res Result) {
		mu.Lock()
		results = append(results, res)
		if res.Status == StatusFailed || res.Status == StatusSkipped {
			failed[id] = true
		}
		for depID := range graph.nodes[id].dependents {
			remaining[depID]--
			if remaining[depID] == 0 {
				ready <- depID
			}
		}
		mu.Unlock()
		pending.Done()
	}

	worker := func() {
		for {
			select {
			case <-done:
				return
			case id := <-ready:
				n := graph.nodes[id]

				mu.Lock()
				blocked := false
				for depID := range n.deps {
					if failed[depID] {
						blocked = true
						break
					}
				}
				mu.Unlock()

				if blocked {
					r.logger.Warn().Str("task", id).Msg("skipping task, a dependency failed")
					finish(id, Result{Task: n.task, Status: StatusSkipped})
					continue
				}

				finish(id, r.runOne(ctx, n.task))
			}
		}
	}

	// Enqueue the initially-ready tasks before any worker starts, so
	// nothing decrements the remaining counts while they are read.
	pending.Add(len(order))
	for _, id := range order {
		if remaining[id] == 0 {
			ready <- id
		}
	}
	for i := 0; i < r.workers; i++ {
		go worker()
	}

	pending.Wait()
	close(done)

	for _, res := range results {
		if res.Status == StatusFailed {
			return results, errors.Newf(errors.ErrTaskExecute,
				"%d of %d tasks failed", countStatus(results, StatusFailed), len(results))
		}
	}

	return results, nil
}

func countStatus(results []Result, status Status) int {
	n := 0
	for _, res := range results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// runOne executes a single task, consulting and updating the state
// store.
func (r *Runner) runOne(ctx context.Context, t task.Task) Result {
	id := t.ID()
	logger := r.logger.With().Str("task", id).Logger()

	if t.IsGroup() {
		logger.Debug().Msg("group task, nothing to execute")
		return Result{Task: t, Status: StatusGroup}
	}

	upToDate, err := r.isUpToDate(ctx, t)
	if err != nil {
		logger.Error().Err(err).Msg("up-to-date check failed")
		return Result{Task: t, Status: StatusFailed, Err: err}
	}
	if upToDate {
		logger.Info().Msg("up to date")
		return Result{Task: t, Status: StatusUpToDate}
	}

	if r.dryRun {
		logger.Info().Msg("would run")
		return Result{Task: t, Status: StatusDryRun}
	}

	start := time.Now()
	for _, action := range t.Actions {
		logger.Debug().Str("action", action.Describe()).Msg("running action")
		if err := action.Run(ctx); err != nil {
			logger.Error().Err(err).Str("action", action.Describe()).Msg("task failed")
			return Result{
				Task:     t,
				Status:   StatusFailed,
				Err:      errors.Wrapf(err, errors.ErrTaskExecute, "task %s", id),
				Duration: time.Since(start),
			}
		}
	}
	duration := time.Since(start)

	if err := r.saveState(ctx, t); err != nil {
		logger.Error().Err(err).Msg("saving task state failed")
		return Result{Task: t, Status: StatusFailed, Err: err, Duration: duration}
	}

	logger.Info().Dur("duration", duration).Msg("task complete")
	return Result{Task: t, Status: StatusRan, Duration: duration}
}

// isUpToDate reports whether a task can be skipped. A task with no
// file dependencies and no digest always runs.
func (r *Runner) isUpToDate(ctx context.Context, t task.Task) (bool, error) {
	if len(t.FileDeps) == 0 && t.UpToDateDigest == "" {
		return false, nil
	}

	state, found, err := r.store.Get(ctx, t.ID())
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if state.Digest != t.UpToDateDigest {
		return false, nil
	}

	for _, dep := range t.FileDeps {
		recorded, ok := state.FileDeps[dep.String()]
		if !ok {
			return false, nil
		}
		current, err := fileDepDigest(dep)
		if err != nil {
			// A missing or unreadable dependency means the task has to
			// run again (and will surface the real problem itself).
			if errors.IsErrorCode(err, errors.ErrFileAccess) {
				return false, nil
			}
			return false, err
		}
		if current != recorded {
			return false, nil
		}
	}

	for _, target := range t.Targets {
		if _, err := os.Stat(target.String()); err != nil {
			return false, nil
		}
	}

	return true, nil
}

// saveState records the task's file dependency digests so the next run
// can skip it.
func (r *Runner) saveState(ctx context.Context, t task.Task) error {
	state := TaskState{
		FileDeps: make(map[string]string, len(t.FileDeps)),
		Digest:   t.UpToDateDigest,
	}

	for _, dep := range t.FileDeps {
		sum, err := fileDepDigest(dep)
		if err != nil {
			return err
		}
		state.FileDeps[dep.String()] = sum
	}

	return r.store.Put(ctx, t.ID(), state)
}

// fileDepDigest fingerprints one file dependency. Regular files hash
// their contents. Directories (copy-tree targets can be file deps of
// downstream tasks) hash the sorted list of files they contain, so
// adding or removing a file re-runs dependents.
func fileDepDigest(p paths.Path) (string, error) {
	info, err := os.Stat(p.String())
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "checking %s", p)
	}
	if !info.IsDir() {
		return checklist.FileMD5(p)
	}

	var names []string
	err = filepath.WalkDir(p.String(), func(entry string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			rel, relErr := filepath.Rel(p.String(), entry)
			if relErr != nil {
				return relErr
			}
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "listing %s", p)
	}
	sort.Strings(names)

	h := md5.New()
	for _, name := range names {
		io.WriteString(h, name)
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
