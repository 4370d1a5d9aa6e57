package runner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/task"
	"github.com/znichollscr/pydoit-nb/pkg/testutil"
)

// recorder tracks execution order across tasks.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func writeFileTask(id string, target paths.Path, deps []paths.Path, rec *recorder) task.Task {
	return task.Task{
		Basename: id,
		Actions: []task.Action{
			task.NewFuncAction("write "+target.String(), func(ctx context.Context) error {
				rec.record(id)
				return writeFile(target, id)
			}),
		},
		Targets:  []paths.Path{target},
		FileDeps: deps,
		Clean:    true,
	}
}

func writeFile(p paths.Path, contents string) error {
	return os.WriteFile(p.String(), []byte(contents), 0o644)
}

func statusByID(results []Result) map[string]Status {
	out := make(map[string]Status, len(results))
	for _, res := range results {
		out[res.Task.ID()] = res.Status
	}
	return out
}

func TestRunExecutesInDependencyOrder(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	a := dir.Join("a.txt")
	b := dir.Join("b.txt")
	tasks := []task.Task{
		writeFileTask("consume", b, []paths.Path{a}, rec),
		writeFileTask("produce", a, nil, rec),
	}

	r := New(Options{Store: NewMemoryStore()})
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, []string{"produce", "consume"}, rec.order)
	assert.Equal(t, map[string]Status{
		"produce": StatusRan,
		"consume": StatusRan,
	}, statusByID(results))
}

func TestRunSkipsUpToDateTasks(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	input := testutil.CreateFile(t, dir.String(), "input.txt", "data")
	tasks := []task.Task{
		writeFileTask("process", dir.Join("out.txt"), []paths.Path{input}, rec),
	}

	r := New(Options{Store: NewMemoryStore()})

	_, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, StatusUpToDate, results[0].Status)
	assert.Equal(t, []string{"process"}, rec.order)
}

func TestRunRerunsWhenDependencyChanges(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	input := testutil.CreateFile(t, dir.String(), "input.txt", "data")
	tasks := []task.Task{
		writeFileTask("process", dir.Join("out.txt"), []paths.Path{input}, rec),
	}

	r := New(Options{Store: NewMemoryStore()})
	_, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	testutil.CreateFile(t, dir.String(), "input.txt", "changed")

	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, results[0].Status)
	assert.Equal(t, []string{"process", "process"}, rec.order)
}

func TestRunRerunsWhenDigestChanges(t *testing.T) {
	dir := paths.Path(t.TempDir())
	target := dir.Join("out.txt")

	buildTask := func(digest string) task.Task {
		return task.Task{
			Basename: "notebook",
			Actions: []task.Action{
				task.NewFuncAction("write", func(ctx context.Context) error {
					return writeFile(target, digest)
				}),
			},
			Targets:        []paths.Path{target},
			UpToDateDigest: digest,
		}
	}

	r := New(Options{Store: NewMemoryStore()})

	_, err := r.Run(context.Background(), []task.Task{buildTask("digest-one")})
	require.NoError(t, err)

	results, err := r.Run(context.Background(), []task.Task{buildTask("digest-one")})
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, results[0].Status)

	results, err = r.Run(context.Background(), []task.Task{buildTask("digest-two")})
	require.NoError(t, err)
	assert.Equal(t, StatusRan, results[0].Status)
}

func TestRunRerunsWhenTargetMissing(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	input := testutil.CreateFile(t, dir.String(), "input.txt", "data")
	target := dir.Join("out.txt")
	tasks := []task.Task{
		writeFileTask("process", target, []paths.Path{input}, rec),
	}

	r := New(Options{Store: NewMemoryStore()})
	_, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	require.NoError(t, os.Remove(target.String()))

	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, results[0].Status)
}

func TestRunTaskWithoutDepsAlwaysRuns(t *testing.T) {
	rec := &recorder{}
	tasks := []task.Task{
		{
			Basename: "always",
			Actions: []task.Action{
				task.NewFuncAction("record", func(ctx context.Context) error {
					rec.record("always")
					return nil
				}),
			},
		},
	}

	r := New(Options{Store: NewMemoryStore()})
	for i := 0; i < 3; i++ {
		results, err := r.Run(context.Background(), tasks)
		require.NoError(t, err)
		assert.Equal(t, StatusRan, results[0].Status)
	}
	assert.Len(t, rec.order, 3)
}

func TestRunFailureSkipsDependents(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	a := dir.Join("a.txt")
	failing := task.Task{
		Basename: "produce",
		Actions: []task.Action{
			task.NewFuncAction("fail", func(ctx context.Context) error {
				return fmt.Errorf("disk full")
			}),
		},
		Targets: []paths.Path{a},
	}
	dependent := writeFileTask("consume", dir.Join("b.txt"), []paths.Path{a}, rec)
	unrelated := writeFileTask("other", dir.Join("c.txt"), nil, rec)

	r := New(Options{Store: NewMemoryStore()})
	results, err := r.Run(context.Background(), []task.Task{failing, dependent, unrelated})

	testutil.AssertErrorCode(t, err, errors.ErrTaskExecute)
	statuses := statusByID(results)
	assert.Equal(t, StatusFailed, statuses["produce"])
	assert.Equal(t, StatusSkipped, statuses["consume"])
	assert.Equal(t, StatusRan, statuses["other"])
	assert.Equal(t, []string{"other"}, rec.order)
}

func TestRunDryRun(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}
	tasks := []task.Task{
		writeFileTask("process", dir.Join("out.txt"), nil, rec),
	}

	r := New(Options{Store: NewMemoryStore(), DryRun: true})
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, StatusDryRun, results[0].Status)
	assert.Empty(t, rec.order)
	assert.False(t, testutil.FileExists(t, dir.Join("out.txt")))
}

func TestRunGroupTasks(t *testing.T) {
	tasks := []task.Task{
		{Basename: "(notebooks/110_load) Load the raw data"},
	}

	r := New(Options{Store: NewMemoryStore()})
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusGroup, results[0].Status)
}

func TestRunParallelWorkers(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	var tasks []task.Task
	for i := 0; i < 8; i++ {
		tasks = append(tasks,
			writeFileTask(fmt.Sprintf("task-%d", i), dir.Join(fmt.Sprintf("%d.txt", i)), nil, rec))
	}

	r := New(Options{Store: NewMemoryStore(), Workers: 4})
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Len(t, results, 8)
	assert.Len(t, rec.order, 8)
}

func TestRunManyPairsEachTaskRunsOnce(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	const pairs = 50
	var tasks []task.Task
	for i := 0; i < pairs; i++ {
		a := dir.Join(fmt.Sprintf("a-%d.txt", i))
		tasks = append(tasks,
			writeFileTask(fmt.Sprintf("produce-%d", i), a, nil, rec),
			writeFileTask(fmt.Sprintf("consume-%d", i),
				dir.Join(fmt.Sprintf("b-%d.txt", i)), []paths.Path{a}, rec))
	}

	r := New(Options{Store: NewMemoryStore(), Workers: 8})
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, len(tasks))
	require.Len(t, rec.order, len(tasks))

	position := make(map[string]int, len(rec.order))
	for i, name := range rec.order {
		_, duplicate := position[name]
		require.Falsef(t, duplicate, "task %s ran more than once", name)
		position[name] = i
	}
	for i := 0; i < pairs; i++ {
		assert.Less(t,
			position[fmt.Sprintf("produce-%d", i)],
			position[fmt.Sprintf("consume-%d", i)])
	}
}

func TestRunDirectoryFileDep(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	tree := testutil.CreateDir(t, dir.String(), "copied-tree")
	testutil.CreateFile(t, tree.String(), "one.txt", "1")

	tasks := []task.Task{
		writeFileTask("finalise", dir.Join("checklist.chk"), []paths.Path{tree}, rec),
	}

	r := New(Options{Store: NewMemoryStore()})
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, results[0].Status)

	results, err = r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, results[0].Status)

	// A new file in the directory re-runs the dependent.
	testutil.CreateFile(t, tree.String(), "two.txt", "2")
	results, err = r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, results[0].Status)
}

func TestClean(t *testing.T) {
	dir := paths.Path(t.TempDir())
	rec := &recorder{}

	target := dir.Join("out.txt")
	input := testutil.CreateFile(t, dir.String(), "input.txt", "data")
	tasks := []task.Task{
		writeFileTask("process", target, []paths.Path{input}, rec),
	}

	store := NewMemoryStore()
	r := New(Options{Store: store})
	_, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, testutil.FileExists(t, target))

	require.NoError(t, r.Clean(context.Background(), tasks))
	assert.False(t, testutil.FileExists(t, target))

	// State is forgotten, so the next run executes again.
	results, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, results[0].Status)
}

func TestCleanLeavesUncleanableTasks(t *testing.T) {
	dir := paths.Path(t.TempDir())
	kept := testutil.CreateFile(t, dir.String(), "keep.txt", "precious")

	tasks := []task.Task{
		{Basename: "keeper", Targets: []paths.Path{kept}, Clean: false},
	}

	r := New(Options{Store: NewMemoryStore()})
	require.NoError(t, r.Clean(context.Background(), tasks))
	assert.True(t, testutil.FileExists(t, kept))
}
