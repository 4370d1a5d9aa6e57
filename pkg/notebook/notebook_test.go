package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/notebookrun"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
	"github.com/znichollscr/pydoit-nb/pkg/testutil"
)

func sampleUnconfigured() Unconfigured {
	return Unconfigured{
		NotebookPath:   "100_compile/110_load",
		RawNotebookExt: ".py",
		Summary:        "Load the raw data",
		Doc:            "Loads the raw data and writes it as a clean dataset",
	}
}

func TestBaseTask(t *testing.T) {
	base := sampleUnconfigured().BaseTask()

	assert.Equal(t, "(100_compile/110_load) Load the raw data", base.Basename)
	assert.Equal(t, "Loads the raw data and writes it as a clean dataset", base.Doc)
	assert.True(t, base.IsGroup())
}

func TestToTask(t *testing.T) {
	configured := Configured{
		Unconfigured: sampleUnconfigured(),
		Dependencies: []paths.Path{"/run/output/data/in.csv"},
		Targets:      []paths.Path{"/run/output/data/out.csv"},
		ConfigFile:   "/run/output/workflow.yaml",
		StepConfigID: "only-ch4",
	}

	task, err := configured.ToTask(
		"/repo/notebooks", "/run/output/notebooks-executed/compile/only-ch4",
		sampleUnconfigured().BaseTask(), nil, true)
	require.NoError(t, err)

	assert.Equal(t, "(100_compile/110_load) Load the raw data", task.Basename)
	assert.Equal(t, "only-ch4", task.Name)
	assert.Equal(t,
		"Loads the raw data and writes it as a clean dataset. step_config_id='only-ch4'",
		task.Doc)
	assert.True(t, task.Clean)
	assert.Equal(t, []paths.Path{"/run/output/data/out.csv"}, task.Targets)

	// Dependencies, the raw notebook, and (with nil Configuration) the
	// config file itself.
	assert.Equal(t, []paths.Path{
		"/run/output/data/in.csv",
		"/repo/notebooks/100_compile/110_load.py",
		"/run/output/workflow.yaml",
	}, task.FileDeps)
	assert.Empty(t, task.UpToDateDigest)

	require.Len(t, task.Actions, 1)
	assert.Contains(t, task.Actions[0].Describe(), "110_load.py")
	assert.Contains(t, task.Actions[0].Describe(),
		"/run/output/notebooks-executed/compile/only-ch4/110_load.ipynb")
}

func TestToTaskPassesParameters(t *testing.T) {
	configured := Configured{
		Unconfigured: sampleUnconfigured(),
		ConfigFile:   "/run/output/workflow.yaml",
		StepConfigID: "only-ch4",
		Parameters: map[string]string{
			"gas":            "ch4",
			"step_config_id": "overridden",
		},
	}

	task, err := configured.ToTask(
		"/repo/notebooks", "/run/output/nb", sampleUnconfigured().BaseTask(), nil, false)
	require.NoError(t, err)

	require.Len(t, task.Actions, 1)
	action, ok := task.Actions[0].(*notebookrun.RunAction)
	require.True(t, ok)

	assert.Equal(t, map[string]string{
		"gas":            "ch4",
		"config_file":    "/run/output/workflow.yaml",
		"step_config_id": "only-ch4",
	}, action.Opts.Parameters)
}

func TestToTaskWithConfigurationUsesDigest(t *testing.T) {
	configured := Configured{
		Unconfigured:  sampleUnconfigured(),
		ConfigFile:    "/run/output/workflow.yaml",
		StepConfigID:  "only-ch4",
		Configuration: []any{map[string]string{"gas": "ch4"}},
	}

	task, err := configured.ToTask(
		"/repo/notebooks", "/run/output/nb", sampleUnconfigured().BaseTask(),
		serialization.NewYAMLConverter(), false)
	require.NoError(t, err)

	assert.NotEmpty(t, task.UpToDateDigest)
	assert.NotContains(t, task.FileDeps, paths.Path("/run/output/workflow.yaml"))
	assert.False(t, task.Clean)
}

func TestToTaskConfigurationRequiresConverter(t *testing.T) {
	configured := Configured{
		Unconfigured:  sampleUnconfigured(),
		ConfigFile:    "/run/output/workflow.yaml",
		StepConfigID:  "only-ch4",
		Configuration: []any{"anything"},
	}

	_, err := configured.ToTask(
		"/repo/notebooks", "/run/output/nb", sampleUnconfigured().BaseTask(), nil, false)
	testutil.AssertErrorCode(t, err, errors.ErrInvalidInput)
}
