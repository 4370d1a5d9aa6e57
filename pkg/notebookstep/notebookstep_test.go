package notebookstep

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znichollscr/pydoit-nb/pkg/confighandling"
	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/notebook"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
	"github.com/znichollscr/pydoit-nb/pkg/testutil"
)

type stepConfig struct {
	IDs []string
}

func testBundle() confighandling.Bundle[stepConfig] {
	return confighandling.Bundle[stepConfig]{
		ConfigHydrated:     stepConfig{IDs: []string{"only-ch4", "all-gases"}},
		ConfigHydratedPath: "/run/output/workflow.yaml",
		RootDirOutputRun:   "/run/output",
		RunID:              "v1",
	}
}

func testNotebooks() []notebook.Unconfigured {
	return []notebook.Unconfigured{
		{
			NotebookPath:   "200_process/210_clean",
			RawNotebookExt: ".py",
			Summary:        "Clean the data",
			Doc:            "Cleans the data",
		},
	}
}

func configureAll(
	unconfigured []notebook.Unconfigured,
	bundle confighandling.Bundle[stepConfig],
	stepName string,
	stepConfigID string,
) ([]notebook.Configured, error) {
	out := make([]notebook.Configured, 0, len(unconfigured))
	for _, nb := range unconfigured {
		out = append(out, notebook.Configured{
			Unconfigured: nb,
			ConfigFile:   bundle.ConfigHydratedPath,
			StepConfigID: stepConfigID,
		})
	}
	return out, nil
}

func TestGenNotebookTasks(t *testing.T) {
	step := UnconfiguredStep[stepConfig]{
		Name:                  "process",
		UnconfiguredNotebooks: testNotebooks(),
		ConfigureNotebooks:    configureAll,
		StepConfigIDs: func(config stepConfig) ([]string, error) {
			return config.IDs, nil
		},
	}

	tasks, err := step.GenNotebookTasks(
		testBundle(), "/repo/notebooks", serialization.NewYAMLConverter(), true)
	require.NoError(t, err)

	// One group header plus one sub-task per step config id.
	require.Len(t, tasks, 3)

	assert.Equal(t, "(200_process/210_clean) Clean the data", tasks[0].Basename)
	assert.True(t, tasks[0].IsGroup())

	assert.Equal(t, "only-ch4", tasks[1].Name)
	assert.Equal(t, "all-gases", tasks[2].Name)

	// Executed notebooks land under the run output, split by step name
	// and step config id.
	assert.Contains(t, tasks[1].Actions[0].Describe(),
		"/run/output/notebooks-executed/process/only-ch4/210_clean.ipynb")
	assert.Contains(t, tasks[2].Actions[0].Describe(),
		"/run/output/notebooks-executed/process/all-gases/210_clean.ipynb")
}

func TestGenNotebookTasksCountMismatch(t *testing.T) {
	step := UnconfiguredStep[stepConfig]{
		Name:                  "process",
		UnconfiguredNotebooks: testNotebooks(),
		ConfigureNotebooks: func(
			unconfigured []notebook.Unconfigured,
			bundle confighandling.Bundle[stepConfig],
			stepName, stepConfigID string,
		) ([]notebook.Configured, error) {
			return nil, nil
		},
		StepConfigIDs: func(config stepConfig) ([]string, error) {
			return config.IDs, nil
		},
	}

	_, err := step.GenNotebookTasks(
		testBundle(), "/repo/notebooks", serialization.NewYAMLConverter(), true)
	testutil.AssertErrorCode(t, err, errors.ErrTaskGenerate)
}

func TestGenNotebookTasksUnknownNotebook(t *testing.T) {
	step := UnconfiguredStep[stepConfig]{
		Name:                  "process",
		UnconfiguredNotebooks: testNotebooks(),
		ConfigureNotebooks: func(
			unconfigured []notebook.Unconfigured,
			bundle confighandling.Bundle[stepConfig],
			stepName, stepConfigID string,
		) ([]notebook.Configured, error) {
			return []notebook.Configured{{
				Unconfigured: notebook.Unconfigured{NotebookPath: "not/declared"},
				ConfigFile:   bundle.ConfigHydratedPath,
				StepConfigID: stepConfigID,
			}}, nil
		},
		StepConfigIDs: func(config stepConfig) ([]string, error) {
			return config.IDs, nil
		},
	}

	_, err := step.GenNotebookTasks(
		testBundle(), "/repo/notebooks", serialization.NewYAMLConverter(), true)
	testutil.AssertErrorCode(t, err, errors.ErrTaskGenerate)
}

func TestGenNotebookTasksStepConfigIDsError(t *testing.T) {
	step := UnconfiguredStep[stepConfig]{
		Name:                  "process",
		UnconfiguredNotebooks: testNotebooks(),
		ConfigureNotebooks:    configureAll,
		StepConfigIDs: func(config stepConfig) ([]string, error) {
			return nil, fmt.Errorf("no such step")
		},
	}

	_, err := step.GenNotebookTasks(
		testBundle(), "/repo/notebooks", serialization.NewYAMLConverter(), true)
	assert.ErrorContains(t, err, "no such step")
}
