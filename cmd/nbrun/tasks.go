package main

import (
	"context"
	"os"
	"time"

	"github.com/znichollscr/pydoit-nb/pkg/checklist"
	"github.com/znichollscr/pydoit-nb/pkg/complete"
	"github.com/znichollscr/pydoit-nb/pkg/config"
	"github.com/znichollscr/pydoit-nb/pkg/confighandling"
	"github.com/znichollscr/pydoit-nb/pkg/copysource"
	"github.com/znichollscr/pydoit-nb/pkg/display"
	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/logging"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/pipeline"
	"github.com/znichollscr/pydoit-nb/pkg/serialization"
	"github.com/znichollscr/pydoit-nb/pkg/task"
	"github.com/znichollscr/pydoit-nb/pkg/taskgen"
)

// completeFileName marks a finished run inside the output bundle.
const completeFileName = "run-complete.txt"

// generateTasks loads the settings and configuration and produces the
// full task list for the run.
func generateTasks(settings config.Settings) ([]task.Task, error) {
	defer logging.LogDuration("generate tasks", time.Now())

	converter := serialization.NewYAMLConverter()
	rootDirOutputRun := settings.RootDirOutputRun()

	bundle, err := confighandling.LoadHydrateWriteConfigBundle(
		settings.ConfigurationFile,
		pipeline.LoadConfig,
		rootDirOutputRun,
		settings.RunID,
		converter,
	)
	if err != nil {
		return nil, err
	}

	tasks := []task.Task{
		display.GenShowConfigurationTask(
			os.Stdout,
			settings.ConfigurationFile,
			settings.RunID,
			settings.RootDirOutput,
			settings.RootDirRawNotebooks,
		),
	}

	repoRoot, err := paths.Path(".").Abs()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "resolving working directory")
	}

	genBundleTasks := func(preceding []task.Task) ([]task.Task, error) {
		bundleTasks, err := copysource.GenCopySourceIntoOutputTasks(preceding, copysource.Options{
			RepoRootDir:         repoRoot,
			RootDirOutputRun:    rootDirOutputRun,
			RunID:               settings.RunID,
			RootDirRawNotebooks: settings.RootDirRawNotebooks,
			ConfigFileRaw:       settings.ConfigurationFile,
		})
		if err != nil {
			return nil, err
		}

		bundleTasks = append(bundleTasks,
			genFinalizeBundleTask(rootDirOutputRun, append(preceding, bundleTasks...)))

		return bundleTasks, nil
	}

	workflowTasks, err := taskgen.GenerateAllTasks(
		bundle,
		settings.RootDirRawNotebooks,
		converter,
		bundle.ConfigHydrated.NotebookSteps(),
		genBundleTasks,
	)
	if err != nil {
		return nil, err
	}

	return append(tasks, workflowTasks...), nil
}

// genFinalizeBundleTask builds the task that seals the bundle: it
// writes the output directory's checklist and the run-complete marker.
// It depends on the targets of everything before it so it always runs
// last.
func genFinalizeBundleTask(rootDirOutputRun paths.Path, preceding []task.Task) task.Task {
	var fileDeps []paths.Path
	for _, t := range preceding {
		fileDeps = append(fileDeps, t.Targets...)
	}

	checklistFile := rootDirOutputRun.Join(checklist.DefaultChecklistName)
	completeFile := rootDirOutputRun.Join(completeFileName)

	return task.Task{
		Basename: "finalise_bundle",
		Doc:      "Write the output bundle's checklist and completion marker",
		Actions: []task.Action{
			task.NewFuncAction("write bundle checklist", func(ctx context.Context) error {
				_, err := checklist.GenerateDirectoryChecklist(rootDirOutputRun, checklist.Options{
					ChecklistFile: checklistFile,
					Exclusions: []checklist.ExcludeFunc{
						func(p paths.Path) bool { return p == completeFile },
					},
				})
				return err
			}),
			task.NewFuncAction("write completion marker", func(ctx context.Context) error {
				return complete.WriteCompleteFile(completeFile, "")
			}),
		},
		Targets:  []paths.Path{checklistFile, completeFile},
		FileDeps: fileDeps,
	}
}
