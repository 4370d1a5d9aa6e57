// Package copysource generates the tasks that copy a project's source
// into the run's output directory, so the output forms a standalone,
// re-runnable bundle suitable for archival upload.
package copysource

import (
	"context"
	"fmt"
	"strings"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// TaskBasename groups every copy-source task.
const TaskBasename = "copy_source_into_output"

const baseDoc = "Copy required source files into the output directory, " +
	"making it easy to create a neat bundle for uploading to an archive"

// CopyReadmeFunc copies the README into the output bundle, injecting
// run information.
type CopyReadmeFunc func(inPath, outPath paths.Path, runID string, configFileRaw paths.Path) error

// CopyMetadataFunc copies the archive metadata file into the output
// bundle, updating its version.
type CopyMetadataFunc func(inPath, outPath paths.Path, version string) error

// CopyFileFunc copies a single file.
type CopyFileFunc func(inPath, outPath paths.Path) error

// CopyTreeFunc copies a file tree.
type CopyTreeFunc func(inPath, outPath paths.Path) error

// Options configure bundle generation.
type Options struct {
	// RepoRootDir is the root of the repository, the place files are
	// copied from.
	RepoRootDir paths.Path

	// RootDirOutputRun is the run's output root, the place files are
	// copied to.
	RootDirOutputRun paths.Path

	// RunID identifies the run.
	RunID string

	// RootDirRawNotebooks is the raw notebook root; the raw notebooks
	// are copied into the bundle so it can be run standalone. Must be
	// inside RepoRootDir.
	RootDirRawNotebooks paths.Path

	// ConfigFileRaw is the raw (not hydrated) configuration file. It
	// is copied as "<stem>-raw<ext>" to avoid clashing with the
	// hydrated config of the same name.
	ConfigFileRaw paths.Path

	// Readme is the README file name. Defaults to "README.md".
	Readme string

	// ArchiveMetadataFile is the archive metadata file name. Defaults
	// to "zenodo.json".
	ArchiveMetadataFile string

	// OtherFilesToCopy are extra files to copy, relative to
	// RepoRootDir. Defaults to go.mod and go.sum.
	OtherFilesToCopy []paths.Path

	// SrcDir is the source directory copied into the bundle. Defaults
	// to "src".
	SrcDir string

	// RawRunInstruction is the run command as it appears in the
	// README. Defaults to "nbrun run".
	RawRunInstruction string

	// Overrides for the copy behaviour, mostly for tests.
	CopyReadme   CopyReadmeFunc
	CopyMetadata CopyMetadataFunc
	CopyFile     CopyFileFunc
	CopyTree     CopyTreeFunc
}

func (o *Options) applyDefaults() {
	if o.Readme == "" {
		o.Readme = "README.md"
	}
	if o.ArchiveMetadataFile == "" {
		o.ArchiveMetadataFile = "zenodo.json"
	}
	if o.OtherFilesToCopy == nil {
		o.OtherFilesToCopy = []paths.Path{"go.mod", "go.sum"}
	}
	if o.SrcDir == "" {
		o.SrcDir = "src"
	}
	if o.RawRunInstruction == "" {
		o.RawRunInstruction = "nbrun run"
	}
	if o.CopyReadme == nil {
		o.CopyReadme = func(in, out paths.Path, runID string, configFileRaw paths.Path) error {
			return CopyReadmeDefault(in, out, runID, configFileRaw, o.RawRunInstruction, nil)
		}
	}
	if o.CopyMetadata == nil {
		o.CopyMetadata = CopyMetadataDefault
	}
	if o.CopyFile == nil {
		o.CopyFile = CopyFileDefault
	}
	if o.CopyTree == nil {
		o.CopyTree = CopyTreeDefault
	}
}

type actionDef struct {
	name    string
	run     func(ctx context.Context) error
	targets []paths.Path
}

// GenCopySourceIntoOutputTasks generates the copy-source tasks. Every
// task depends on the targets of all preceding tasks, so the bundle is
// only assembled once the workflow's outputs exist.
func GenCopySourceIntoOutputTasks(preceding []task.Task, opts Options) ([]task.Task, error) {
	opts.applyDefaults()

	var allTargets []paths.Path
	for _, t := range preceding {
		allTargets = append(allTargets, t.Targets...)
	}

	if err := paths.AssertSubdirectoryOf(opts.RootDirRawNotebooks, opts.RepoRootDir); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput,
			"the raw notebooks have to live inside the repository root to be bundled")
	}
	rawNotebooksRel, err := opts.RootDirRawNotebooks.RelativeTo(opts.RepoRootDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput,
			"relating %s to %s", opts.RootDirRawNotebooks, opts.RepoRootDir)
	}
	outputDirRawNotebooks := opts.RootDirOutputRun.Join(rawNotebooksRel.String())

	configFileRawOutput := opts.RootDirOutputRun.Join(
		opts.ConfigFileRaw.Stem() + "-raw" + opts.ConfigFileRaw.Ext())
	configFileRawRel, err := configFileRawOutput.RelativeTo(opts.RootDirOutputRun)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput,
			"relating %s to %s", configFileRawOutput, opts.RootDirOutputRun)
	}

	readmeOut := opts.RootDirOutputRun.Join(opts.Readme)
	metadataOut := opts.RootDirOutputRun.Join(opts.ArchiveMetadataFile)
	srcOut := opts.RootDirOutputRun.Join(opts.SrcDir)

	actionDefs := []actionDef{
		{
			name: "copy README",
			run: func(ctx context.Context) error {
				return opts.CopyReadme(opts.RepoRootDir.Join(opts.Readme), readmeOut, opts.RunID, configFileRawRel)
			},
			targets: []paths.Path{readmeOut},
		},
		{
			name: "copy archive metadata",
			run: func(ctx context.Context) error {
				return opts.CopyMetadata(opts.RepoRootDir.Join(opts.ArchiveMetadataFile), metadataOut, opts.RunID)
			},
			targets: []paths.Path{metadataOut},
		},
	}

	otherFileDefs, err := copyFileActionDefs(opts.RepoRootDir, opts.RootDirOutputRun, opts.OtherFilesToCopy, opts.CopyFile)
	if err != nil {
		return nil, err
	}
	actionDefs = append(actionDefs, otherFileDefs...)

	actionDefs = append(actionDefs,
		actionDef{
			name: "copy raw config",
			run: func(ctx context.Context) error {
				return opts.CopyFile(opts.ConfigFileRaw, configFileRawOutput)
			},
			targets: []paths.Path{configFileRawOutput},
		},
		actionDef{
			name: "copy raw notebooks",
			run: func(ctx context.Context) error {
				return opts.CopyTree(opts.RootDirRawNotebooks, outputDirRawNotebooks)
			},
			targets: []paths.Path{outputDirRawNotebooks},
		},
		actionDef{
			name: "copy source",
			run: func(ctx context.Context) error {
				return opts.CopyTree(opts.RepoRootDir.Join(opts.SrcDir), srcOut)
			},
			targets: []paths.Path{srcOut},
		},
	)

	tasks := make([]task.Task, 0, len(actionDefs))
	for _, def := range actionDefs {
		short := make([]string, 0, len(def.targets))
		for _, t := range def.targets {
			short = append(short, ".../"+t.Base())
		}

		tasks = append(tasks, task.Task{
			Basename: TaskBasename,
			Name:     def.name,
			Doc:      fmt.Sprintf("%s. Copying in (%s)", baseDoc, strings.Join(short, ", ")),
			Actions:  []task.Action{task.NewFuncAction(def.name, def.run)},
			Targets:  def.targets,
			FileDeps: allTargets,
		})
	}

	return tasks, nil
}

// copyFileActionDefs builds the action definitions for the extra
// files. Paths must be relative (they are resolved against the repo
// root).
func copyFileActionDefs(
	repoRootDir paths.Path,
	rootDirOutputRun paths.Path,
	otherFilesToCopy []paths.Path,
	copyFile CopyFileFunc,
) ([]actionDef, error) {
	defs := make([]actionDef, 0, len(otherFilesToCopy))

	for _, file := range otherFilesToCopy {
		if file.IsAbs() {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"%s is absolute. OtherFilesToCopy must not contain absolute paths "+
					"(all paths are assumed to be relative to the repository root)", file)
		}

		file := file
		out := rootDirOutputRun.Join(file.String())
		defs = append(defs, actionDef{
			name: fmt.Sprintf("copy %s", file),
			run: func(ctx context.Context) error {
				return copyFile(repoRootDir.Join(file.String()), out)
			},
			targets: []paths.Path{out},
		})
	}

	return defs, nil
}
