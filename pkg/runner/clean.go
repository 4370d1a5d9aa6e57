package runner

import (
	"context"
	"os"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// Clean removes the targets of every cleanable task and forgets its
// recorded state, so the next run starts fresh. Targets that do not
// exist are ignored.
func (r *Runner) Clean(ctx context.Context, tasks []task.Task) error {
	for _, t := range tasks {
		if !t.Clean {
			continue
		}

		id := t.ID()
		for _, target := range t.Targets {
			if r.dryRun {
				r.logger.Info().Str("task", id).Str("target", target.String()).Msg("would remove")
				continue
			}

			err := os.RemoveAll(target.String())
			if err != nil {
				return errors.Wrapf(err, errors.ErrTaskExecute, "removing %s", target)
			}
			r.logger.Debug().Str("task", id).Str("target", target.String()).Msg("removed target")
		}

		if r.dryRun {
			continue
		}
		if err := r.store.Forget(ctx, id); err != nil {
			return err
		}
	}

	return nil
}
