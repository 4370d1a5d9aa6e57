package main

import (
	"github.com/spf13/cobra"

	"github.com/znichollscr/pydoit-nb/pkg/config"
	"github.com/znichollscr/pydoit-nb/pkg/logging"
	"github.com/znichollscr/pydoit-nb/pkg/runner"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated outputs",
	Long: `Clean removes the targets of every cleanable task in the workflow and
forgets their recorded state, so the next run starts from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.clean")

		settings, err := config.Load()
		if err != nil {
			return err
		}

		tasks, err := generateTasks(settings)
		if err != nil {
			return err
		}

		store, err := runner.OpenLemonStore(settings.DatabaseFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("Closing state database failed")
			}
		}()

		r := runner.New(runner.Options{
			Store:  store,
			DryRun: dryRun,
		})

		return r.Clean(cmd.Context(), tasks)
	},
}
