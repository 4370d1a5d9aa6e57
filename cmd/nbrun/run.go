package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/znichollscr/pydoit-nb/pkg/config"
	"github.com/znichollscr/pydoit-nb/pkg/display"
	"github.com/znichollscr/pydoit-nb/pkg/logging"
	"github.com/znichollscr/pydoit-nb/pkg/runner"
)

var workers int

func init() {
	runCmd.Flags().IntVar(&workers, "workers", 0,
		"Number of tasks executed concurrently (overrides the configured value)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workflow",
	Long: `Run generates the workflow's task graph from the configuration file
and executes it. Tasks whose inputs and configuration have not changed
since the last run are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.run")

		settings, err := config.Load()
		if err != nil {
			return err
		}
		if workers > 0 {
			settings.Workers = workers
		}
		logger.Info().
			Str("runID", settings.RunID).
			Str("configurationFile", settings.ConfigurationFile.String()).
			Bool("dryRun", dryRun).
			Msg("Starting run")

		tasks, err := generateTasks(settings)
		if err != nil {
			return err
		}
		logger.Debug().Int("tasks", len(tasks)).Msg("Task graph generated")

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
			Store:   store,
			Workers: settings.Workers,
			DryRun:  dryRun,
		})

		results, runErr := r.Run(cmd.Context(), tasks)

		fmt.Fprintln(cmd.OutOrStdout(), display.RenderRunSummary(results))
		if errOut := display.RenderErrors(results); errOut != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), errOut)
		}

		return runErr
	},
}
