package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/znichollscr/pydoit-nb/pkg/config"
	"github.com/znichollscr/pydoit-nb/pkg/display"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workflow's tasks",
	Long: `List generates the workflow's task graph from the configuration file
and prints it without executing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}

		tasks, err := generateTasks(settings)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), display.RenderTaskList(tasks))
		return nil
	},
}
