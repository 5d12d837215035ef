package cmd

import (
	"github.com/spf13/cobra"

	"github.com/danielolaszy/boardbot/internal/logging"
)

// sweepCmd runs one reconciliation pass and exits.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single reconciliation pass over the project board",
	Long: `Fetch every item on the project board and reconcile its status column
against the current state of its linked pull requests, then exit.

Useful for cron style deployments and for catching up after downtime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := newRuntime(ctx, cmd, true)
		if err != nil {
			return err
		}

		logging.Info("running reconciliation sweep",
			"repository", rt.cfg.Bot.Repository,
			"project_number", rt.cfg.Bot.ProjectNumber)

		return rt.sweeper.Run(ctx)
	},
}
