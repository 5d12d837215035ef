package cmd

import (
	"github.com/spf13/cobra"

	"github.com/danielolaszy/boardbot/internal/logging"
)

// renderCmd regenerates the contributors table in the README.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Regenerate the contributors table in the README",
	Long: `Read the contributors file from the repository, render it as an HTML
table and commit the updated README when the rendered table changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := newRuntime(ctx, cmd, false)
		if err != nil {
			return err
		}

		logging.Info("rendering contributors table",
			"repository", rt.cfg.Bot.Repository)

		return rt.contrib.SyncReadme(ctx)
	},
}
