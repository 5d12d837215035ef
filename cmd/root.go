// Package cmd provides the command-line interface for the board bot.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/contributors"
	"github.com/danielolaszy/boardbot/internal/github"
	"github.com/danielolaszy/boardbot/internal/linear"
	"github.com/danielolaszy/boardbot/internal/sweep"
	"github.com/danielolaszy/boardbot/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "boardbot",
	Short: "Boardbot keeps a GitHub project board and Linear in sync",
	Long: `Boardbot automates issue workflow for a GitHub repository.

It moves issues across the status column of a GitHub project board in
response to comment commands, label changes and pull request activity,
mirrors those status changes to Linear, and periodically reconciles the
board against the actual pull request state.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(renderCmd)
}

// runtime holds the wired clients shared by the subcommands.
type runtime struct {
	cfg     *config.Config
	machine *workflow.Machine
	sweeper *sweep.Sweeper
	contrib *contributors.Manager
}

// newRuntime loads configuration and connects the GitHub client. The board
// and the Linear tracker are only wired when withTracker is set; the render
// command never touches either, so it must not require their configuration.
func newRuntime(ctx context.Context, cmd *cobra.Command, withTracker bool) (*runtime, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %v", err)
	}

	gh, err := github.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize github client: %v", err)
	}

	rt := &runtime{
		cfg:     cfg,
		contrib: contributors.NewManager(gh, cfg),
	}
	if !withTracker {
		return rt, nil
	}

	projectID, err := gh.ResolveProject(ctx, cfg.Bot.ProjectNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project board: %v", err)
	}

	tracker, err := linear.NewClient(cfg, gh)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize linear client: %v", err)
	}

	rt.machine = workflow.NewMachine(gh, tracker, projectID, cfg)
	rt.sweeper = sweep.New(gh, tracker, rt.machine)
	return rt, nil
}
