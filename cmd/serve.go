package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/internal/webhook"
)

// serveCmd runs the webhook server together with the reconciliation loop.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and the periodic reconciliation loop",
	Long: `Start an HTTP server receiving GitHub webhook deliveries and react to
issue comments, label changes, pull request activity and pushes.

A background loop periodically reconciles the project board against the
actual pull request state, so the board converges even when individual
deliveries are missed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := newRuntime(ctx, cmd, true)
		if err != nil {
			return err
		}

		server := webhook.NewServer(rt.cfg, rt.machine, rt.contrib)

		go runSweepLoop(ctx, rt)

		logging.Info("starting webhook server",
			"addr", rt.cfg.Bot.ListenAddr,
			"repository", rt.cfg.Bot.Repository,
			"project_number", rt.cfg.Bot.ProjectNumber)

		if err := http.ListenAndServe(rt.cfg.Bot.ListenAddr, server.Handler()); err != nil {
			return fmt.Errorf("webhook server failed: %v", err)
		}
		return nil
	},
}

// runSweepLoop runs the reconciliation sweep on a fixed interval until the
// context is cancelled. Sweep failures are logged and the loop keeps going.
func runSweepLoop(ctx context.Context, rt *runtime) {
	interval := rt.cfg.Bot.SweepInterval
	logging.Info("starting reconciliation loop", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rt.sweeper.Run(ctx); err != nil {
				logging.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}
