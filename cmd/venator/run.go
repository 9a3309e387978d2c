package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/venator/internal/app"
	"github.com/ternarybob/venator/internal/models"
)

// runOnce executes a single product profile to completion and prints the
// markdown digest to stdout. Used for cron-driven and ad hoc runs without
// the server.
func runOnce(application *app.App, profilePath string, target int) int {
	logger := application.Logger

	profile, err := models.LoadProductProfile(profilePath)
	if err != nil {
		logger.Error().Err(err).Str("profile", profilePath).Msg("Failed to load product profile")
		return 1
	}

	req := profile.ToRequest()
	if target > 0 {
		req.Target = target
	}

	logger.Info().
		Str("profile", profile.Name).
		Int("target", req.Target).
		Msg("Starting one-shot run")

	// Ctrl+C cancels the run; the partial result still persists.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := application.RunService.StartAndWait(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Run failed to start")
		return 1
	}

	if run.Result != nil {
		fmt.Println(application.ExportService.RenderMarkdown(run.Result))
	}

	logger.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Msg("One-shot run finished")

	if run.Status != models.RunStatusCompleted {
		return 1
	}

	if application.Mailer.Enabled() {
		if err := application.Mailer.SendDigest(context.Background(), run); err != nil {
			logger.Warn().Err(err).Msg("Failed to send digest email")
		}
	}

	return 0
}
