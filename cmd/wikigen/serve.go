package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/euforicio/wikigen/internal/buildinfo"
	"github.com/euforicio/wikigen/internal/config"
	"github.com/euforicio/wikigen/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the wiki and reload pages when content changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := newLogger(*cfg, slog.LevelWarn)
			logger.Log(ctx, slog.LevelInfo-1, "starting wikigen", slog.String("version", buildinfo.Summary()))

			a, err := newApp(ctx, *cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close(logger)

			srv, err := server.New(*cfg, logger, a.content, a.shell, a.pdf)
			if err != nil {
				return err
			}
			if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}

func newPreviewCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Serve a finished build from the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := newLogger(*cfg, slog.LevelWarn)
			srv := server.NewPreview(*cfg, logger, cfg.OutputDir)
			if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
