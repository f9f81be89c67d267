package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/euforicio/wikigen/internal/config"
	"github.com/euforicio/wikigen/internal/site"
)

func newBuildCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Render every page into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := newLogger(*cfg, slog.LevelInfo)

			a, err := newApp(ctx, *cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close(logger)

			res, err := site.NewBuilder(a.content, a.shell, logger).Build(ctx, site.BuildOptions{
				OutputDir: cfg.OutputDir,
				PublicDir: cfg.PublicDir,
				Style:     cfg.Style,
				Minify:    cfg.Minify,
			})
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			for _, r := range a.content.Snapshot().Routes.Shadowed() {
				logger.Warn("route shadowed by a later page", slog.String("path", r.Path), slog.String("source", r.Page.Source))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "built %d pages into %s in %s\n", res.Pages, res.Output, res.Duration.Round(time.Millisecond))
			return err
		},
	}
}
