// Package main provides the wikigen command: a dev server with live reload,
// a static site build, single page PDF export and a preview server for
// finished builds.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/euforicio/wikigen/internal/buildinfo"
	"github.com/euforicio/wikigen/internal/config"
	"github.com/euforicio/wikigen/internal/content"
	"github.com/euforicio/wikigen/internal/renderer"
	"github.com/euforicio/wikigen/internal/renderer/d2"
	"github.com/euforicio/wikigen/internal/renderer/macro"
	"github.com/euforicio/wikigen/internal/site"
)

// iconsURL is where the icons directory is published, relative to the base.
const iconsURL = "/assets/icons"

func main() {
	cfg := config.Default()
	config.ApplyEnvOverrides(&cfg)

	rootCmd := &cobra.Command{
		Use:          "wikigen [command]",
		Short:        "Markdown wiki generator with a live-reloading dev server",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := config.Finalize(&cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}
	config.RegisterFlags(rootCmd.PersistentFlags(), &cfg)

	rootCmd.AddCommand(
		newServeCmd(&cfg),
		newBuildCmd(&cfg),
		newPDFCmd(&cfg),
		newPreviewCmd(&cfg),
		newVersionCmd(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Summary())
			return err
		},
	}
}

// newLogger writes text logs to stdout. Verbose runs always log at Info.
func newLogger(cfg config.Config, level slog.Level) *slog.Logger {
	if cfg.Verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger = logger.With("app", "wikigen")
	slog.SetDefault(logger)
	return logger
}

// app holds the services every command shares.
type app struct {
	content *content.Service
	shell   *site.Shell
	pdf     *site.PDFExporter
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, live bool) (*app, error) {
	diagrams, err := d2.New(ctx, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("init d2 renderer: %w", err)
	}
	assets := &macro.Assets{
		IconsDir:  cfg.IconsDir,
		IconsURL:  iconsURL,
		PublicDir: cfg.PublicDir,
	}

	rendererSvc := renderer.NewService(logger, renderer.Options{
		Assets:   assets,
		Diagrams: diagrams,
		Style:    cfg.Style,
	})
	contentSvc, err := content.NewService(ctx, cfg.ContentDir, rendererSvc, logger, content.Options{
		OrderingFile:  cfg.OrderingFile,
		IncludeHidden: cfg.IncludeHidden,
		Watch:         live,
	})
	if err != nil {
		return nil, fmt.Errorf("content service init failed: %w", err)
	}

	shell, err := site.NewShell(site.ShellOptions{
		Base:       site.NormalizeBase(cfg.BasePath),
		Assets:     assets,
		LiveReload: live,
	})
	if err != nil {
		_ = contentSvc.Close()
		return nil, err
	}

	return &app{
		content: contentSvc,
		shell:   shell,
		pdf:     site.NewPDFExporter(diagrams, logger),
	}, nil
}

func (a *app) Close(logger *slog.Logger) {
	if err := a.content.Close(); err != nil {
		logger.Error("close content service", slog.Any("err", err))
	}
}
