package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/euforicio/wikigen/internal/config"
	"github.com/euforicio/wikigen/internal/content/tree"
)

func newPDFCmd(cfg *config.Config) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "pdf <url-path>",
		Short: "Export one page as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger(*cfg, slog.LevelWarn)

			a, err := newApp(ctx, *cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close(logger)

			urlPath := tree.NormalizePath(args[0])
			page, ok := a.content.Snapshot().Routes.Lookup(urlPath)
			if !ok {
				return fmt.Errorf("no page at %s", urlPath)
			}

			if file == "" {
				file = "page.pdf"
				if name := path.Base(urlPath); name != "/" {
					file = name + ".pdf"
				}
			}
			var w io.Writer = cmd.OutOrStdout()
			if file != "-" {
				f, err := os.Create(file) //nolint:gosec // user-chosen output file
				if err != nil {
					return fmt.Errorf("create %s: %w", file, err)
				}
				defer f.Close()
				w = f
			}
			if err := a.pdf.Page(ctx, w, page); err != nil {
				return fmt.Errorf("export %s: %w", urlPath, err)
			}
			if file != "-" {
				logger.Info("pdf written", slog.String("path", urlPath), slog.String("file", file))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `output file, "-" for stdout (default: <last segment>.pdf)`)
	return cmd
}
