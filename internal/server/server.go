// Package server provides the live-reloading HTTP dev server for the wiki.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/euforicio/wikigen/internal/config"
	"github.com/euforicio/wikigen/internal/content"
	"github.com/euforicio/wikigen/internal/content/tree"
	"github.com/euforicio/wikigen/internal/site"
	"github.com/euforicio/wikigen/static"
)

// Server serves the content tree the way the static build lays it out,
// rendering pages on demand from the current content snapshot.
type Server struct { //nolint:govet // field order favors logical grouping over padding optimizations
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger
	content    *content.Service
	shell      *site.Shell
	pdf        *site.PDFExporter
	chromaCSS  []byte
	base       site.Base
	cfg        config.Config
}

// New constructs a Server. The shell decides the base path every route is
// mounted under; pdf may be nil to disable the export endpoint.
func New(cfg config.Config, logger *slog.Logger, contentSvc *content.Service, shell *site.Shell, pdf *site.PDFExporter) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	chroma, err := site.ChromaCSS(cfg.Style)
	if err != nil {
		return nil, fmt.Errorf("generate chroma css: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger.With("component", "http"),
		content:   contentSvc,
		shell:     shell,
		pdf:       pdf,
		chromaCSS: chroma,
		base:      shell.Base(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/tree", s.handleTree)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.HandleFunc("GET /_pdf/{path...}", s.handlePDF)
	s.mux.HandleFunc("GET /assets/chroma.css", s.handleChroma)
	s.mux.HandleFunc("GET /assets/{path...}", s.handleAsset)
	s.mux.HandleFunc("GET /", s.handlePage)
}

// Handler returns the middleware-wrapped handler mounted under the base
// path. Outside the base, "/" redirects to it and everything else is 404.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if base := s.base.String(); base != "/" {
		outer := http.NewServeMux()
		outer.Handle(base, http.StripPrefix(strings.TrimSuffix(base, "/"), s.mux))
		outer.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" || r.URL.Path+"/" == base {
				http.Redirect(w, r, base, http.StatusFound)
				return
			}
			http.NotFound(w, r)
		})
		h = outer
	}
	return chain(h,
		recoveryMiddleware,
		gzipMiddleware,
		loggingMiddleware(s.logger, s.cfg.Verbose),
	)
}

// Start runs the HTTP server and optionally opens the browser.
// The server will listen on the configured port (or allocate a dynamic port if cfg.Port is 0).
// It supports graceful shutdown when the provided context is canceled.
// The method blocks until the server stops or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	if s.cfg.Port == 0 {
		// Dynamic port allocation
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		_ = listener.Close()
		return fmt.Errorf("unexpected listener address type")
	}
	serverURL := fmt.Sprintf("http://localhost:%d%s", tcpAddr.Port, s.base)

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// WriteTimeout stays unset: /events streams for as long as the tab is open.
	}

	errCh := make(chan error, 1)
	go func() {
		if _, err := fmt.Fprintf(os.Stdout, "wikigen server listening on %s\n", serverURL); err != nil {
			s.logger.Warn("failed to announce server address", slog.String("url", serverURL), slog.Any("err", err))
		}
		errCh <- s.httpServer.Serve(listener)
	}()

	if s.cfg.AutoOpen {
		go s.openBrowserWhenReady(ctx, serverURL)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.ErrorContext(ctx, "graceful shutdown failed", slog.Any("err", err))
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the server with the provided context timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTree(w http.ResponseWriter, _ *http.Request) {
	snap := s.content.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"generatedAt": snap.Built.UTC(),
		"root":        snap.Tree,
	})
}

func (s *Server) handleChroma(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	http.ServeContent(w, r, "chroma.css", time.Time{}, bytes.NewReader(s.chromaCSS))
}

// handleAsset serves the embedded theme assets and falls back to the
// public directory, which holds /assets/icons/ among others.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	if static.Has(name) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + name
		http.FileServer(static.HTTP()).ServeHTTP(w, r2)
		return
	}
	if s.servePublic(w, r, "/assets/"+name) {
		return
	}
	s.renderNotFound(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	urlPath := tree.NormalizePath(r.URL.Path)

	page, doc, err := s.content.Document(ctx, urlPath)
	switch {
	case err == nil:
		s.render(w, http.StatusOK, s.shell.Page(s.content.Snapshot().Tree, page, doc))
		return
	case !errors.Is(err, content.ErrNotFound):
		s.logger.ErrorContext(ctx, "render page failed", slog.String("path", urlPath), slog.Any("err", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	if urlPath != "/" && s.servePublic(w, r, urlPath) {
		return
	}
	if urlPath == "/" {
		snap := s.content.Snapshot()
		if first := tree.FirstPath(snap.Tree); first != "" {
			http.Redirect(w, r, s.shell.Base().Href(first), http.StatusFound)
			return
		}
		s.render(w, http.StatusOK, s.shell.Empty(snap.Tree))
		return
	}
	s.renderNotFound(w, r)
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.pdf == nil {
		s.renderNotFound(w, r)
		return
	}
	urlPath := tree.NormalizePath(r.PathValue("path"))
	page, ok := s.content.Snapshot().Routes.Lookup(urlPath)
	if !ok {
		s.renderNotFound(w, r)
		return
	}

	// Render into memory so failures still produce a proper status code.
	var buf bytes.Buffer
	if err := s.pdf.Page(ctx, &buf, page); err != nil {
		s.logger.ErrorContext(ctx, "pdf export failed", slog.String("path", urlPath), slog.Any("err", err))
		http.Error(w, "failed to export page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfFilename(urlPath)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.WarnContext(ctx, "write pdf response failed", slog.Any("err", err))
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := s.content.Subscribe(ctx)

	if _, err := w.Write([]byte(": ready\n\n")); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := encodeJSON(evt)
			if err != nil {
				s.logger.WarnContext(ctx, "encode sse event failed", slog.Any("err", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// servePublic serves a regular file from the public directory. It reports
// false when there is no such file.
func (s *Server) servePublic(w http.ResponseWriter, r *http.Request, urlPath string) bool {
	if s.cfg.PublicDir == "" {
		return false
	}
	clean := path.Clean("/" + urlPath)
	full := filepath.Join(s.cfg.PublicDir, filepath.FromSlash(clean))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	http.ServeFile(w, r, full)
	return true
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, s.shell.NotFound(s.content.Snapshot().Tree, r.URL.Path))
}

func (s *Server) render(w http.ResponseWriter, status int, l site.Layout) {
	var buf bytes.Buffer
	if err := s.shell.Render(&buf, l); err != nil {
		s.logger.Error("render layout failed", slog.String("path", l.Path), slog.Any("err", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("write response failed", slog.String("path", l.Path), slog.Any("err", err))
	}
}

// pdfFilename derives a download name from the last path segment.
func pdfFilename(urlPath string) string {
	name := path.Base(urlPath)
	if name == "/" || name == "." {
		return "page.pdf"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '-'
		case r == '/' || r == '\\' || r == '"' || r < 0x20:
			return '_'
		}
		return r
	}, name)
	return name + ".pdf"
}

func (s *Server) openBrowserWhenReady(ctx context.Context, url string) {
	timer := time.NewTimer(300 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		if err := openBrowser(ctx, url); err != nil {
			s.logger.WarnContext(ctx, "auto-open failed", slog.String("url", url), slog.Any("err", err))
		}
	}
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	return cmd.Start()
}
