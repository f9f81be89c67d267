package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/euforicio/wikigen/internal/config"
	"github.com/euforicio/wikigen/internal/site"
)

// NewPreview returns a Server for a finished build in dir, mounted under
// cfg.BasePath the way a static host would serve it. Unknown paths get the
// build's 404.html.
func NewPreview(cfg config.Config, logger *slog.Logger, dir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "preview"),
		base:   site.NormalizeBase(cfg.BasePath),
	}
	s.mux.Handle("GET /", builtSite(dir))
	return s
}

func builtSite(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		full := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(full); err == nil {
			if !info.IsDir() || fileExists(filepath.Join(full, "index.html")) {
				files.ServeHTTP(w, r)
				return
			}
		}

		page, err := os.ReadFile(filepath.Join(dir, "404.html")) //nolint:gosec // fixed name inside the build directory
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(page)
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
