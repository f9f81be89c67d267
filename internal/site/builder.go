package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	minjson "github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/euforicio/wikigen/internal/content"
	"github.com/euforicio/wikigen/internal/content/tree"
	wikistatic "github.com/euforicio/wikigen/static"
)

const (
	assetsDir  = "assets"
	mimeHTML   = "text/html"
	mimeJSON   = "application/json"
	notFound   = "404.html"
	treeFile   = "tree.json"
	chromaFile = "chroma.css"
)

var minifyTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".svg":  "image/svg+xml",
	".html": mimeHTML,
	".json": mimeJSON,
}

// BuildOptions configure a static build.
type BuildOptions struct {
	// OutputDir is removed and recreated.
	OutputDir string
	// PublicDir is copied verbatim into the output root when it exists.
	PublicDir string
	// Style is the chroma style written to assets/chroma.css.
	Style string
	// Minify compresses HTML, CSS, JS, SVG and JSON output.
	Minify bool
}

// Result summarizes a finished build.
type Result struct {
	Output   string
	Pages    int
	Duration time.Duration
}

// Builder writes the whole site to disk.
type Builder struct {
	content *content.Service
	shell   *Shell
	logger  *slog.Logger
}

// NewBuilder wires a builder to a content service and page shell.
func NewBuilder(svc *content.Service, shell *Shell, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{content: svc, shell: shell, logger: logger.With("component", "builder")}
}

// Build renders every route into <out>/<path>/index.html alongside the
// assets, a redirecting root index, 404.html and tree.json.
//
//nolint:gocognit // build steps run sequentially
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (Result, error) {
	started := time.Now()
	if strings.TrimSpace(opts.OutputDir) == "" {
		return Result{}, errors.New("output directory is required")
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve output: %w", err)
	}
	if err := prepareOutputDir(out, b.content.Root()); err != nil {
		return Result{}, err
	}

	w := &siteWriter{root: out}
	if opts.Minify {
		w.min = newMinifier()
	}

	if opts.PublicDir != "" {
		if err := copyPublic(opts.PublicDir, out); err != nil {
			return Result{}, err
		}
	}
	if err := wikistatic.CopyAll(filepath.Join(out, assetsDir)); err != nil {
		return Result{}, fmt.Errorf("copy embedded assets: %w", err)
	}
	chroma, err := ChromaCSS(opts.Style)
	if err != nil {
		return Result{}, err
	}
	if err := w.write(filepath.Join(out, assetsDir, chromaFile), "text/css", chroma); err != nil {
		return Result{}, err
	}

	snap := b.content.Snapshot()
	pages := 0
	for _, route := range snap.Routes.All() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page, doc, err := b.content.Document(ctx, route.Path)
		if err != nil {
			return Result{}, fmt.Errorf("render %s: %w", route.Path, err)
		}
		var buf bytes.Buffer
		if err := b.shell.Render(&buf, b.shell.Page(snap.Tree, page, doc)); err != nil {
			return Result{}, fmt.Errorf("layout %s: %w", route.Path, err)
		}
		if err := w.write(OutputPath(out, route.Path), mimeHTML, buf.Bytes()); err != nil {
			return Result{}, err
		}
		pages++
	}

	if err := b.writeRoot(w, snap); err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if err := b.shell.Render(&buf, b.shell.NotFound(snap.Tree, "/404")); err != nil {
		return Result{}, fmt.Errorf("layout 404: %w", err)
	}
	if err := w.write(filepath.Join(out, notFound), mimeHTML, buf.Bytes()); err != nil {
		return Result{}, err
	}
	if err := writeTreeJSON(w, snap); err != nil {
		return Result{}, err
	}
	if w.min != nil {
		if err := w.minifyTree(filepath.Join(out, assetsDir)); err != nil {
			return Result{}, err
		}
	}

	res := Result{Output: out, Pages: pages, Duration: time.Since(started)}
	b.logger.Info("build complete",
		slog.Int("pages", res.Pages),
		slog.String("output", res.Output),
		slog.String("base", b.shell.Base().String()),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// writeRoot redirects the site root to the first top-level entry. Sites
// without pages get a placeholder instead.
func (b *Builder) writeRoot(w *siteWriter, snap *content.Snapshot) error {
	dest := filepath.Join(w.root, "index.html")
	if _, ok := snap.Routes.Lookup("/"); ok {
		return nil
	}
	if first := tree.FirstPath(snap.Tree); first != "" {
		return w.write(dest, mimeHTML, []byte(Redirect(b.shell.Base().Href(first))))
	}
	var buf bytes.Buffer
	if err := b.shell.Render(&buf, b.shell.Empty(snap.Tree)); err != nil {
		return fmt.Errorf("layout root: %w", err)
	}
	return w.write(dest, mimeHTML, buf.Bytes())
}

func writeTreeJSON(w *siteWriter, snap *content.Snapshot) error {
	payload := struct {
		GeneratedAt time.Time     `json:"generatedAt"`
		Root        *tree.Section `json:"root"`
	}{
		GeneratedAt: snap.Built.UTC(),
		Root:        snap.Tree,
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tree json: %w", err)
	}
	return w.write(filepath.Join(w.root, treeFile), mimeJSON, raw)
}

// prepareOutputDir refuses to wipe a directory that holds the content.
func prepareOutputDir(out, contentRoot string) error {
	if out == filepath.Dir(out) {
		return fmt.Errorf("refusing to clean %s", out)
	}
	if rel, err := filepath.Rel(out, contentRoot); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("output %s contains the content root", out)
	}
	if err := os.RemoveAll(out); err != nil {
		return fmt.Errorf("clean output: %w", err)
	}
	return os.MkdirAll(out, 0o755) //nolint:gosec // standard directory permissions
}

func copyPublic(src, dst string) error {
	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat public dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("public path %s is not a directory", src)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755) //nolint:gosec // standard directory permissions
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path) //nolint:gosec // path from walked public directory
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644) //nolint:gosec // standard file permissions
	})
}

type siteWriter struct {
	root string
	min  *minify.M
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc(mimeHTML, minhtml.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFunc(mimeJSON, minjson.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return m
}

func (w *siteWriter) write(dest, mediatype string, data []byte) error {
	if w.min != nil {
		small, err := w.min.Bytes(mediatype, data)
		if err != nil {
			return fmt.Errorf("minify %s: %w", dest, err)
		}
		data = small
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:gosec // standard directory permissions
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil { //nolint:gosec // standard file permissions
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// minifyTree rewrites copied asset files in place.
func (w *siteWriter) minifyTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		mediatype, ok := minifyTypes[strings.ToLower(filepath.Ext(path))]
		if !ok || d.Name() == chromaFile {
			return nil
		}
		data, err := os.ReadFile(path) //nolint:gosec // path inside the output directory
		if err != nil {
			return err
		}
		return w.write(path, mediatype, data)
	})
}
