// Package d2 renders ```d2 diagram fences to inline SVG.
package d2

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"oss.terrastruct.com/d2/d2graph"
	"oss.terrastruct.com/d2/d2layouts/d2dagrelayout"
	"oss.terrastruct.com/d2/d2layouts/d2elklayout"
	"oss.terrastruct.com/d2/d2lib"
	"oss.terrastruct.com/d2/d2renderers/d2svg"
	"oss.terrastruct.com/d2/d2themes/d2themescatalog"
	d2log "oss.terrastruct.com/d2/lib/log"
	"oss.terrastruct.com/d2/lib/textmeasure"
)

// Result captures the outcome of a render attempt.
type Result struct {
	SVG      string
	Duration time.Duration
}

var (
	// ErrEmptyDiagram is returned when the supplied diagram body is empty.
	ErrEmptyDiagram = errors.New("empty d2 diagram")
)

// Renderer compiles D2 sources with the embedded compiler. Layout engines
// are chosen by the diagram itself (dagre by default, elk on request).
// Successful renders are memoized by source.
type Renderer struct {
	logger      *slog.Logger
	timeout     time.Duration
	themeID     int64
	darkThemeID int64
	cache       sync.Map // map[[32]byte]Result
}

// Options configure the renderer.
type Options struct {
	Timeout time.Duration
	// ThemeID and DarkThemeID select d2 catalog themes. Zero values pick the
	// neutral light theme and the dark flagship theme.
	ThemeID     int64
	DarkThemeID int64
}

// New creates a renderer instance. The context is unused.
func New(_ context.Context, logger *slog.Logger, opts *Options) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Options{
		Timeout:     12 * time.Second,
		ThemeID:     d2themescatalog.NeutralDefault.ID,
		DarkThemeID: d2themescatalog.DarkFlagshipTerrastruct.ID,
	}
	if opts != nil {
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		if opts.ThemeID > 0 {
			cfg.ThemeID = opts.ThemeID
		}
		if opts.DarkThemeID > 0 {
			cfg.DarkThemeID = opts.DarkThemeID
		}
	}

	return &Renderer{
		logger:      logger.With("component", "d2"),
		timeout:     cfg.Timeout,
		themeID:     cfg.ThemeID,
		darkThemeID: cfg.DarkThemeID,
	}, nil
}

// Render compiles the given D2 script into SVG.
func (r *Renderer) Render(ctx context.Context, source string) (Result, error) {
	if strings.TrimSpace(source) == "" {
		return Result{}, ErrEmptyDiagram
	}
	key := sha256.Sum256([]byte(source))
	if cached, ok := r.cache.Load(key); ok {
		return cached.(Result), nil
	}

	ctx = d2log.With(ctx, r.logger)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ruler, err := textmeasure.NewRuler()
	if err != nil {
		return Result{}, fmt.Errorf("init ruler: %w", err)
	}

	themeID := r.themeID
	darkThemeID := r.darkThemeID
	pad := int64(d2svg.DEFAULT_PADDING)
	renderOpts := &d2svg.RenderOpts{
		ThemeID:     &themeID,
		DarkThemeID: &darkThemeID,
		Pad:         &pad,
	}

	start := time.Now()
	compileOpts := &d2lib.CompileOptions{
		Ruler:          ruler,
		LayoutResolver: r.layoutResolver,
	}

	diagram, _, err := d2lib.Compile(ctx, source, compileOpts, renderOpts)
	if err != nil {
		return Result{}, fmt.Errorf("compile d2: %w", err)
	}
	if diagram == nil {
		return Result{}, errors.New("d2 compiler returned nil diagram")
	}

	svg, err := d2svg.Render(diagram, renderOpts)
	if err != nil {
		return Result{}, fmt.Errorf("render svg: %w", err)
	}

	res := Result{
		SVG:      inlineSVG(svg),
		Duration: time.Since(start),
	}
	r.cache.Store(key, res)
	r.logger.Debug("rendered diagram", "bytes", len(res.SVG), "took", res.Duration)
	return res, nil
}

// inlineSVG drops the XML prolog so the markup can sit inside HTML.
func inlineSVG(svg []byte) string {
	if i := bytes.Index(svg, []byte("<svg")); i > 0 {
		svg = svg[i:]
	}
	return string(bytes.TrimSpace(svg))
}

func (r *Renderer) layoutResolver(engine string) (d2graph.LayoutGraph, error) {
	switch strings.ToLower(engine) {
	case "", "dagre":
		return func(ctx context.Context, g *d2graph.Graph) error {
			return d2dagrelayout.Layout(ctx, g, nil)
		}, nil
	case "elk":
		return func(ctx context.Context, g *d2graph.Graph) error {
			return d2elklayout.Layout(ctx, g, nil)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported D2 layout %q", engine)
	}
}
