// Package renderer converts markdown to HTML with caching, syntax
// highlighting and the wiki macro dialect.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	goldmarkmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmrenderer "github.com/yuin/goldmark/renderer"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/anchor"
	"go.abhg.dev/goldmark/toc"

	"github.com/euforicio/wikigen/internal/renderer/macro"
	"github.com/euforicio/wikigen/internal/renderer/transform"
)

// DefaultStyle is the chroma style used for code blocks.
const DefaultStyle = "github-dark"

// Document represents a rendered markdown file.
//
//nolint:govet // field order optimized for readability, not memory
type Document struct {
	HTML     string
	TOC      string
	Metadata Metadata
	Modified time.Time
	Raw      string
}

// Request describes one markdown source to render.
type Request struct {
	// Path identifies the source for caching, usually its file path.
	Path    string
	ModTime time.Time
	Content []byte
	// Links resolves relative .md links. Nil leaves them untouched.
	Links LinkResolver
}

// Options configures a Service.
type Options struct {
	// Assets resolves macro icons and download sizes.
	Assets *macro.Assets
	// Diagrams renders ```d2 fences. Nil leaves them as code blocks.
	Diagrams transform.DiagramRenderer
	// Style is the chroma style name; DefaultStyle when empty.
	Style string
	// TOCMinDepth and TOCMaxDepth bound the headings listed in Document.TOC.
	TOCMinDepth int
	TOCMaxDepth int
}

type cacheEntry struct {
	modTime time.Time
	doc     Document
}

type cacheKey string

// Service renders markdown into HTML with caching.
// Rendered documents are cached by path and modification time.
type Service struct {
	md     goldmark.Markdown
	logger *slog.Logger
	opts   Options
	cache  sync.Map // map[cacheKey]cacheEntry
}

// NewService constructs a markdown renderer. The pipeline includes:
//   - GitHub-flavored markdown extensions (tables, strikethrough, task lists, autolinks)
//   - the wiki macros (image, gallery, download and callout fences plus inline macros)
//   - syntax highlighting with chroma classes
//   - YAML front matter
//   - heading anchors and a table of contents
//   - rewriting of relative .md links to route paths
//   - d2 diagrams when opts.Diagrams is set
//
// Raw HTML is passed through; content is trusted. If logger is nil, the
// default slog logger is used.
func NewService(logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "renderer")
	if opts.Style == "" {
		opts.Style = DefaultStyle
	}
	if opts.TOCMinDepth == 0 {
		opts.TOCMinDepth = 2
	}
	if opts.TOCMaxDepth == 0 {
		opts.TOCMaxDepth = 3
	}

	highlight := highlighting.NewHighlighting(
		highlighting.WithStyle(opts.Style),
		highlighting.WithFormatOptions(
			html.WithLineNumbers(false),
			html.WithClasses(true),
		),
		highlighting.WithWrapperRenderer(transform.MermaidWrapper()),
	)

	transformers := []util.PrioritizedValue{
		util.Prioritized(&linkTransformer{logger: logger}, 100),
	}
	var nodeRenderers []util.PrioritizedValue
	if opts.Diagrams != nil {
		transformers = append(transformers, util.Prioritized(transform.NewD2Transformer(opts.Diagrams, logger), 200))
		nodeRenderers = append(nodeRenderers, util.Prioritized(transform.NewD2BlockRenderer(), 500))
	}

	// Callout bodies go through an instance without front matter, so a body
	// opening with "---" keeps its thematic breaks.
	body := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			macro.New(opts.Assets),
			highlight,
			&anchor.Extender{
				Position: anchor.After,
			},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			htmlrenderer.WithUnsafe(),
			htmlrenderer.WithXHTML(),
		),
	)

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			goldmarkmeta.Meta,
			&macro.Extension{Assets: opts.Assets, Body: body},
			highlight,
			&anchor.Extender{
				Position: anchor.After,
			},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
			parser.WithASTTransformers(transformers...),
		),
		goldmark.WithRendererOptions(
			htmlrenderer.WithUnsafe(),
			htmlrenderer.WithXHTML(),
			gmrenderer.WithNodeRenderers(nodeRenderers...),
		),
	)

	return &Service{
		md:     md,
		logger: logger,
		opts:   opts,
	}
}

// Markdown exposes the configured goldmark instance.
func (s *Service) Markdown() goldmark.Markdown {
	return s.md
}

// Render converts markdown content to HTML, caching results by path and
// modification time. A zero ModTime bypasses the cache.
func (s *Service) Render(_ context.Context, req Request) (Document, error) {
	key := cacheKey(req.Path)

	if entry, ok := s.cache.Load(key); ok {
		if cached, ok := entry.(cacheEntry); ok {
			if !cached.modTime.IsZero() && req.ModTime.Equal(cached.modTime) {
				return cached.doc, nil
			}
		}
	}

	pc := parser.NewContext()
	pc.Set(docPathKey, req.Path)
	if req.Links != nil {
		pc.Set(linksKey, req.Links)
	}

	root := s.md.Parser().Parse(text.NewReader(req.Content), parser.WithContext(pc))

	var body bytes.Buffer
	if err := s.md.Renderer().Render(&body, req.Content, root); err != nil {
		return Document{}, fmt.Errorf("render markdown: %w", err)
	}

	doc := Document{
		HTML:     body.String(),
		TOC:      s.renderTOC(root, req.Content),
		Metadata: extractMetadata(pc),
		Modified: req.ModTime,
		Raw:      string(req.Content),
	}

	if !req.ModTime.IsZero() {
		s.cache.Store(key, cacheEntry{modTime: req.ModTime, doc: doc})
	}
	return doc, nil
}

// RenderFile reads and renders a markdown file.
func (s *Service) RenderFile(ctx context.Context, path string, links LinkResolver) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if entry, ok := s.cache.Load(cacheKey(path)); ok {
		if cached, ok := entry.(cacheEntry); ok && info.ModTime().Equal(cached.modTime) {
			return cached.doc, nil
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return s.Render(ctx, Request{Path: path, ModTime: info.ModTime(), Content: content, Links: links})
}

// Invalidate removes the cached entry for the given path.
func (s *Service) Invalidate(path string) {
	s.cache.Delete(cacheKey(path))
}

// Purge drops every cached document. Link targets depend on the whole
// tree, so a rebuilt tree invalidates everything.
func (s *Service) Purge() {
	s.cache.Range(func(k, _ any) bool {
		s.cache.Delete(k)
		return true
	})
}

func (s *Service) renderTOC(root ast.Node, src []byte) string {
	tree, err := toc.Inspect(root, src, toc.MinDepth(s.opts.TOCMinDepth), toc.MaxDepth(s.opts.TOCMaxDepth))
	if err != nil {
		s.logger.Debug("toc: inspect failed", "err", err)
		return ""
	}
	list := toc.RenderList(tree)
	if list == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := s.md.Renderer().Render(&buf, src, list); err != nil {
		s.logger.Debug("toc: render failed", "err", err)
		return ""
	}
	return buf.String()
}
