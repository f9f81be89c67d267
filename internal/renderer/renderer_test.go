package renderer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/euforicio/wikigen/internal/renderer"
	"github.com/euforicio/wikigen/internal/renderer/d2"
)

func newService(t *testing.T, opts renderer.Options) *renderer.Service {
	t.Helper()
	return renderer.NewService(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})), opts)
}

func TestRenderWithMetadataAndMermaid(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	content := []byte("---\n" +
		"title: Example Doc\n" +
		"description: Sample description\n" +
		"order: 3\n" +
		"icon: book\n" +
		"tags:\n" +
		"  - go\n" +
		"  - wiki\n" +
		"---\n\n" +
		"# Hello\n\n" +
		"Some inline text.\n\n" +
		"```mermaid\n" +
		"graph TD;\n" +
		"A-->B;\n" +
		"```\n\n" +
		"```go\n" +
		"package main\n\n" +
		"import \"fmt\"\n\n" +
		"func main() {\n" +
		"  fmt.Println(\"hello\")\n" +
		"}\n" +
		"```\n")

	modTime := time.Unix(1_000, 0)
	doc, err := svc.Render(context.Background(), renderer.Request{Path: "docs/example.md", ModTime: modTime, Content: content})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if doc.Metadata.Title != "Example Doc" {
		t.Fatalf("expected title 'Example Doc', got %q", doc.Metadata.Title)
	}
	if doc.Metadata.Description != "Sample description" {
		t.Fatalf("unexpected description: %q", doc.Metadata.Description)
	}
	if doc.Metadata.Icon != "book" {
		t.Fatalf("unexpected icon: %q", doc.Metadata.Icon)
	}
	if diff := cmp.Diff([]string{"go", "wiki"}, doc.Metadata.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if order, ok := doc.Metadata.Order(); !ok || order != 3 {
		t.Fatalf("expected order 3, got %d (%v)", order, ok)
	}

	html := doc.HTML
	if !strings.Contains(html, `<pre class="mermaid">`) {
		t.Fatalf("expected mermaid block in HTML, got %s", html)
	}
	if strings.Contains(html, "language-mermaid") {
		t.Fatalf("expected mermaid fence to be wrapped, saw raw language class: %s", html)
	}
	if !strings.Contains(html, "graph TD;") {
		t.Fatalf("expected mermaid content in HTML")
	}
	if !strings.Contains(html, `class="chroma"`) {
		t.Fatalf("expected chroma highlighter output, got %s", html)
	}
	if !strings.Contains(html, `<span class="kn">package</span>`) {
		t.Fatalf("expected go syntax tokens in HTML, got %s", html)
	}
	if strings.Contains(html, "Example Doc") {
		t.Fatalf("front matter leaked into HTML: %s", html)
	}
	if !doc.Modified.Equal(modTime) {
		t.Fatalf("expected modified timestamp to match, got %v", doc.Modified)
	}
}

func TestRenderCaching(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	ctx := context.Background()
	path := "docs/cache.md"
	modTime := time.Unix(2_000, 0)

	doc1, err := svc.Render(ctx, renderer.Request{Path: path, ModTime: modTime, Content: []byte("# First")})
	if err != nil {
		t.Fatalf("first render: %v", err)
	}

	doc2, err := svc.Render(ctx, renderer.Request{Path: path, ModTime: modTime, Content: []byte("# Second")})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if doc2.HTML != doc1.HTML {
		t.Fatalf("expected cached HTML, got different output")
	}

	doc3, err := svc.Render(ctx, renderer.Request{Path: path, ModTime: modTime.Add(time.Second), Content: []byte("# Second")})
	if err != nil {
		t.Fatalf("third render: %v", err)
	}
	if !strings.Contains(doc3.HTML, "Second") {
		t.Fatalf("expected new HTML to include updated content, got %s", doc3.HTML)
	}

	svc.Purge()
	doc4, err := svc.Render(ctx, renderer.Request{Path: path, ModTime: modTime.Add(time.Second), Content: []byte("# Third")})
	if err != nil {
		t.Fatalf("fourth render: %v", err)
	}
	if !strings.Contains(doc4.HTML, "Third") {
		t.Fatalf("expected purge to drop the cache, got %s", doc4.HTML)
	}
}

func TestRenderFile(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	path := filepath.Join(t.TempDir(), "page.md")
	if err := os.WriteFile(path, []byte("Hello **file**\n"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	doc, err := svc.RenderFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	if !strings.Contains(doc.HTML, "<strong>file</strong>") {
		t.Fatalf("unexpected html %s", doc.HTML)
	}

	if _, err := svc.RenderFile(context.Background(), filepath.Join(t.TempDir(), "missing.md"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestRenderMacros(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	content := []byte("Intro with [[link:guide/install|Install]].\n\n" +
		"```callout\n" +
		"type: tip\n" +
		"title: Hint\n" +
		"Use <gradient:#f00:#00f>**bold**</gradient> text.\n" +
		"```\n\n" +
		"```gallery\n" +
		"/a.png | A\n" +
		"```\n")
	doc, err := svc.Render(context.Background(), renderer.Request{Path: "macros.md", Content: content})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		`<a class="wiki-link" href="/guide/install">Install</a>`,
		`<div class="callout tip">`,
		`<div class="callout-title">Hint</div>`,
		`<span class="gradient-text" style="--g1:#f00;--g2:#00f"><strong>bold</strong></span>`,
		`<div class="wgallery" data-align="center" data-width="" data-items="`,
	} {
		if !strings.Contains(doc.HTML, want) {
			t.Fatalf("expected %q in %s", want, doc.HTML)
		}
	}
}

func TestRenderCalloutBody(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	content := []byte("# Top\n\n" +
		"```callout\n" +
		"---\n" +
		"---\n" +
		"body\n" +
		"\n" +
		"## Top\n" +
		"```\n")
	doc, err := svc.Render(context.Background(), renderer.Request{Path: "callout.md", Content: content})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := strings.Count(doc.HTML, "<hr />"); got != 2 {
		t.Fatalf("expected two thematic breaks in the callout body, got %d in %s", got, doc.HTML)
	}
	if !strings.Contains(doc.HTML, "<p>body</p>") {
		t.Fatalf("expected body paragraph in %s", doc.HTML)
	}
	if got := strings.Count(doc.HTML, `id="top"`); got != 1 {
		t.Fatalf("expected one id=\"top\", got %d in %s", got, doc.HTML)
	}
	if !strings.Contains(doc.HTML, `id="callout-`) {
		t.Fatalf("expected prefixed heading id in the callout body: %s", doc.HTML)
	}
	if !doc.Metadata.IsZero() {
		t.Fatalf("callout body leaked into front matter: %+v", doc.Metadata)
	}
}

type sourceMap map[string]string

func (m sourceMap) ResolveSource(file string) (string, bool) {
	p, ok := m[filepath.Clean(file)]
	return p, ok
}

func TestRenderRewritesMarkdownLinks(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	root := t.TempDir()
	links := sourceMap{
		filepath.Join(root, "guide", "install.md"): "/guide/install",
		filepath.Join(root, "faq.md"):              "/faq",
	}
	content := []byte("[install](install.md#steps) [faq](../faq.md) [missing](nope.md) " +
		"[ext](https://x.test/a.md) [abs](/raw.md)\n")

	doc, err := svc.Render(context.Background(), renderer.Request{
		Path:    filepath.Join(root, "guide", "index.md"),
		Content: content,
		Links:   links,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		`<a href="/guide/install#steps">install</a>`,
		`<a href="/faq">faq</a>`,
		`<a href="nope.md">missing</a>`,
		`<a href="https://x.test/a.md">ext</a>`,
		`<a href="/raw.md">abs</a>`,
	} {
		if !strings.Contains(doc.HTML, want) {
			t.Fatalf("expected %q in %s", want, doc.HTML)
		}
	}
}

func TestRenderTOC(t *testing.T) {
	t.Parallel()
	svc := newService(t, renderer.Options{})

	doc, err := svc.Render(context.Background(), renderer.Request{
		Path:    "toc.md",
		Content: []byte("# Title\n\n## First part\n\ntext\n\n### Detail\n\n## Second\n"),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{`href="#first-part"`, `href="#detail"`, `href="#second"`} {
		if !strings.Contains(doc.TOC, want) {
			t.Fatalf("expected %q in toc %s", want, doc.TOC)
		}
	}
	if strings.Contains(doc.TOC, `href="#title"`) {
		t.Fatalf("top-level heading should not be listed: %s", doc.TOC)
	}

	plain, err := svc.Render(context.Background(), renderer.Request{Path: "plain.md", Content: []byte("just text\n")})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if plain.TOC != "" {
		t.Fatalf("expected empty toc, got %q", plain.TOC)
	}
}

type fakeDiagrams struct {
	err error
}

func (f fakeDiagrams) Render(_ context.Context, source string) (d2.Result, error) {
	if f.err != nil {
		return d2.Result{}, f.err
	}
	return d2.Result{SVG: `<svg data-lines="` + string(rune('0'+strings.Count(source, "\n"))) + `"></svg>`}, nil
}

func TestRenderDiagrams(t *testing.T) {
	t.Parallel()

	content := []byte("```d2 title=\"Request flow\"\na -> b\nb -> c\n```\n")

	svc := newService(t, renderer.Options{Diagrams: fakeDiagrams{}})
	doc, err := svc.Render(context.Background(), renderer.Request{Path: "d2.md", Content: content})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{`<figure class="d2-block"`, `<svg data-lines="2"></svg>`, `<figcaption>Request flow</figcaption>`} {
		if !strings.Contains(doc.HTML, want) {
			t.Fatalf("expected %q in %s", want, doc.HTML)
		}
	}

	failing := newService(t, renderer.Options{Diagrams: fakeDiagrams{err: d2.ErrEmptyDiagram}})
	doc, err = failing.Render(context.Background(), renderer.Request{Path: "d2.md", Content: content})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(doc.HTML, `<pre class="d2-error">empty d2 diagram</pre>`) {
		t.Fatalf("expected visible diagram error, got %s", doc.HTML)
	}

	plain := newService(t, renderer.Options{})
	doc, err = plain.Render(context.Background(), renderer.Request{Path: "d2.md", Content: content})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(doc.HTML, "d2-block") {
		t.Fatalf("diagrams should stay code without a renderer: %s", doc.HTML)
	}
}
