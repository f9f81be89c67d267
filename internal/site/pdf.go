package site

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	pdf "github.com/stephenafamo/goldmark-pdf"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"

	"github.com/euforicio/wikigen/internal/content/tree"
	"github.com/euforicio/wikigen/internal/renderer"
	"github.com/euforicio/wikigen/internal/renderer/macro"
	"github.com/euforicio/wikigen/internal/renderer/transform"
)

// PDFExporter converts single pages to PDF. The PDF renderer knows plain
// markdown only, so wiki macros are flattened first and d2 diagrams are
// embedded as PNG images.
type PDFExporter struct {
	diagrams transform.DiagramRenderer
	logger   *slog.Logger
}

// NewPDFExporter returns an exporter. A nil diagram renderer leaves d2
// fences as code blocks.
func NewPDFExporter(diagrams transform.DiagramRenderer, logger *slog.Logger) *PDFExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExporter{diagrams: diagrams, logger: logger.With("component", "pdf")}
}

// Page writes the PDF for a routed page.
func (p *PDFExporter) Page(ctx context.Context, w io.Writer, page *tree.Page) error {
	raw, err := os.ReadFile(page.Source)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	title := renderer.ReadFrontMatter(raw).Title
	if title == "" {
		title = page.Title
	}
	return p.Write(ctx, w, title, raw)
}

// Write converts markdown source to PDF. A non-empty title becomes the
// first heading.
func (p *PDFExporter) Write(ctx context.Context, w io.Writer, title string, src []byte) error {
	front, body := splitFrontMatter(string(src))
	var doc strings.Builder
	doc.WriteString(front)
	if title != "" {
		doc.WriteString("# " + title + "\n\n")
	}
	doc.WriteString(p.flatten(ctx, body))

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			meta.Meta,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
		goldmark.WithRenderer(pdf.New()),
	)
	if err := md.Convert([]byte(doc.String()), w); err != nil {
		return fmt.Errorf("convert markdown to PDF: %w", err)
	}
	return nil
}

// splitFrontMatter returns the leading "---" block, closing line
// included, and the remaining source.
func splitFrontMatter(src string) (string, string) {
	first, rest, ok := strings.Cut(src, "\n")
	if !ok || strings.TrimRight(first, "\r") != "---" {
		return "", src
	}
	offset := len(first) + 1
	for rest != "" {
		line, next, _ := strings.Cut(rest, "\n")
		offset += len(line) + 1
		if strings.TrimRight(line, "\r") == "---" {
			if offset > len(src) {
				offset = len(src)
			}
			return src[:offset], src[offset:]
		}
		rest = next
	}
	return "", src
}

// flatten rewrites macro syntax into plain markdown. Code fences pass
// through untouched except d2, which becomes an embedded image.
func (p *PDFExporter) flatten(ctx context.Context, src string) string {
	var (
		out    strings.Builder
		marker string
		lang   string
		fence  strings.Builder
	)
	for pos := 0; pos < len(src); {
		rest := src[pos:]
		line, _, _ := strings.Cut(rest, "\n")
		advance := len(line) + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case marker != "":
			if isFenceEnd(trimmed, marker) {
				if lang == "d2" {
					p.flushD2(ctx, &out, marker, fence.String())
				} else {
					writeLine(&out, line)
				}
				marker, lang = "", ""
				fence.Reset()
			} else if lang == "d2" {
				writeLine(&fence, line)
			} else {
				writeLine(&out, line)
			}
		default:
			if n, tok := macro.TokenizeBlock(rest); tok != nil {
				out.WriteString(p.flattenBlock(ctx, tok))
				advance = n + 1
				break
			}
			if m, l, ok := parseFenceStart(trimmed); ok {
				marker, lang = m, strings.ToLower(l)
				if lang != "d2" {
					writeLine(&out, line)
				}
				break
			}
			writeLine(&out, flattenInline(line))
		}
		pos += advance
	}
	if marker != "" && lang == "d2" {
		writeLine(&out, marker+"d2")
		out.WriteString(fence.String())
	}
	return out.String()
}

func (p *PDFExporter) flattenBlock(ctx context.Context, tok macro.Token) string {
	var b strings.Builder
	switch t := tok.(type) {
	case *macro.Image:
		img := "![" + t.Alt + "](" + t.Src + ")"
		if t.Link != "" {
			img = "[" + img + "](" + t.Link + ")"
		}
		writeLine(&b, img)
		if t.Caption != "" {
			writeLine(&b, "")
			writeLine(&b, "*"+t.Caption+"*")
		}
	case *macro.Gallery:
		for _, item := range t.Items {
			writeLine(&b, "- !["+item.Caption+"]("+item.Src+")")
		}
	case *macro.Download:
		label := t.Label
		if label == "" {
			label = t.File
		}
		writeLine(&b, "**["+label+"]("+t.File+")**")
		if t.Desc != "" {
			writeLine(&b, "")
			writeLine(&b, t.Desc)
		}
	case *macro.Callout:
		title := t.Title
		if title == "" {
			title = strings.ToUpper(string(t.Type))
		}
		writeLine(&b, "> **"+title+"**")
		writeLine(&b, ">")
		for _, line := range strings.Split(strings.TrimRight(p.flatten(ctx, t.Body), "\n"), "\n") {
			writeLine(&b, strings.TrimRight("> "+line, " "))
		}
	}
	writeLine(&b, "")
	return b.String()
}

// flattenInline replaces inline macros with their text.
func flattenInline(line string) string {
	if !strings.ContainsAny(line, "<[") {
		return line
	}
	var out strings.Builder
	for i := 0; i < len(line); {
		if c := line[i]; c == '<' || c == '[' {
			if n, tok := macro.TokenizeInline(line[i:]); tok != nil {
				out.WriteString(inlineText(tok))
				i += n
				continue
			}
		}
		out.WriteByte(line[i])
		i++
	}
	return out.String()
}

func inlineText(tok macro.Token) string {
	switch t := tok.(type) {
	case *macro.Gradient:
		return flattenInline(t.Inner)
	case *macro.Color:
		return flattenInline(t.Inner)
	case *macro.WikiLink:
		if t.Label != "" {
			return t.Label
		}
		return t.Target
	case *macro.InlineAsset:
		if t.Kind == macro.AssetImg {
			return "![" + t.Option("alt") + "](" + t.Ref + ")"
		}
	}
	return ""
}

// flushD2 embeds the rasterized diagram. Failures keep the source as a
// code block so it still shows up.
func (p *PDFExporter) flushD2(ctx context.Context, out *strings.Builder, marker, source string) {
	if strings.TrimSpace(source) == "" {
		return
	}
	if p.diagrams != nil {
		res, err := p.diagrams.Render(ctx, source)
		if err == nil {
			var data []byte
			if data, err = svgToPNG([]byte(res.SVG)); err == nil {
				fmt.Fprintf(out, "![D2 diagram](data:image/png;base64,%s)\n\n", base64.StdEncoding.EncodeToString(data))
				return
			}
		}
		p.logger.Warn("d2 diagram left as source", slog.Any("err", err))
	}
	writeLine(out, marker+"d2")
	out.WriteString(source)
	writeLine(out, marker)
}

func parseFenceStart(line string) (marker, lang string, ok bool) {
	for _, c := range []byte{'`', '~'} {
		n := leadingCount(line, c)
		if n >= 3 {
			return line[:n], strings.TrimSpace(line[n:]), true
		}
	}
	return "", "", false
}

func isFenceEnd(line, marker string) bool {
	return marker != "" && line == marker
}

func leadingCount(line string, c byte) int {
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	return n
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteByte('\n')
}

// svgToPNG rasterizes an SVG at its view box size.
func svgToPNG(svg []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	width := int(math.Ceil(icon.ViewBox.W))
	height := int(math.Ceil(icon.ViewBox.H))
	if width <= 0 || height <= 0 {
		width, height = 800, 600
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
