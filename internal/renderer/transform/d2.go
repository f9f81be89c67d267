package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/euforicio/wikigen/internal/renderer/d2"
)

const d2Language = "d2"

// DiagramRenderer compiles diagram source to SVG. *d2.Renderer implements it.
type DiagramRenderer interface {
	Render(ctx context.Context, source string) (d2.Result, error)
}

// D2Transformer replaces fenced ```d2 blocks with rendered diagram nodes.
// The fence info may carry a caption: ```d2 title="Request flow".
type D2Transformer struct {
	renderer DiagramRenderer
	logger   *slog.Logger
}

// NewD2Transformer constructs an AST transformer. A nil renderer makes it a no-op.
func NewD2Transformer(r DiagramRenderer, logger *slog.Logger) parser.ASTTransformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &D2Transformer{renderer: r, logger: logger}
}

// Transform implements parser.ASTTransformer.
func (t *D2Transformer) Transform(node *ast.Document, reader text.Reader, _ parser.Context) {
	if t.renderer == nil || node == nil {
		return
	}
	var blocks []*ast.FencedCodeBlock
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fence, ok := n.(*ast.FencedCodeBlock); ok {
			if isD2Block(fence, reader.Source()) {
				blocks = append(blocks, fence)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, fence := range blocks {
		parent := fence.Parent()
		if parent == nil {
			continue
		}
		diagram := t.renderBlock(fence, reader.Source())
		diagram.SetBlankPreviousLines(fence.HasBlankPreviousLines())
		parent.ReplaceChild(parent, fence, diagram)
	}
}

func (t *D2Transformer) renderBlock(fence *ast.FencedCodeBlock, source []byte) *D2Block {
	block := &D2Block{
		Source: fenceBody(fence, source),
		Title:  infoAttr(fence, source, "title"),
	}
	result, err := t.renderer.Render(context.Background(), block.Source)
	if err != nil {
		t.logger.Warn("d2: render failed", "err", err)
		block.Error = err.Error()
		return block
	}
	block.SVG = result.SVG
	block.Runtime = result.Duration
	return block
}

func isD2Block(fence *ast.FencedCodeBlock, source []byte) bool {
	lang := strings.TrimSpace(string(fence.Language(source)))
	return strings.EqualFold(lang, d2Language)
}

func fenceBody(fence *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// infoAttr reads key="value" (or key=value) from the fence info string.
func infoAttr(fence *ast.FencedCodeBlock, source []byte, key string) string {
	if fence.Info == nil {
		return ""
	}
	info := string(fence.Info.Segment.Value(source))
	idx := strings.Index(info, key+"=")
	if idx < 0 {
		return ""
	}
	rest := info[idx+len(key)+1:]
	if strings.HasPrefix(rest, `"`) {
		if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
			return rest[1 : end+1]
		}
		return strings.TrimPrefix(rest, `"`)
	}
	if end := strings.IndexAny(rest, " \t"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// D2Block is a rendered diagram in the AST.
type D2Block struct {
	ast.BaseBlock
	Source  string
	Title   string
	SVG     string
	Error   string
	Runtime time.Duration
}

// KindD2Block is the node kind of D2Block.
var KindD2Block = ast.NewNodeKind("D2Block")

// Kind implements ast.Node.
func (b *D2Block) Kind() ast.NodeKind {
	return KindD2Block
}

// IsRaw marks the node as raw HTML.
func (b *D2Block) IsRaw() bool {
	return true
}

// Dump implements ast.Node.
func (b *D2Block) Dump(source []byte, level int) {
	info := map[string]string{
		"Source": fmt.Sprintf("%d bytes", len(b.Source)),
	}
	if b.Error != "" {
		info["Error"] = fmt.Sprintf("%q", b.Error)
	}
	ast.DumpHelper(b, source, level, info, nil)
}

// D2BlockRenderer writes diagram nodes as figures.
type D2BlockRenderer struct{}

// NewD2BlockRenderer returns a renderer for D2 nodes.
func NewD2BlockRenderer() renderer.NodeRenderer {
	return &D2BlockRenderer{}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *D2BlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindD2Block, r.renderD2Block)
}

func (r *D2BlockRenderer) renderD2Block(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	block := node.(*D2Block)

	var b strings.Builder
	b.WriteString(`<figure class="d2-block"`)
	if block.Runtime > 0 {
		fmt.Fprintf(&b, ` data-runtime-ms="%d"`, block.Runtime.Milliseconds())
	}
	if block.Source != "" {
		fmt.Fprintf(&b, ` data-source-b64="%s"`, base64.StdEncoding.EncodeToString([]byte(block.Source)))
	}
	b.WriteString(`>`)
	if block.Error != "" {
		b.WriteString(`<pre class="d2-error">` + html.EscapeString(block.Error) + `</pre>`)
	} else {
		b.WriteString(block.SVG)
	}
	if block.Title != "" {
		b.WriteString(`<figcaption>` + html.EscapeString(block.Title) + `</figcaption>`)
	}
	b.WriteString("</figure>\n")

	if _, err := w.WriteString(b.String()); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}
