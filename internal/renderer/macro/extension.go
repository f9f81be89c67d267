package macro

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Parser priorities. Block macros must beat the fenced code parser (700)
// and inline macros must beat links (200) and raw HTML (400).
const (
	blockPriority  = 650
	inlinePriority = 150
)

// Block is a fenced macro in the AST.
type Block struct {
	ast.BaseBlock
	Name  string
	Token Token

	lines []string
}

// KindBlock is the node kind of Block.
var KindBlock = ast.NewNodeKind("MacroBlock")

// Kind implements ast.Node.
func (n *Block) Kind() ast.NodeKind { return KindBlock }

// IsRaw implements ast.Node.
func (n *Block) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *Block) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name}, nil)
}

// Inline is an inline macro in the AST.
type Inline struct {
	ast.BaseInline
	Token Token
}

// KindInline is the node kind of Inline.
var KindInline = ast.NewNodeKind("MacroInline")

// Kind implements ast.Node.
func (n *Inline) Kind() ast.NodeKind { return KindInline }

// Dump implements ast.Node.
func (n *Inline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Token": fmt.Sprintf("%T", n.Token)}, nil)
}

// Extension registers the macros with a goldmark instance. Nested markdown
// inside macros is rendered by Body, or by the same instance when Body is
// nil. Body should not parse front matter.
type Extension struct {
	Assets *Assets
	Body   Converter
}

// New returns the macro extension resolving icons and downloads through assets.
func New(assets *Assets) *Extension {
	return &Extension{Assets: assets}
}

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	var body Converter = m
	if e.Body != nil {
		body = e.Body
	}
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&blockParser{}, blockPriority),
		),
		parser.WithInlineParsers(
			util.Prioritized(&inlineParser{}, inlinePriority),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&nodeRenderer{html: &HTML{Assets: e.Assets, Markdown: body}}, 500),
		),
	)
}

type blockParser struct{}

var _ parser.BlockParser = (*blockParser)(nil)

func (p *blockParser) Trigger() []byte {
	return []byte{'`'}
}

func (p *blockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos > 3 {
		return nil, parser.NoChildren
	}
	name, ok := FenceKind(string(line[pos:]))
	if !ok {
		return nil, parser.NoChildren
	}
	// Unclosed fences stay ordinary code blocks.
	if !hasFenceClose(reader.Source()[segment.Stop:], quoteDepth(parent)) {
		return nil, parser.NoChildren
	}
	advanceLine(reader, line, segment)
	return &Block{Name: name}, parser.NoChildren
}

func (p *blockParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	if IsFenceClose(string(line)) {
		advanceLine(reader, line, segment)
		return parser.Close
	}
	n := node.(*Block)
	n.lines = append(n.lines, strings.TrimRight(string(line), "\r\n"))
	advanceLine(reader, line, segment)
	return parser.Continue | parser.NoChildren
}

func (p *blockParser) Close(node ast.Node, _ text.Reader, _ parser.Context) {
	n := node.(*Block)
	n.Token, _ = ParseBlock(n.Name, strings.Join(n.lines, "\n"))
	n.lines = nil
}

func (p *blockParser) CanInterruptParagraph() bool {
	return true
}

func (p *blockParser) CanAcceptIndentedLine() bool {
	return false
}

func advanceLine(reader text.Reader, line []byte, segment text.Segment) {
	newline := 0
	if len(line) > 0 && line[len(line)-1] == '\n' {
		newline = 1
	}
	reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
}

// hasFenceClose scans the raw source after an opener nested in depth
// blockquotes. The scan stops where the quote ends.
func hasFenceClose(rest []byte, depth int) bool {
	for _, line := range strings.Split(string(rest), "\n") {
		inner, ok := stripQuotes(line, depth)
		if !ok {
			return false
		}
		if IsFenceClose(inner) {
			return true
		}
	}
	return false
}

func quoteDepth(n ast.Node) int {
	depth := 0
	for ; n != nil; n = n.Parent() {
		if n.Kind() == ast.KindBlockquote {
			depth++
		}
	}
	return depth
}

// stripQuotes removes depth "> " markers from the start of line.
func stripQuotes(line string, depth int) (string, bool) {
	for range depth {
		line = strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(line, ">") {
			return "", false
		}
		line = strings.TrimPrefix(line[1:], " ")
	}
	return line, true
}

type inlineParser struct{}

var _ parser.InlineParser = (*inlineParser)(nil)

func (p *inlineParser) Trigger() []byte {
	return []byte{'<', '['}
}

func (p *inlineParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	n, tok := TokenizeInline(string(line))
	if tok == nil && spansLines(line) {
		n, tok = TokenizeInline(restOfBlock(block))
	}
	if tok == nil {
		return nil
	}
	advanceBytes(block, n)
	return &Inline{Token: tok}
}

// spansLines reports whether line opens a macro whose close may sit on a
// later line of the paragraph.
func spansLines(line []byte) bool {
	return bytes.HasPrefix(line, []byte("<gradient:")) ||
		bytes.HasPrefix(line, []byte("<#")) ||
		bytes.HasPrefix(line, []byte("[["))
}

// restOfBlock returns the paragraph text from the reader's position to the
// end of the block. The position is left unchanged.
func restOfBlock(block text.Reader) string {
	savedLine, savedSegment := block.Position()
	defer block.SetPosition(savedLine, savedSegment)

	var b strings.Builder
	for {
		line, _ := block.PeekLine()
		if line == nil {
			return b.String()
		}
		b.Write(line)
		block.AdvanceLine()
	}
}

// advanceBytes moves the reader n bytes forward, crossing line ends.
func advanceBytes(block text.Reader, n int) {
	for n > 0 {
		line, _ := block.PeekLine()
		if line == nil {
			return
		}
		if n < len(line) {
			block.Advance(n)
			return
		}
		n -= len(line)
		block.AdvanceLine()
	}
}

type nodeRenderer struct {
	html *HTML
}

var _ renderer.NodeRenderer = (*nodeRenderer)(nil)

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindBlock, r.renderBlock)
	reg.Register(KindInline, r.renderInline)
}

func (r *nodeRenderer) renderBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	out := r.html.Render(node.(*Block).Token)
	if out == "" {
		return ast.WalkSkipChildren, nil
	}
	if _, err := w.WriteString(out + "\n"); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderInline(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	if _, err := w.WriteString(r.html.Render(node.(*Inline).Token)); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}
