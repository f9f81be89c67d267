package macro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"html"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
)

// Converter renders nested markdown. goldmark.Markdown satisfies it.
type Converter interface {
	Convert(source []byte, w io.Writer, opts ...parser.ParseOption) error
}

// DownloadIcon is the image shown on download cards.
const DownloadIcon = "/assets/download.svg"

var calloutTitles = map[CalloutType]string{
	CalloutNote:    "Примечание",
	CalloutWarning: "Предупреждение",
	CalloutTip:     "Совет",
}

// HTML renders tokens. Markdown renders gradient and color inner text and
// callout bodies; when nil those are escaped verbatim.
type HTML struct {
	Assets   *Assets
	Markdown Converter
}

// Render returns the HTML for tok. Tokens missing their required target
// (an image without src, a link without target) render as "".
func (h *HTML) Render(tok Token) string {
	switch t := tok.(type) {
	case *Gradient:
		return h.gradient(t)
	case *Color:
		return h.color(t)
	case *WikiLink:
		return wikiLinkHTML(t)
	case *InlineAsset:
		return h.inlineAsset(t)
	case *Image:
		return imageHTML(t)
	case *Gallery:
		return galleryHTML(t)
	case *Download:
		return h.download(t)
	case *Callout:
		return h.callout(t)
	default:
		return ""
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

func (h *HTML) gradient(t *Gradient) string {
	c1 := colorOr(t.From, "var(--accent)")
	c2 := colorOr(t.To, "var(--accent2)")
	return `<span class="gradient-text" style="` + esc("--g1:"+c1+";--g2:"+c2) + `">` + h.inline(t.Inner) + `</span>`
}

func (h *HTML) color(t *Color) string {
	c := colorOr(t.Hex, "var(--text)")
	return `<span class="color-text" style="` + esc("color:"+c) + `">` + h.inline(t.Inner) + `</span>`
}

func wikiLinkHTML(t *WikiLink) string {
	target := strings.TrimSpace(t.Target)
	if target == "" {
		return ""
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	label := strings.TrimSpace(t.Label)
	if label == "" {
		label = strings.TrimPrefix(target, "/")
	}
	return `<a class="wiki-link" href="` + esc(target) + `">` + esc(label) + `</a>`
}

func (h *HTML) inlineAsset(t *InlineAsset) string {
	src := h.Assets.ResolveIcon(t.Ref)
	height := sizeOr(t.Option("h", "height", "size"), "1em")
	width, hasWidth := SafeSize(t.Option("w", "width"))

	va := strings.ToLower(t.Option("a", "align"))
	switch va {
	case "top", "bottom", "baseline":
	default:
		va = "middle"
	}

	style := "height:" + height + ";vertical-align:" + va
	if hasWidth {
		style += ";width:" + width
	}
	img := `<img class="inline-media" src="` + esc(src) + `" alt="` + esc(t.Option("alt")) +
		`" style="` + esc(style) + `" loading="eager" decoding="async" />`
	if link := t.Option("link", "href"); link != "" {
		return `<a class="inline-media-link" href="` + esc(link) + `">` + img + `</a>`
	}
	return img
}

func imageHTML(t *Image) string {
	src := strings.TrimSpace(t.Src)
	if src == "" {
		return ""
	}
	align := t.Align
	if _, ok := parseAlign(string(align)); !ok {
		align = AlignCenter
	}
	fit := t.Fit
	if fit != "cover" {
		fit = "contain"
	}

	var style []string
	if w, ok := SafeSize(t.Width); ok {
		style = append(style, "--wimage-w:"+w)
	}
	// fit only matters with a fixed height
	if hgt, ok := SafeSize(t.Height); ok {
		style = append(style, "--wimage-h:"+hgt, "--wimage-fit:"+fit)
	}

	var b strings.Builder
	b.WriteString(`<figure class="wimage align-` + esc(string(align)) + `"`)
	if len(style) > 0 {
		b.WriteString(` style="` + esc(strings.Join(style, ";")) + `"`)
	}
	b.WriteString(`><div class="wimage-media">`)
	img := `<img src="` + esc(src) + `" alt="` + esc(strings.TrimSpace(t.Alt)) + `" loading="eager" decoding="async" />`
	if link := strings.TrimSpace(t.Link); link != "" {
		b.WriteString(`<a class="wimage-link" href="` + esc(link) + `">` + img + `</a>`)
	} else {
		b.WriteString(img)
	}
	b.WriteString(`</div>`)
	if caption := strings.TrimSpace(t.Caption); caption != "" {
		b.WriteString(`<figcaption class="wimage-cap">` + esc(caption) + `</figcaption>`)
	}
	b.WriteString(`</figure>`)
	return b.String()
}

func galleryHTML(t *Gallery) string {
	items := t.Items
	if items == nil {
		items = []GalleryItem{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a slice of plain structs cannot fail.
	_ = enc.Encode(items)
	payload := EncodeURIComponent(strings.TrimSuffix(buf.String(), "\n"))

	align := t.Align
	if align == "" {
		align = AlignCenter
	}
	width := ""
	if t.Width > 0 {
		width = strconv.FormatFloat(t.Width, 'f', -1, 64)
	}
	return `<div class="wgallery" data-align="` + esc(string(align)) + `" data-width="` + esc(width) +
		`" data-items="` + esc(payload) + `"></div>`
}

func (h *HTML) download(t *Download) string {
	file := t.File
	size := ""
	if file != "" {
		if n, ok := h.Assets.FileSize(file); ok {
			size = HumanSize(n)
		}
	}
	label := t.Label
	if label == "" && file != "" {
		label = path.Base(file)
	}

	var b strings.Builder
	b.WriteString(`<div class="wdownload"><a class="download-card" href="` + esc(file) + `" download>`)
	b.WriteString(`<div class="download-icon"><img src="` + DownloadIcon + `" alt="" /></div>`)
	b.WriteString(`<div class="download-info"><div class="download-label">` + esc(label) + `</div>`)
	if size != "" {
		b.WriteString(`<div class="download-size">` + esc(size) + `</div>`)
	}
	if t.Desc != "" {
		b.WriteString(`<div class="download-desc">` + esc(t.Desc) + `</div>`)
	}
	b.WriteString(`</div></a></div>`)
	return b.String()
}

func (h *HTML) callout(t *Callout) string {
	typ := t.Type
	if !isCalloutType(string(typ)) {
		typ = CalloutNote
	}
	title := t.Title
	if title == "" {
		title = calloutTitles[typ]
	}
	icon := ""
	if ref := strings.TrimSpace(t.Icon); ref != "" {
		icon = h.Assets.ResolveIcon(ref)
	}

	var b strings.Builder
	b.WriteString(`<div class="callout ` + esc(string(typ)))
	if icon != "" {
		b.WriteString(` has-icon`)
	}
	b.WriteString(`"><div class="callout-inner">`)
	if icon != "" {
		b.WriteString(`<div class="callout-icon"><img src="` + esc(icon) + `" alt="" loading="eager" decoding="async" /></div>`)
	}
	b.WriteString(`<div class="callout-content"><div class="callout-title">` + esc(title) + `</div>`)
	b.WriteString(`<div class="callout-body">`)
	if t.Body != "" {
		b.WriteString(h.block(t.Body))
	}
	b.WriteString(`</div></div></div></div>`)
	return b.String()
}

// inline renders src as a single paragraph and strips the wrapper.
func (h *HTML) inline(src string) string {
	if h.Markdown == nil || strings.TrimSpace(src) == "" {
		return esc(src)
	}
	var buf bytes.Buffer
	if err := h.Markdown.Convert([]byte(src), &buf); err != nil {
		return esc(src)
	}
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = out[len("<p>") : len(out)-len("</p>")]
	}
	return out
}

// block renders a callout body. Heading IDs get a prefix derived from the
// body so they do not collide with headings of the surrounding page.
func (h *HTML) block(src string) string {
	if h.Markdown == nil {
		return "<p>" + esc(src) + "</p>"
	}
	pc := parser.NewContext(parser.WithIDs(newPrefixedIDs(src)))
	var buf bytes.Buffer
	if err := h.Markdown.Convert([]byte(src), &buf, parser.WithContext(pc)); err != nil {
		return "<p>" + esc(src) + "</p>"
	}
	return buf.String()
}

type prefixedIDs struct {
	prefix []byte
	ids    parser.IDs
}

func newPrefixedIDs(body string) *prefixedIDs {
	sum := fnv.New32a()
	_, _ = sum.Write([]byte(body))
	return &prefixedIDs{
		prefix: []byte(fmt.Sprintf("callout-%08x-", sum.Sum32())),
		ids:    parser.NewContext().IDs(),
	}
}

func (p *prefixedIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	id := p.ids.Generate(value, kind)
	return append(append([]byte{}, p.prefix...), id...)
}

func (p *prefixedIDs) Put(value []byte) {
	p.ids.Put(value)
}

const uriUnreserved = "-_.!~*'()"

// EncodeURIComponent percent-encodes everything except ASCII letters,
// digits and -_.!~*'(), byte by byte over the UTF-8 encoding.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(uriUnreserved, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}
