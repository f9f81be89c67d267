package site

import (
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/euforicio/wikigen/internal/content/tree"
	"github.com/euforicio/wikigen/internal/renderer"
	"github.com/euforicio/wikigen/internal/renderer/macro"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// DefaultTitle names the site in breadcrumbs and the 404 page.
const DefaultTitle = "Wiki"

// ShellOptions configure page decoration.
type ShellOptions struct {
	Base Base
	// Assets resolves named icons for navigation and page titles.
	Assets    *macro.Assets
	SiteTitle string
	// LiveReload adds the dev server's change listener to every page.
	LiveReload bool
}

// Shell wraps rendered documents in the site layout: navigation,
// breadcrumbs, header image, title, table of contents and section cards.
type Shell struct {
	tmpl *template.Template
	opts ShellOptions
}

// NewShell parses the embedded layout templates.
func NewShell(opts ShellOptions) (*Shell, error) {
	if opts.Base == "" {
		opts.Base = "/"
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = DefaultTitle
	}
	tmpl, err := template.New("layout").ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Shell{tmpl: tmpl, opts: opts}, nil
}

// Base returns the configured site prefix.
func (s *Shell) Base() Base {
	return s.opts.Base
}

// Layout is the view model of one full page.
//
//nolint:govet // field order follows the template
type Layout struct {
	SiteTitle   string
	Base        string
	Title       string
	Description string
	Path        string
	Crumbs      []Crumb
	Nav         []NavItem
	Header      *Header
	ShowTitle   bool
	TitleIcon   template.HTML
	Body        template.HTML
	TOC         template.HTML
	Listing     []Card
	Missing     bool
	LiveReload  bool
}

// Crumb is one breadcrumb entry. The last crumb has no link.
type Crumb struct {
	Title string
	Href  string
}

// NavItem is a navigation entry. Sections with an index page are links,
// sections without one are plain labels.
type NavItem struct {
	Title    string
	Href     string
	Path     string
	Icon     template.HTML
	Depth    int
	Section  bool
	Link     bool
	Open     bool
	Active   bool
	Children []NavItem
}

// State is the CSS state class of a section entry.
func (n NavItem) State() string {
	switch {
	case len(n.Children) == 0:
		return "is-leaf"
	case n.Open:
		return "is-open"
	default:
		return "is-collapsed"
	}
}

// Header is the optional banner image above the title.
type Header struct {
	Src   string
	Alt   string
	Style template.CSS
}

// Card links a child of a section from the section's index page.
type Card struct {
	Badge string
	Meta  string
	Title string
	Href  string
}

// Page builds the layout for a routed page.
func (s *Shell) Page(root *tree.Section, page *tree.Page, doc renderer.Document) Layout {
	meta := doc.Metadata
	title := meta.Title
	sec, isIndex := tree.SectionFor(root, page)
	if title == "" {
		if isIndex {
			title = sec.Title
		} else {
			title = page.Title
		}
	}

	l := s.base(root, page.Path)
	l.Title = title
	l.Description = meta.Description
	l.Crumbs = s.crumbs(root, page.Path)
	l.Header = s.header(meta, title)
	l.ShowTitle = !hideTitle(meta)
	l.TitleIcon = s.icon(meta.Icon, "page-title-icon")
	l.Body = template.HTML(s.opts.Base.Apply(doc.HTML)) //nolint:gosec // HTML from trusted renderer
	l.TOC = template.HTML(doc.TOC)                        //nolint:gosec // HTML from trusted renderer
	if isIndex {
		l.Listing = s.listing(sec)
	}
	return l
}

// NotFound builds the 404 layout.
func (s *Shell) NotFound(root *tree.Section, urlPath string) Layout {
	l := s.base(root, urlPath)
	l.Title = "404"
	l.Missing = true
	l.Crumbs = []Crumb{{Title: s.opts.SiteTitle}, {Title: "404"}}
	return l
}

// Empty builds the placeholder shown when the content tree has no pages.
func (s *Shell) Empty(root *tree.Section) Layout {
	l := s.base(root, "/")
	l.Title = s.opts.SiteTitle
	l.Crumbs = []Crumb{{Title: s.opts.SiteTitle}}
	l.ShowTitle = true
	l.Body = template.HTML("<p>Создай первую страницу в папке content</p>")
	return l
}

func (s *Shell) base(root *tree.Section, urlPath string) Layout {
	return Layout{
		SiteTitle:  s.opts.SiteTitle,
		Base:       s.opts.Base.String(),
		Path:       urlPath,
		Nav:        s.nav(root, urlPath),
		LiveReload: s.opts.LiveReload,
	}
}

// Render executes the layout template.
func (s *Shell) Render(w io.Writer, l Layout) error {
	return s.tmpl.ExecuteTemplate(w, "layout", l)
}

// Redirect is a standalone page that forwards the browser to to.
func Redirect(to string) string {
	esc := html.EscapeString(to)
	script, _ := json.Marshal(to)
	return `<!doctype html><meta charset="utf-8"><meta http-equiv="refresh" content="0; url=` + esc +
		`"><link rel="canonical" href="` + esc + `"><script>location.replace(` + string(script) +
		`)</script><title>Redirect</title>`
}

func (s *Shell) nav(root *tree.Section, active string) []NavItem {
	if root == nil {
		return nil
	}
	active = tree.NormalizePath(active)
	items := make([]NavItem, 0, len(root.Children))
	for _, child := range root.Children {
		items = append(items, s.navItem(child, 0, active))
	}
	return items
}

func (s *Shell) navItem(n tree.Node, depth int, active string) NavItem {
	e := tree.Info(n)
	item := NavItem{
		Title: e.Title,
		Path:  e.Path,
		Href:  s.opts.Base.Href(e.Path),
		Icon:  s.navIcon(n),
		Depth: depth,
	}
	sec, ok := n.(*tree.Section)
	if !ok {
		item.Active = e.Path == active
		return item
	}
	item.Section = true
	item.Link = sec.Index != nil
	item.Active = item.Link && e.Path == active
	item.Open = e.Path == active || strings.HasPrefix(active, e.Path+"/")
	for _, child := range sec.Children {
		item.Children = append(item.Children, s.navItem(child, depth+1, active))
	}
	return item
}

// crumbs lists the titles from the top-level section down to urlPath.
// Intermediate entries link to their page when one is routed there.
func (s *Shell) crumbs(root *tree.Section, urlPath string) []Crumb {
	trail := tree.Trail(root, urlPath)
	if len(trail) == 0 {
		return []Crumb{{Title: s.opts.SiteTitle}}
	}
	out := make([]Crumb, 0, len(trail))
	for i, n := range trail {
		e := tree.Info(n)
		c := Crumb{Title: e.Title}
		if sec, ok := n.(*tree.Section); ok && sec.Index != nil && i < len(trail)-1 {
			c.Href = s.opts.Base.Href(sec.Path)
		}
		out = append(out, c)
	}
	return out
}

func (s *Shell) listing(sec *tree.Section) []Card {
	cards := make([]Card, 0, len(sec.Children))
	for _, child := range sec.Children {
		e := tree.Info(child)
		card := Card{Badge: "СТРАНИЦА", Meta: e.Slug, Title: e.Title, Href: s.opts.Base.Href(e.Path)}
		if _, ok := child.(*tree.Section); ok {
			card.Badge = "РАЗДЕЛ"
		}
		cards = append(cards, card)
	}
	return cards
}

var (
	headerFits = map[string]bool{"cover": true, "contain": true}
	headerPos  = regexp.MustCompile(`^(center|top|bottom|left|right)(\s+(center|top|bottom|left|right))?$`)
)

// header reads the banner image keys. Height goes through the CSS size
// whitelist; fit and position fall back to cover and center.
func (s *Shell) header(meta renderer.Metadata, fallbackAlt string) *Header {
	src := scalar(meta, "header", "headerImage", "header_image", "hero")
	if src == "" {
		return nil
	}
	if strings.HasPrefix(src, "/") {
		src = s.opts.Base.URL(src)
	}
	alt := scalar(meta, "headerAlt", "header_alt", "heroAlt")
	if alt == "" {
		alt = fallbackAlt
	}

	fit := scalar(meta, "headerFit", "header_fit", "heroFit")
	if !headerFits[fit] {
		fit = "cover"
	}
	pos := scalar(meta, "headerPos", "header_pos", "headerPosition")
	if !headerPos.MatchString(pos) {
		pos = "center"
	}
	style := "--header-fit:" + fit + ";--header-pos:" + pos
	if h, ok := macro.SafeSize(scalar(meta, "headerHeight", "header_height", "heroHeight")); ok {
		style += ";--header-h:" + h
	}
	return &Header{Src: src, Alt: alt, Style: template.CSS(style)} //nolint:gosec // built from whitelisted values
}

// scalar returns the first key holding a string or number, as text.
func scalar(meta renderer.Metadata, keys ...string) string {
	for _, k := range keys {
		switch v := meta.Raw[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

var (
	hideKeys = []string{"hideTitle", "hide_title", "noTitle", "no_title"}
	showKeys = []string{"showTitle", "show_title"}
)

// hideTitle applies the first present hide flag, then an explicit false
// show flag.
func hideTitle(meta renderer.Metadata) bool {
	for _, k := range hideKeys {
		if v, ok := meta.Lookup(k); ok && v != nil {
			if truthy(v) {
				return true
			}
			break
		}
	}
	for _, k := range showKeys {
		if v, ok := meta.Raw[k].(bool); ok && !v {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
		return val != ""
	default:
		return v != nil
	}
}

func nodeMeta(n tree.Node) renderer.Metadata {
	switch v := n.(type) {
	case *tree.Page:
		return v.Meta
	case *tree.Section:
		return v.Meta
	}
	return renderer.Metadata{}
}
