package site

import (
	"html"
	"html/template"
	"strings"

	"github.com/euforicio/wikigen/internal/content/tree"
)

const iconAttrs = `viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"`

var builtinIcons = map[string]string{
	"home":   `<path d="M3 11.5 12 4l9 7.5"/><path d="M5 10.8V20h14v-9.2"/>`,
	"book":   `<path d="M4 19.5V6a2 2 0 0 1 2-2h6v17H6a2 2 0 0 1-2-2.5Z"/><path d="M20 19.5V6a2 2 0 0 0-2-2h-6v17h6a2 2 0 0 0 2-1.5Z"/>`,
	"image":  `<rect x="4" y="6" width="16" height="12" rx="2"/><path d="m8 14 2-2 3 3 3-4 3 4"/>`,
	"spark":  `<path d="M12 2v4"/><path d="M12 18v4"/><path d="M4 12h4"/><path d="M16 12h4"/><path d="m5 5 3 3"/><path d="m16 16 3 3"/><path d="m19 5-3 3"/><path d="m8 16-3 3"/><path d="M12 8a4 4 0 1 0 0 8"/>`,
	"file":   `<path d="M14 2H6a2 2 0 0 0-2 2v16a2 2 0 0 0 2 2h12a2 2 0 0 0 2-2V8Z"/><path d="M14 2v6h6"/><path d="M16 13H8"/><path d="M16 17H8"/><path d="M10 9H8"/>`,
	"folder": `<path d="M3 7a2 2 0 0 1 2-2h4l2 2h8a2 2 0 0 1 2 2v9a2 2 0 0 1-2 2H5a2 2 0 0 1-2-2Z"/>`,
}

// iconSVG returns a built-in icon. Unknown names get the folder.
func iconSVG(name string) string {
	body, ok := builtinIcons[name]
	if !ok {
		body = builtinIcons["folder"]
	}
	return `<svg class="nav-icon-svg" ` + iconAttrs + `>` + body + `</svg>`
}

// icon renders an icon reference inside a span of class cls. References
// containing a slash are image URLs, names found in the icons directory
// become images, and anything else is a built-in icon name.
func (s *Shell) icon(raw, cls string) template.HTML {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	open := `<span class="` + html.EscapeString(cls) + `" aria-hidden="true">`
	if strings.Contains(raw, "/") {
		src := raw
		if strings.HasPrefix(raw, "/") {
			src = s.opts.Base.URL(raw)
		}
		return template.HTML(open + imgTag(src) + `</span>`) //nolint:gosec // attribute values are escaped
	}
	if url, ok := s.opts.Assets.LookupIcon(raw); ok {
		return template.HTML(open + imgTag(s.opts.Base.URL(url)) + `</span>`) //nolint:gosec // attribute values are escaped
	}
	return template.HTML(open + iconSVG(raw) + `</span>`) //nolint:gosec // static markup
}

func imgTag(src string) string {
	return `<img src="` + html.EscapeString(src) + `" alt="" loading="eager" decoding="async" />`
}

// navIcon picks the icon for a navigation entry: the node's own icon
// metadata first, then a guess from its slug and title.
func (s *Shell) navIcon(n tree.Node) template.HTML {
	var (
		meta    = nodeMeta(n)
		e       = tree.Info(n)
		guessed string
	)
	if raw, ok := meta.String("icon"); ok {
		return s.icon(raw, "nav-icon")
	}
	if _, ok := n.(*tree.Section); ok {
		guessed = sectionIconName(e.Slug, e.Title)
	} else {
		guessed = pageIconName(e.Slug, e.Title)
	}
	return template.HTML(`<span class="nav-icon" aria-hidden="true">` + iconSVG(guessed) + `</span>`) //nolint:gosec // static markup
}

func sectionIconName(slug, title string) string {
	s, t := strings.ToLower(slug), strings.ToLower(title)
	switch {
	case strings.Contains(s, "home") || strings.Contains(t, "глав"):
		return "home"
	case strings.Contains(s, "demo") || strings.Contains(t, "демо"):
		return "spark"
	case strings.Contains(s, "gallery") || strings.Contains(t, "галер"):
		return "image"
	case strings.Contains(s, "doc") || strings.Contains(s, "section") || strings.Contains(t, "раздел") || strings.Contains(t, "док"):
		return "book"
	default:
		return "folder"
	}
}

func pageIconName(slug, title string) string {
	s, t := strings.ToLower(slug), strings.ToLower(title)
	if strings.Contains(s, "install") || strings.Contains(t, "установ") {
		return "spark"
	}
	return "file"
}
