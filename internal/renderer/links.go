package renderer

import (
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// LinkResolver maps a markdown source file to the URL path it is served at.
type LinkResolver interface {
	ResolveSource(file string) (string, bool)
}

var (
	docPathKey = parser.NewContextKey()
	linksKey   = parser.NewContextKey()
)

// linkTransformer rewrites relative links to .md files into route paths.
// Links to files outside the tree are left alone.
type linkTransformer struct {
	logger *slog.Logger
}

func (t *linkTransformer) Transform(node *ast.Document, _ text.Reader, pc parser.Context) {
	links, ok := pc.Get(linksKey).(LinkResolver)
	if !ok || links == nil {
		return
	}
	docPath, _ := pc.Get(docPathKey).(string)
	if docPath == "" {
		return
	}
	dir := filepath.Dir(docPath)

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			if dest, ok := rewriteLink(string(link.Destination), dir, links); ok {
				link.Destination = []byte(dest)
			} else if isMarkdownTarget(string(link.Destination)) {
				t.logger.Debug("link: unresolved markdown target", "doc", docPath, "dest", string(link.Destination))
			}
		}
		return ast.WalkContinue, nil
	})
}

func rewriteLink(dest, dir string, links LinkResolver) (string, bool) {
	if !isMarkdownTarget(dest) {
		return "", false
	}
	target, fragment, _ := strings.Cut(dest, "#")
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	file := filepath.Join(dir, filepath.FromSlash(target))
	route, ok := links.ResolveSource(file)
	if !ok {
		return "", false
	}
	if fragment != "" {
		route += "#" + fragment
	}
	return route, true
}

// isMarkdownTarget reports whether dest is a relative link to a markdown file.
func isMarkdownTarget(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext == ".md" || ext == ".markdown"
}
