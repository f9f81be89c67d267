package tree

import (
	"path"
	"path/filepath"
	"strings"
)

// Route pairs a normalized URL path with the page rendered there.
type Route struct {
	Path string
	Page *Page
}

// Routes is the route table: normalized URL path to page, in walk order.
type Routes struct {
	entries  []Route
	index    map[string]int
	sources  map[string]string
	shadowed []Route
}

// BuildRoutes walks the tree depth first. A section contributes its index
// page under the section path before its children; sections without an
// index contribute nothing. When two pages claim one path the later page
// wins, keeps the earlier position, and the loser is reported by Shadowed.
func BuildRoutes(root *Section) *Routes {
	r := &Routes{
		index:   make(map[string]int),
		sources: make(map[string]string),
	}
	if root == nil {
		return r
	}
	if root.Index != nil && root.Path != "" {
		r.add(root.Path, root.Index)
	}
	for _, child := range root.Children {
		r.walk(child)
	}
	return r
}

func (r *Routes) walk(n Node) {
	switch v := n.(type) {
	case *Page:
		r.add(v.Path, v)
	case *Section:
		if v.Index != nil {
			r.add(v.Path, v.Index)
		}
		for _, child := range v.Children {
			r.walk(child)
		}
	}
}

func (r *Routes) add(p string, page *Page) {
	key := NormalizePath(p)
	if i, ok := r.index[key]; ok {
		old := r.entries[i]
		r.shadowed = append(r.shadowed, old)
		if src := sourceKey(old.Page.Source); src != "" && r.sources[src] == key {
			delete(r.sources, src)
		}
		r.entries[i] = Route{Path: key, Page: page}
	} else {
		r.index[key] = len(r.entries)
		r.entries = append(r.entries, Route{Path: key, Page: page})
	}
	if src := sourceKey(page.Source); src != "" {
		r.sources[src] = key
	}
}

func sourceKey(file string) string {
	if file == "" {
		return ""
	}
	return filepath.Clean(file)
}

// NormalizePath maps a request path to a route key: a leading slash, no
// trailing slash, and "/" for the root.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

// Lookup returns the page served at urlPath.
func (r *Routes) Lookup(urlPath string) (*Page, bool) {
	i, ok := r.index[NormalizePath(urlPath)]
	if !ok {
		return nil, false
	}
	return r.entries[i].Page, true
}

// All returns the routes in walk order.
func (r *Routes) All() []Route {
	return append([]Route(nil), r.entries...)
}

// Len reports the number of routes.
func (r *Routes) Len() int {
	return len(r.entries)
}

// Shadowed returns pages replaced by a later page with the same path.
func (r *Routes) Shadowed() []Route {
	return append([]Route(nil), r.shadowed...)
}

// ResolveSource maps a markdown file to the route that renders it.
func (r *Routes) ResolveSource(file string) (string, bool) {
	p, ok := r.sources[sourceKey(file)]
	return p, ok
}
