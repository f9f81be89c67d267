// Package site turns the content tree and rendered documents into full
// HTML pages, either for the dev server or for a static output tree.
package site

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Base is a normalized site prefix such as "/" or "/wiki/". Project pages
// hosted under a sub-path set it from BASE_PATH.
type Base string

// NormalizeBase trims b and wraps it in slashes. Empty input yields "/".
func NormalizeBase(b string) Base {
	b = strings.TrimSpace(b)
	if b == "" {
		return "/"
	}
	if !strings.HasPrefix(b, "/") {
		b = "/" + b
	}
	if !strings.HasSuffix(b, "/") {
		b += "/"
	}
	return Base(b)
}

func (b Base) String() string {
	if b == "" {
		return "/"
	}
	return string(b)
}

// URL prefixes a site-relative URL. Absolute and protocol-relative URLs
// are returned unchanged.
func (b Base) URL(u string) string {
	if u == "" {
		return u
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//") {
		return u
	}
	return b.String() + strings.TrimPrefix(u, "/")
}

// Href is the link for a route path. A trailing slash is added so static
// hosts resolve the directory index.
func (b Base) Href(urlPath string) string {
	if urlPath == "" || urlPath == "/" {
		return b.URL("/")
	}
	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	return b.URL(urlPath)
}

var rootAttrRe = regexp.MustCompile(`\b(href|src)=(["'])/`)

// Apply rewrites root-relative href and src attributes in rendered HTML
// so they carry the prefix. Protocol-relative URLs are left alone.
func (b Base) Apply(html string) string {
	if b.String() == "/" {
		return html
	}
	var out strings.Builder
	last := 0
	for _, m := range rootAttrRe.FindAllStringIndex(html, -1) {
		slash := m[1] - 1
		if m[1] < len(html) && html[m[1]] == '/' {
			continue
		}
		out.WriteString(html[last:slash])
		out.WriteString(string(b))
		last = m[1]
	}
	if last == 0 {
		return html
	}
	out.WriteString(html[last:])
	return out.String()
}

// OutputPath maps a route path to <out>/<path>/index.html.
func OutputPath(outDir, urlPath string) string {
	clean := strings.Trim(urlPath, "/")
	if clean == "" {
		return filepath.Join(outDir, "index.html")
	}
	return filepath.Join(outDir, filepath.FromSlash(clean), "index.html")
}
