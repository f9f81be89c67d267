package site

import (
	"path/filepath"
	"testing"
)

func TestNormalizeBase(t *testing.T) {
	t.Parallel()
	cases := map[string]Base{
		"":          "/",
		"   ":       "/",
		"/":         "/",
		"wiki":      "/wiki/",
		"/wiki":     "/wiki/",
		"wiki/":     "/wiki/",
		" /a/b/ ":   "/a/b/",
		"/repo.io/": "/repo.io/",
	}
	for in, want := range cases {
		if got := NormalizeBase(in); got != want {
			t.Fatalf("NormalizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseURLAndHref(t *testing.T) {
	t.Parallel()
	b := NormalizeBase("/wiki")
	urls := map[string]string{
		"":                "",
		"/x.png":          "/wiki/x.png",
		"x.png":           "/wiki/x.png",
		"https://cdn/x":   "https://cdn/x",
		"http://cdn/x":    "http://cdn/x",
		"//cdn.example/x": "//cdn.example/x",
		"/assets/icons/a": "/wiki/assets/icons/a",
	}
	for in, want := range urls {
		if got := b.URL(in); got != want {
			t.Fatalf("URL(%q) = %q, want %q", in, got, want)
		}
	}

	hrefs := map[string]string{
		"":      "/wiki/",
		"/":     "/wiki/",
		"/a/b":  "/wiki/a/b/",
		"/a/":   "/wiki/a/",
		"/docs": "/wiki/docs/",
	}
	for in, want := range hrefs {
		if got := b.Href(in); got != want {
			t.Fatalf("Href(%q) = %q, want %q", in, got, want)
		}
	}

	if got := Base("").Href("/a"); got != "/a/" {
		t.Fatalf("zero base Href = %q", got)
	}
}

func TestBaseApply(t *testing.T) {
	t.Parallel()
	b := NormalizeBase("/wiki/")
	cases := []struct {
		in, want string
	}{
		{`<a href="/docs/page">x</a>`, `<a href="/wiki/docs/page">x</a>`},
		{`<img src='/img/a.png'>`, `<img src='/wiki/img/a.png'>`},
		{`<img src="//cdn/a.png">`, `<img src="//cdn/a.png">`},
		{`<a href="https://x.y/">x</a>`, `<a href="https://x.y/">x</a>`},
		{`<a href="#top">x</a>`, `<a href="#top">x</a>`},
		{`<a href="/a"><img src="/b"></a>`, `<a href="/wiki/a"><img src="/wiki/b"></a>`},
		{`plain text`, `plain text`},
	}
	for _, tc := range cases {
		if got := b.Apply(tc.in); got != tc.want {
			t.Fatalf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	root := NormalizeBase("")
	if got := root.Apply(`<a href="/docs">x</a>`); got != `<a href="/docs">x</a>` {
		t.Fatalf("root base should not rewrite, got %q", got)
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()
	out := filepath.Join("site")
	cases := map[string]string{
		"/":          filepath.Join("site", "index.html"),
		"":           filepath.Join("site", "index.html"),
		"/docs":      filepath.Join("site", "docs", "index.html"),
		"/docs/page": filepath.Join("site", "docs", "page", "index.html"),
		"/docs/":     filepath.Join("site", "docs", "index.html"),
	}
	for in, want := range cases {
		if got := OutputPath(out, in); got != want {
			t.Fatalf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}
