package tree_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/euforicio/wikigen/internal/content/tree"
)

func TestBuildRoutes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"home/index.md":         "---\ntitle: Home\n---\n",
		"home/about.md":         "about\n",
		"docs/guide/index.md":   "guide\n",
		"docs/guide/a.md":       "a\n",
		"docs/reference.md":     "---\ntitle: Reference\norder: 5\n---\n",
		"grouping/only/page.md": "page\n",
	})

	sec := build(t, root, quietOptions())
	routes := tree.BuildRoutes(sec)

	var got []string
	for _, r := range routes.All() {
		got = append(got, r.Path)
	}
	want := []string{
		"/docs/guide",
		"/docs/guide/a",
		"/docs/reference",
		"/grouping/only/page",
		"/home",
		"/home/about",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("routes mismatch (-want +got):\n%s", diff)
	}

	seen := make(map[*tree.Page]int)
	for _, r := range routes.All() {
		seen[r.Page]++
	}
	tree.Walk(sec, func(n tree.Node, _ int) bool {
		switch v := n.(type) {
		case *tree.Page:
			if seen[v] != 1 {
				t.Errorf("page %s routed %d times", v.Path, seen[v])
			}
		case *tree.Section:
			if v.Index != nil && seen[v.Index] != 1 {
				t.Errorf("index of %s routed %d times", v.Path, seen[v.Index])
			}
		}
		return true
	})
	if routes.Len() != len(seen) {
		t.Fatalf("expected %d distinct pages, got %d routes", len(seen), routes.Len())
	}

	for _, p := range []string{"/home/about", "/home/about/", "home/about", "/home//about"} {
		page, ok := routes.Lookup(p)
		if !ok || page.Title != "about" {
			t.Fatalf("Lookup(%q) = %v, %v", p, page, ok)
		}
	}
	if _, ok := routes.Lookup("/grouping"); ok {
		t.Fatalf("sections without an index must not be routed")
	}

	if p, ok := routes.ResolveSource(filepath.Join(root, "docs", "guide", "index.md")); !ok || p != "/docs/guide" {
		t.Fatalf("ResolveSource index = %q, %v", p, ok)
	}
	if _, ok := routes.ResolveSource(filepath.Join(root, "missing.md")); ok {
		t.Fatalf("unknown sources must not resolve")
	}
}

func TestBuildRoutesShadowing(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"s/one.md":   "---\nslug: same\n---\n",
		"s/two.md":   "---\nslug: same\n---\n",
		"s/other.md": "other\n",
	})

	routes := tree.BuildRoutes(build(t, root, quietOptions()))
	if routes.Len() != 2 {
		t.Fatalf("expected 2 routes, got %d", routes.Len())
	}
	page, ok := routes.Lookup("/s/same")
	if !ok || page.Title != "two" {
		t.Fatalf("expected the later page to win, got %+v", page)
	}
	if got := routes.All()[0].Path; got != "/s/same" {
		t.Fatalf("winner should keep the first position, got %q", got)
	}

	shadowed := routes.Shadowed()
	if len(shadowed) != 1 || shadowed[0].Page.Title != "one" {
		t.Fatalf("expected one shadowed page, got %+v", shadowed)
	}
	if _, ok := routes.ResolveSource(filepath.Join(root, "s", "one.md")); ok {
		t.Fatalf("shadowed source should not resolve")
	}
	if p, ok := routes.ResolveSource(filepath.Join(root, "s", "two.md")); !ok || p != "/s/same" {
		t.Fatalf("ResolveSource = %q, %v", p, ok)
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":          "/",
		"/":         "/",
		" /a/b/ ":   "/a/b",
		"a":         "/a",
		"/a/../b":   "/b",
		"/Главная/": "/Главная",
	}
	for in, want := range cases {
		if got := tree.NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}

	if tree.BuildRoutes(nil).Len() != 0 {
		t.Fatalf("nil tree should have no routes")
	}
}
