package renderer_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/euforicio/wikigen/internal/renderer"
)

func TestReadFrontMatter(t *testing.T) {
	t.Parallel()

	meta := renderer.ReadFrontMatter([]byte("---\n" +
		"title: '  Главная  '\n" +
		"slug: home\n" +
		"order: 2.9\n" +
		"summary: Short\n" +
		"hideTitle: true\n" +
		"showTitle: \"false\"\n" +
		"header:\n" +
		"  image: /a.png\n" +
		"  height: 240\n" +
		"keywords: single\n" +
		"---\n\nbody\n"))

	if meta.Title != "Главная" || meta.Slug != "home" || meta.Description != "Short" {
		t.Fatalf("unexpected interpreted keys: %+v", meta)
	}
	if order, ok := meta.Order(); !ok || order != 2 {
		t.Fatalf("expected truncated order 2, got %d (%v)", order, ok)
	}
	if v, ok := meta.Bool("hideTitle"); !ok || !v {
		t.Fatalf("expected hideTitle=true")
	}
	if v, ok := meta.Bool("showTitle"); !ok || v {
		t.Fatalf("expected showTitle=false")
	}
	if _, ok := meta.Bool("title"); ok {
		t.Fatalf("non-boolean strings must not parse as bool")
	}
	if diff := cmp.Diff([]string{"single"}, meta.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}

	header, ok := meta.Lookup("header")
	if !ok {
		t.Fatalf("expected nested header map")
	}
	want := map[string]any{"image": "/a.png", "height": float64(240)}
	if diff := cmp.Diff(want, header); diff != "" {
		t.Fatalf("nested map mismatch (-want +got):\n%s", diff)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("metadata JSON is invalid: %v", err)
	}
	if decoded["slug"] != "home" {
		t.Fatalf("expected raw keys in JSON, got %s", data)
	}
}

func TestReadFrontMatterDegrades(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"none":      "# Just a heading\n",
		"malformed": "---\ntitle: [unclosed\n---\nbody\n",
		"empty":     "---\n---\nbody\n",
	}
	for name, src := range cases {
		meta := renderer.ReadFrontMatter([]byte(src))
		if !meta.IsZero() {
			t.Errorf("%s: expected empty metadata, got %+v", name, meta)
		}
		if _, ok := meta.Order(); ok {
			t.Errorf("%s: expected no order", name)
		}
	}

	typed := renderer.ReadFrontMatter([]byte("---\ntitle: 42\norder: first\n---\n"))
	if typed.Title != "" {
		t.Fatalf("numeric title should be ignored, got %q", typed.Title)
	}
	if _, ok := typed.Order(); ok {
		t.Fatalf("non-numeric order should be ignored")
	}
	if data, _ := json.Marshal(renderer.Metadata{}); string(data) != "{}" {
		t.Fatalf("empty metadata should encode as {}, got %s", data)
	}
}
