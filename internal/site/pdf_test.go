package site

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/euforicio/wikigen/internal/renderer/d2"
)

type stubDiagrams struct {
	svg string
	err error
}

func (s stubDiagrams) Render(context.Context, string) (d2.Result, error) {
	return d2.Result{SVG: s.svg}, s.err
}

func TestPDFFlatten(t *testing.T) {
	t.Parallel()
	p := NewPDFExporter(nil, discardLogger())
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "inline macros",
			in:   "A <gradient:#f00:#00f>bright</gradient> and <#ff0000>red</#ff0000> word, [[page:/docs|Docs]] [[icon:idea]] [[img:/a.png|alt=Pic]]\n",
			want: "A bright and red word, Docs  ![Pic](/a.png)\n",
		},
		{
			name: "image block",
			in:   "```image\nsrc: /img/a.png\nalt: Cat\ncaption: A cat\n```\nafter\n",
			want: "![Cat](/img/a.png)\n\n*A cat*\n\nafter\n",
		},
		{
			name: "download block",
			in:   "```download\nfile: /files/a.zip\nlabel: Archive\n```\n",
			want: "**[Archive](/files/a.zip)**\n\n",
		},
		{
			name: "callout block",
			in:   "```callout\ntype: tip\ntitle: Hint\nUse <#00ff00>green</#00ff00>.\n```\n",
			want: "> **Hint**\n>\n> Use green.\n\n",
		},
		{
			name: "code fences untouched",
			in:   "```go\n[[page:/x]]\n```\n",
			want: "```go\n[[page:/x]]\n```\n",
		},
		{
			name: "unclosed macro fence stays code",
			in:   "```image\nsrc: /a.png\n",
			want: "```image\nsrc: /a.png\n",
		},
		{
			name: "d2 without renderer keeps source",
			in:   "```d2\na -> b\n```\n",
			want: "```d2\na -> b\n```\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, p.flatten(context.Background(), tc.in)); diff != "" {
				t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPDFFlattenD2(t *testing.T) {
	t.Parallel()
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"><rect x="0" y="0" width="20" height="10" fill="#336699"/></svg>`
	p := NewPDFExporter(stubDiagrams{svg: svg}, discardLogger())
	got := p.flatten(context.Background(), "```d2\na -> b\n```\n")
	if !strings.HasPrefix(got, "![D2 diagram](data:image/png;base64,") {
		t.Fatalf("expected embedded png, got %q", got)
	}

	failing := NewPDFExporter(stubDiagrams{err: errors.New("boom")}, discardLogger())
	if got := failing.flatten(context.Background(), "```d2\na -> b\n```\n"); got != "```d2\na -> b\n```\n" {
		t.Fatalf("failed diagrams should keep their source, got %q", got)
	}
}

func TestSplitFrontMatter(t *testing.T) {
	t.Parallel()
	front, body := splitFrontMatter("---\ntitle: x\n---\n# Body\n")
	if front != "---\ntitle: x\n---\n" || body != "# Body\n" {
		t.Fatalf("unexpected split %q / %q", front, body)
	}
	front, body = splitFrontMatter("# No front matter\n---\n")
	if front != "" || body != "# No front matter\n---\n" {
		t.Fatalf("unexpected split %q / %q", front, body)
	}
	front, body = splitFrontMatter("---\nunterminated\n")
	if front != "" || body != "---\nunterminated\n" {
		t.Fatalf("unterminated front matter should stay in the body: %q / %q", front, body)
	}
}

func TestPDFPage(t *testing.T) {
	t.Parallel()
	root := sampleTree(t)
	page := lookup(t, root, "/docs/page")

	var buf bytes.Buffer
	if err := NewPDFExporter(nil, discardLogger()).Page(context.Background(), &buf, page); err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF output, got %q", buf.Bytes()[:min(20, buf.Len())])
	}

	missing := *page
	missing.Source = filepath.Join(t.TempDir(), "gone.md")
	if err := NewPDFExporter(nil, discardLogger()).Page(context.Background(), &buf, &missing); err == nil {
		t.Fatalf("expected error for missing source")
	}
}
