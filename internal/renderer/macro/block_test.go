package macro_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/euforicio/wikigen/internal/renderer/macro"
)

func TestTokenizeBlock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		fence string
		want  macro.Token
	}{
		{
			name: "image",
			fence: "```image\n" +
				"src: /assets/pic.png\n" +
				"alt: Описание\n" +
				"align: left\n" +
				"width: 360\n" +
				"# fit: contain\n" +
				"fit: cover\n" +
				"link: /somewhere\n" +
				"```",
			want: &macro.Image{
				Src:   "/assets/pic.png",
				Alt:   "Описание",
				Link:  "/somewhere",
				Align: macro.AlignLeft,
				Width: "360",
				Fit:   "cover",
			},
		},
		{
			name: "image ignores invalid align and fit",
			fence: "```image  \n" +
				"file: a.png\n" +
				"align: middle\n" +
				"fit: fill\n" +
				"not a setting\n" +
				"```",
			want: &macro.Image{Src: "a.png", Align: macro.AlignCenter, Fit: "contain"},
		},
		{
			name: "gallery",
			fence: "```gallery\n" +
				"align: right\n" +
				"width: 240\n" +
				"/a.png | Первый\n" +
				"https://x.test/b.png\n" +
				"/c.png |   | ignored\n" +
				"  | no source\n" +
				"```",
			want: &macro.Gallery{
				Align: macro.AlignRight,
				Width: 240,
				Items: []macro.GalleryItem{
					{Src: "/a.png", Caption: "Первый"},
					{Src: "https://x.test/b.png"},
					{Src: "/c.png"},
				},
			},
		},
		{
			name:  "gallery with invalid width",
			fence: "```gallery\nwidth: -3\n/a.png\n```",
			want:  &macro.Gallery{Align: macro.AlignCenter, Items: []macro.GalleryItem{{Src: "/a.png"}}},
		},
		{
			name:  "empty gallery",
			fence: "```gallery\n```",
			want:  &macro.Gallery{Align: macro.AlignCenter},
		},
		{
			name: "download",
			fence: "```download\n" +
				"file: /files/report.pdf\n" +
				"label: Отчёт\n" +
				"description: Квартальный\n" +
				"```",
			want: &macro.Download{File: "/files/report.pdf", Label: "Отчёт", Desc: "Квартальный"},
		},
		{
			name: "callout",
			fence: "```callout\n" +
				"type: warning\n" +
				"title: Осторожно\n" +
				"icon: warn\n" +
				"\n" +
				"First **line**\n" +
				"  indented: yes\n" +
				"\n" +
				"type: bogus\n" +
				"```",
			want: &macro.Callout{
				Type:  macro.CalloutWarning,
				Title: "Осторожно",
				Icon:  "warn",
				Body:  "First **line**\n  indented: yes\n\ntype: bogus",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			n, tok := macro.TokenizeBlock(tc.fence + "\n\nafter")
			if n != len(tc.fence) {
				t.Fatalf("consumed %d bytes, want %d", n, len(tc.fence))
			}
			if diff := cmp.Diff(tc.want, tok); diff != "" {
				t.Fatalf("token mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizeBlockNoMatch(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"```image\nsrc: /a.png\n",
		"```image",
		"```go\nfmt.Println()\n```",
		"``` image\nsrc: a\n```",
		"text\n```image\nsrc: a\n```",
	} {
		if n, tok := macro.TokenizeBlock(src); tok != nil || n != 0 {
			t.Errorf("TokenizeBlock(%q) = %d, %#v; want no match", src, n, tok)
		}
	}
}

func TestTokenizeBlockClosingLine(t *testing.T) {
	t.Parallel()

	src := "```download\r\nfile: /a.zip\r\n  ```trailing\nrest"
	n, tok := macro.TokenizeBlock(src)
	if want := len("```download\r\nfile: /a.zip\r\n  ```trailing"); n != want {
		t.Fatalf("consumed %d bytes, want %d", n, want)
	}
	if diff := cmp.Diff(&macro.Download{File: "/a.zip"}, tok); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}
