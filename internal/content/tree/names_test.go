package tree_test

import (
	"testing"

	"github.com/euforicio/wikigen/internal/content/tree"
)

func TestDecodeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "cyrillic", in: "#U0413#U043b#U0430#U0432#U043d#U0430#U044f", want: "Главная"},
		{name: "mixed", in: "01 #U0414#U043e#U043a#U0438 v2", want: "01 Доки v2"},
		{name: "lowercase hex", in: "#u0041#U00e9", want: "#u0041é"},
		{name: "surrogate pair", in: "#UD83D#UDE00 smile", want: "😀 smile"},
		{name: "lone surrogate", in: "#UD83Dx", want: "�x"},
		{name: "not hex", in: "#UZZZZ", want: "#UZZZZ"},
		{name: "short", in: "tail#U004", want: "tail#U004"},
		{name: "plain", in: "Getting Started", want: "Getting Started"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tree.DecodeName(tc.in); got != tc.want {
				t.Fatalf("DecodeName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Hello   World ":    "Hello-World",
		"tabs\tand\nnewlines": "tabs-and-newlines",
		"#U0410 #U0411":       "А-Б",
		"already-slugged":     "already-slugged",
		"   ":                 "",
	}
	for in, want := range cases {
		if got := tree.NormalizeSlug(in); got != want {
			t.Errorf("NormalizeSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
