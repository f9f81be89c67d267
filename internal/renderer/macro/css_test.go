package macro_test

import (
	"testing"

	"github.com/euforicio/wikigen/internal/renderer/macro"
)

func TestSafeSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "360", want: "360px", ok: true},
		{in: " 20 ", want: "20px", ok: true},
		{in: "12.5", want: "12.5px", ok: true},
		{in: "50%", want: "50%", ok: true},
		{in: "1.5rem", want: "1.5rem", ok: true},
		{in: "80vw", want: "80vw", ok: true},
		{in: "10pt"},
		{in: "abc"},
		{in: "-4px"},
		{in: "100px;color:red"},
		{in: ""},
	}
	for _, tc := range cases {
		got, ok := macro.SafeSize(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("SafeSize(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSafeColor(t *testing.T) {
	t.Parallel()

	valid := []string{"#fff", "#FFFA", "#3e9eff", "#3E9EFF80", "rgb(1, 2, 3)", "rgba(1,2,3,0.5)", "hsl(120, 50%, 50%)", "red", "var(--accent)"}
	for _, in := range valid {
		if got, ok := macro.SafeColor(in); !ok || got != in {
			t.Errorf("SafeColor(%q) = %q, %v; want accepted", in, got, ok)
		}
	}

	invalid := []string{"", "#12345", "#ggg", "url(x)", "red;", "expression(alert(1))", "var(accent)"}
	for _, in := range invalid {
		if got, ok := macro.SafeColor(in); ok {
			t.Errorf("SafeColor(%q) = %q; want rejected", in, got)
		}
	}
}
