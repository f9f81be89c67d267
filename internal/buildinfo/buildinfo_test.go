package buildinfo

import (
	"strings"
	"testing"
)

func TestShortRevision(t *testing.T) {
	t.Parallel()

	if got := shortRevision("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("got %q", got)
	}
	if got := shortRevision("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestSummaryStartsWithVersion(t *testing.T) {
	t.Parallel()

	got := Summary()
	if got == "" {
		t.Fatalf("empty summary")
	}
	if Version != "" && Version != "dev" && !strings.HasPrefix(got, Version) {
		t.Fatalf("summary %q does not start with %q", got, Version)
	}
}
