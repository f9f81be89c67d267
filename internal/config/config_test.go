package config

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func TestFinalizeResolvesAgainstRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Default()
	cfg.Root = root
	cfg.PublicDir = ""
	cfg.OutputDir = "/tmp/out"
	cfg.BasePath = "wiki"

	if err := Finalize(&cfg); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := Config{
		Root:         root,
		ContentDir:   filepath.Join(root, "content"),
		PublicDir:    "",
		IconsDir:     filepath.Join(root, "public", "assets", "icons"),
		OrderingFile: filepath.Join(root, "wiki.config.json"),
		OutputDir:    "/tmp/out",
		BasePath:     "/wiki/",
		Style:        "github-dark",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalizeBasePath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":          "/",
		"/":         "/",
		"docs":      "/docs/",
		"/docs":     "/docs/",
		"/a/b/":     "/a/b/",
		"  /wiki  ": "/wiki/",
	}
	for in, want := range cases {
		cfg := Default()
		cfg.Root = t.TempDir()
		cfg.BasePath = in
		if err := Finalize(&cfg); err != nil {
			t.Fatalf("Finalize(%q): %v", in, err)
		}
		if cfg.BasePath != want {
			t.Fatalf("base %q: want %q, got %q", in, want, cfg.BasePath)
		}
	}
}

func TestFinalizeRejectsBadPort(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Port = 70000
	if err := Finalize(&cfg); err == nil {
		t.Fatalf("expected error for port %d", cfg.Port)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("WIKIGEN_CONTENT", "pages")
	t.Setenv("WIKIGEN_PORT", "8080")
	t.Setenv("WIKIGEN_MINIFY", "true")
	t.Setenv("WIKIGEN_VERBOSE", "not-a-bool")
	t.Setenv("BASE_PATH", "/project/")

	cfg := Default()
	ApplyEnvOverrides(&cfg)

	if cfg.ContentDir != "pages" {
		t.Fatalf("content: got %q", cfg.ContentDir)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port: got %d", cfg.Port)
	}
	if !cfg.Minify {
		t.Fatalf("minify not applied")
	}
	if cfg.Verbose {
		t.Fatalf("invalid bool should be ignored")
	}
	if cfg.BasePath != "/project/" {
		t.Fatalf("base: got %q", cfg.BasePath)
	}
}

func TestApplyEnvOverridesPrefixedBaseWins(t *testing.T) {
	t.Setenv("BASE_PATH", "/plain/")
	t.Setenv("WIKIGEN_BASE_PATH", "/prefixed/")

	cfg := Default()
	ApplyEnvOverrides(&cfg)
	if cfg.BasePath != "/prefixed/" {
		t.Fatalf("base: got %q", cfg.BasePath)
	}
}

func TestRegisterFlags(t *testing.T) {
	t.Parallel()

	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, &cfg)
	if err := fs.Parse([]string{"--root", "/srv/wiki", "-p", "9000", "--base", "/docs/", "--minify"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Root != "/srv/wiki" || cfg.Port != 9000 || cfg.BasePath != "/docs/" || !cfg.Minify {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.ContentDir != "content" {
		t.Fatalf("default content dir lost: %q", cfg.ContentDir)
	}
}
