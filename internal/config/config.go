// Package config manages application configuration from environment variables and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const envPrefix = "WIKIGEN_"

// Config holds runtime configuration for the dev server and the static build.
// Directory fields other than Root are resolved against Root by Finalize.
type Config struct {
	Root          string
	ContentDir    string
	PublicDir     string
	IconsDir      string
	OrderingFile  string
	OutputDir     string
	BasePath      string
	Style         string
	Port          int
	AutoOpen      bool
	Verbose       bool
	Minify        bool
	IncludeHidden bool
}

// Default returns ready-to-use defaults prior to env/flag overrides.
func Default() Config {
	return Config{
		Root:         ".",
		ContentDir:   "content",
		PublicDir:    "public",
		IconsDir:     filepath.Join("public", "assets", "icons"),
		OrderingFile: "wiki.config.json",
		OutputDir:    "site",
		BasePath:     "/",
		Style:        "github-dark",
		Port:         0, // 0 = auto-select random available port
	}
}

// RegisterFlags attaches configuration flags to the provided FlagSet.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Root, "root", "r", cfg.Root, "project directory the other paths are relative to")
	fs.StringVar(&cfg.ContentDir, "content", cfg.ContentDir, "directory containing markdown pages")
	fs.StringVar(&cfg.PublicDir, "public", cfg.PublicDir, "directory of static files served and copied verbatim")
	fs.StringVar(&cfg.IconsDir, "icons", cfg.IconsDir, "directory of named icons, served as /assets/icons/")
	fs.StringVar(&cfg.OrderingFile, "ordering", cfg.OrderingFile, "JSON file with explicit sibling order")
	fs.StringVarP(&cfg.OutputDir, "out", "o", cfg.OutputDir, "output directory for the static build")
	fs.StringVar(&cfg.BasePath, "base", cfg.BasePath, "URL prefix the site is hosted under")
	fs.StringVar(&cfg.Style, "style", cfg.Style, "chroma style for highlighted code")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to bind the HTTP server (0 = auto-assign, default: auto)")
	fs.BoolVar(&cfg.AutoOpen, "auto-open", cfg.AutoOpen, "open the browser automatically after start")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging (HTTP requests)")
	fs.BoolVar(&cfg.Minify, "minify", cfg.Minify, "minify HTML, CSS, JS, SVG and JSON in the build output")
	fs.BoolVar(&cfg.IncludeHidden, "hidden", cfg.IncludeHidden, "include dot-prefixed files and directories")
}

// ApplyEnvOverrides reads supported environment variables and overrides cfg in place.
// BASE_PATH is also read without the prefix; WIKIGEN_BASE_PATH wins when
// both are set.
func ApplyEnvOverrides(cfg *Config) {
	applyStringEnv("ROOT", func(v string) { cfg.Root = v })
	applyStringEnv("CONTENT", func(v string) { cfg.ContentDir = v })
	applyStringEnv("PUBLIC", func(v string) { cfg.PublicDir = v })
	applyStringEnv("ICONS", func(v string) { cfg.IconsDir = v })
	applyStringEnv("ORDERING", func(v string) { cfg.OrderingFile = v })
	applyStringEnv("OUT", func(v string) { cfg.OutputDir = v })
	applyStringEnv("STYLE", func(v string) { cfg.Style = v })
	applyIntEnv("PORT", func(v int) { cfg.Port = v })
	applyBoolEnv("AUTO_OPEN", func(v bool) { cfg.AutoOpen = v })
	applyBoolEnv("VERBOSE", func(v bool) { cfg.Verbose = v })
	applyBoolEnv("MINIFY", func(v bool) { cfg.Minify = v })
	applyBoolEnv("HIDDEN", func(v bool) { cfg.IncludeHidden = v })

	if raw, ok := lookupRaw("BASE_PATH"); ok {
		cfg.BasePath = raw
	}
	applyStringEnv("BASE_PATH", func(v string) { cfg.BasePath = v })
}

func applyStringEnv(key string, apply func(string)) {
	if raw, ok := lookupNonEmpty(key); ok {
		apply(raw)
	}
}

func applyIntEnv(key string, apply func(int)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.Atoi(raw); err == nil {
			apply(value)
		}
	}
}

func applyBoolEnv(key string, apply func(bool)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			apply(value)
		}
	}
}

func lookupNonEmpty(key string) (string, bool) {
	return lookupRaw(envPrefix + key)
}

func lookupRaw(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// Finalize validates and normalizes paths.
func Finalize(cfg *Config) error {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fmt.Errorf("resolve root directory: %w", err)
	}
	cfg.Root = root

	// Allow port 0 for dynamic allocation, otherwise validate range
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	if strings.TrimSpace(cfg.ContentDir) == "" {
		return fmt.Errorf("content directory is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = "site"
	}
	for _, p := range []*string{&cfg.ContentDir, &cfg.PublicDir, &cfg.IconsDir, &cfg.OrderingFile, &cfg.OutputDir} {
		*p = resolve(root, *p)
	}

	cfg.BasePath = normalizeBase(cfg.BasePath)
	return nil
}

// resolve anchors a relative path at root. Empty paths stay empty and
// disable the feature they configure.
func resolve(root, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func normalizeBase(b string) string {
	b = strings.Trim(strings.TrimSpace(b), "/")
	if b == "" {
		return "/"
	}
	return "/" + b + "/"
}
