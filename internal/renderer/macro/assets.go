package macro

import (
	"math"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// DefaultIconsURL is the URL prefix named icons are served from.
const DefaultIconsURL = "/assets/icons"

var iconExtensions = []string{".svg", ".png", ".jpg", ".jpeg"}

var literalExtRe = regexp.MustCompile(`(?i)\.[a-z0-9]+$`)

// Assets resolves icon references and downloadable files on disk.
// Icon lookups are memoized for the lifetime of the value.
type Assets struct {
	// IconsDir holds named icons (idea.svg, warn.png, ...).
	IconsDir string
	// IconsURL is the public URL prefix of IconsDir.
	IconsURL string
	// PublicDir is the static assets root download sizes are read from.
	PublicDir string

	icons sync.Map // map[string]string
}

// ResolveIcon maps an icon name or literal path to the URL an <img> should use.
// Names are looked up as svg, png, jpg, then jpeg. When no file exists the
// png-shaped URL is returned anyway.
func (a *Assets) ResolveIcon(ref string) string {
	v := strings.TrimSpace(ref)
	if v == "" {
		return ""
	}
	if IsLiteralPath(v) {
		return v
	}
	if a == nil {
		return path.Join(DefaultIconsURL, v+".png")
	}
	if cached, ok := a.icons.Load(v); ok {
		return cached.(string)
	}
	url, _ := a.LookupIcon(v)
	a.icons.Store(v, url)
	return url
}

// LookupIcon reports whether a named icon exists on disk. The URL is the
// fallback png path when it does not.
func (a *Assets) LookupIcon(name string) (string, bool) {
	prefix := DefaultIconsURL
	if a != nil && a.IconsURL != "" {
		prefix = strings.TrimRight(a.IconsURL, "/")
	}
	if a != nil && a.IconsDir != "" {
		for _, ext := range iconExtensions {
			info, err := os.Stat(filepath.Join(a.IconsDir, name+ext))
			if err == nil && info.Mode().IsRegular() {
				return prefix + "/" + name + ext, true
			}
		}
	}
	return prefix + "/" + name + ".png", false
}

// IsLiteralPath reports whether an icon reference names a file directly.
func IsLiteralPath(ref string) bool {
	return strings.Contains(ref, "/") || literalExtRe.MatchString(ref)
}

// FileSize stats a public URL path under PublicDir. Paths escaping the
// directory and non-regular files report false.
func (a *Assets) FileSize(ref string) (int64, bool) {
	if a == nil || a.PublicDir == "" {
		return 0, false
	}
	rel := strings.TrimPrefix(strings.TrimSpace(ref), "/")
	if rel == "" {
		return 0, false
	}
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	clean := path.Clean("/" + rel)
	full := filepath.Join(a.PublicDir, filepath.FromSlash(clean))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// HumanSize formats a byte count with binary steps. Values past bytes keep
// one decimal below ten, and a trailing ".0" is dropped.
func HumanSize(n int64) string {
	if n < 0 {
		return ""
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	idx := 0
	num := float64(n)
	for num >= 1024 && idx < len(units)-1 {
		num /= 1024
		idx++
	}
	var s string
	if num < 10 && idx > 0 {
		s = strconv.FormatFloat(math.Round(num*10)/10, 'f', 1, 64)
		s = strings.TrimSuffix(s, ".0")
	} else {
		s = strconv.FormatFloat(math.Round(num), 'f', 0, 64)
	}
	return s + " " + units[idx]
}
