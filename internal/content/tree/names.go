package tree

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"
)

// DecodeName expands archive escapes of the form #UXXXX (four hex digits)
// into the UTF-16 code units they name. Adjacent escapes forming a
// surrogate pair decode to one rune; lone surrogates become U+FFFD.
// Text without escapes is returned unchanged.
func DecodeName(s string) string {
	if !strings.Contains(s, "#U") {
		return s
	}
	var (
		b       strings.Builder
		pending []uint16
	)
	flush := func() {
		if len(pending) > 0 {
			b.WriteString(string(utf16.Decode(pending)))
			pending = pending[:0]
		}
	}
	for i := 0; i < len(s); {
		if unit, ok := escapeAt(s, i); ok {
			pending = append(pending, unit)
			i += 6
			continue
		}
		flush()
		b.WriteByte(s[i])
		i++
	}
	flush()
	return b.String()
}

func escapeAt(s string, i int) (uint16, bool) {
	if i+6 > len(s) || s[i] != '#' || s[i+1] != 'U' {
		return 0, false
	}
	n, err := strconv.ParseUint(s[i+2:i+6], 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// NormalizeSlug decodes s, trims it and joins internal whitespace runs
// with a hyphen.
func NormalizeSlug(s string) string {
	return slugOf(DecodeName(s))
}

func slugOf(decoded string) string {
	return strings.Join(strings.Fields(decoded), "-")
}

// joinPath appends a slug to a section path. Top-level entries get /slug.
func joinPath(parent, slug string) string {
	if parent == "" || parent == "/" {
		return "/" + slug
	}
	return parent + "/" + slug
}

// parentPath is the inverse of joinPath for the final segment.
func parentPath(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return ""
	}
	return p[:i]
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func isMarkdownName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func isIndexName(name string) bool {
	return isMarkdownName(name) && strings.EqualFold(stem(name), "index")
}
