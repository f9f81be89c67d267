package macro

import (
	"regexp"
	"strings"
)

var (
	sizeNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	sizeUnitRe   = regexp.MustCompile(`^\d+(?:\.\d+)?(px|%|vw|vh|rem|em)$`)

	colorHexRe  = regexp.MustCompile(`(?i)^#([0-9a-f]{3}|[0-9a-f]{4}|[0-9a-f]{6}|[0-9a-f]{8})$`)
	colorRGBRe  = regexp.MustCompile(`^rgba?\(\s*[0-9.,%\s]+\)$`)
	colorHSLRe  = regexp.MustCompile(`^hsla?\(\s*[0-9.,%\s]+\)$`)
	colorNameRe = regexp.MustCompile(`^[a-zA-Z]+$`)
	colorVarRe  = regexp.MustCompile(`^var\(--[a-zA-Z0-9_-]+\)$`)
)

// SafeSize validates a CSS length. Bare numbers are treated as pixels.
// The second result is false when the value must be discarded.
func SafeSize(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return "", false
	case sizeNumberRe.MatchString(v):
		return v + "px", true
	case sizeUnitRe.MatchString(v):
		return v, true
	default:
		return "", false
	}
}

// SafeColor validates a CSS color against hex, rgb/hsl functions,
// bare names and custom properties.
func SafeColor(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", false
	}
	for _, re := range []*regexp.Regexp{colorHexRe, colorRGBRe, colorHSLRe, colorNameRe, colorVarRe} {
		if re.MatchString(v) {
			return v, true
		}
	}
	return "", false
}

func sizeOr(raw, fallback string) string {
	if v, ok := SafeSize(raw); ok {
		return v
	}
	return fallback
}

func colorOr(raw, fallback string) string {
	if v, ok := SafeColor(raw); ok {
		return v
	}
	return fallback
}
