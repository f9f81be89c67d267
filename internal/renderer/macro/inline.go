package macro

import (
	"regexp"
	"strings"
)

// InlineTokenizer matches a macro at the start of src. It returns the number
// of bytes consumed and the token, or zero and nil when src does not start
// with the macro.
type InlineTokenizer func(src string) (int, Token)

type inlineMacro struct {
	name     string
	tokenize InlineTokenizer
}

// inlineMacros are tried in order; the first match wins.
var inlineMacros = []inlineMacro{
	{name: "gradient", tokenize: tokenizeGradient},
	{name: "wikiLink", tokenize: tokenizeWikiLink},
	{name: "color", tokenize: tokenizeColor},
	{name: "inlineAsset", tokenize: tokenizeInlineAsset},
}

// InlineNames lists the inline macros in matching order.
func InlineNames() []string {
	names := make([]string, len(inlineMacros))
	for i, m := range inlineMacros {
		names[i] = m.name
	}
	return names
}

// TokenizeInline runs the inline macros against src in order.
func TokenizeInline(src string) (int, Token) {
	for _, m := range inlineMacros {
		if n, tok := m.tokenize(src); tok != nil {
			return n, tok
		}
	}
	return 0, nil
}

var (
	gradientRe    = regexp.MustCompile(`(?s)^<gradient:([^:>]+):([^>]+)>(.*?)</gradient>`)
	wikiLinkRe    = regexp.MustCompile(`^\[\[(link|page|cat):([^\]|]+?)(?:\|([^\]]+))?\]\]`)
	colorOpenRe   = regexp.MustCompile(`(?i)^<(#[0-9a-f]{3,8})>`)
	inlineAssetRe = regexp.MustCompile(`^\[\[(icon|img):([^\]|]+?)(?:\|([^\]]+))?\]\]`)
)

func tokenizeGradient(src string) (int, Token) {
	if !strings.HasPrefix(src, "<gradient:") {
		return 0, nil
	}
	m := gradientRe.FindStringSubmatch(src)
	if m == nil {
		return 0, nil
	}
	return len(m[0]), &Gradient{
		From:  strings.TrimSpace(m[1]),
		To:    strings.TrimSpace(m[2]),
		Inner: m[3],
	}
}

func tokenizeWikiLink(src string) (int, Token) {
	if !strings.HasPrefix(src, "[[") {
		return 0, nil
	}
	m := wikiLinkRe.FindStringSubmatch(src)
	if m == nil {
		return 0, nil
	}
	return len(m[0]), &WikiLink{
		Kind:   LinkKind(strings.ToLower(m[1])),
		Target: strings.TrimSpace(m[2]),
		Label:  strings.TrimSpace(m[3]),
	}
}

// tokenizeColor needs the closing tag to repeat the opener's hex, compared
// case-insensitively. RE2 has no backreferences, so the close is searched by hand.
func tokenizeColor(src string) (int, Token) {
	if !strings.HasPrefix(src, "<#") {
		return 0, nil
	}
	m := colorOpenRe.FindStringSubmatch(src)
	if m == nil {
		return 0, nil
	}
	hex := m[1]
	start := len(m[0])
	closers := []string{"</" + hex + ">", "<." + hex + ">"}
	for i := start; i < len(src); i++ {
		if src[i] != '<' {
			continue
		}
		for _, c := range closers {
			if len(src)-i >= len(c) && strings.EqualFold(src[i:i+len(c)], c) {
				return i + len(c), &Color{Hex: hex, Inner: src[start:i]}
			}
		}
	}
	return 0, nil
}

func tokenizeInlineAsset(src string) (int, Token) {
	if !strings.HasPrefix(src, "[[") {
		return 0, nil
	}
	m := inlineAssetRe.FindStringSubmatch(src)
	if m == nil {
		return 0, nil
	}
	return len(m[0]), &InlineAsset{
		Kind:    AssetKind(m[1]),
		Ref:     strings.TrimSpace(m[2]),
		Options: parseAssetOptions(m[3]),
	}
}

func parseAssetOptions(raw string) map[string]string {
	opts := make(map[string]string)
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		opts[k] = strings.TrimSpace(v)
	}
	return opts
}
