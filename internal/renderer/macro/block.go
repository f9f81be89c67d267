package macro

import (
	"regexp"
	"strconv"
	"strings"
)

type blockMacro struct {
	name  string
	parse func(body string) Token
}

var blockMacros = []blockMacro{
	{name: "image", parse: parseImage},
	{name: "gallery", parse: parseGallery},
	{name: "download", parse: parseDownload},
	{name: "callout", parse: parseCallout},
}

var (
	fenceOpenRe = regexp.MustCompile(`^` + "```" + `(image|gallery|download|callout)\s*$`)
	keyValueRe  = regexp.MustCompile(`^(\w+)\s*:\s*(.+)$`)
)

// FenceKind reports the macro named by an opening fence line such as
// "```gallery". Other fences, including plain code blocks, report false.
func FenceKind(line string) (string, bool) {
	m := fenceOpenRe.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsFenceClose reports whether line closes a macro fence.
func IsFenceClose(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "```")
}

// ParseBlock builds the token for a fenced macro body.
func ParseBlock(kind, body string) (Token, bool) {
	for _, m := range blockMacros {
		if m.name == kind {
			return m.parse(body), true
		}
	}
	return nil, false
}

// TokenizeBlock matches a complete macro fence at the start of src. The
// fence ends at the first following line that starts with three backticks.
// Fences without a closing line are not macros.
func TokenizeBlock(src string) (int, Token) {
	first, rest, ok := strings.Cut(src, "\n")
	if !ok {
		return 0, nil
	}
	kind, ok := FenceKind(first)
	if !ok {
		return 0, nil
	}
	offset := len(first) + 1
	var body []string
	for {
		line, next, more := strings.Cut(rest, "\n")
		if IsFenceClose(line) {
			tok, _ := ParseBlock(kind, strings.Join(body, "\n"))
			return offset + len(line), tok
		}
		if !more {
			return 0, nil
		}
		body = append(body, strings.TrimRight(line, "\r"))
		offset += len(line) + 1
		rest = next
	}
}

type keyValue struct {
	key   string
	value string
}

// parseKeyValue splits "key: value" lines. Keys are lower-cased.
func parseKeyValue(line string) (keyValue, bool) {
	m := keyValueRe.FindStringSubmatch(line)
	if m == nil {
		return keyValue{}, false
	}
	return keyValue{key: strings.ToLower(m[1]), value: strings.TrimSpace(m[2])}, true
}

func bodyLines(body string) []string {
	return strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
}

func parseImage(body string) Token {
	img := &Image{Align: AlignCenter, Fit: "contain"}
	for _, raw := range bodyLines(body) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kv, ok := parseKeyValue(line)
		if !ok {
			continue
		}
		switch kv.key {
		case "src", "file", "path":
			img.Src = kv.value
		case "alt":
			img.Alt = kv.value
		case "caption":
			img.Caption = kv.value
		case "link", "href":
			img.Link = kv.value
		case "align":
			if a, ok := parseAlign(kv.value); ok {
				img.Align = a
			}
		case "width":
			img.Width = kv.value
		case "height":
			img.Height = kv.value
		case "fit":
			if kv.value == "cover" || kv.value == "contain" {
				img.Fit = kv.value
			}
		}
	}
	return img
}

// parseGallery treats "key: value" lines as settings and every other line
// as "src | caption". A value starting with "//" belongs to a URL such as
// https://host/a.png, so that line is an item.
func parseGallery(body string) Token {
	g := &Gallery{Align: AlignCenter}
	for _, raw := range bodyLines(body) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if kv, ok := parseKeyValue(line); ok && !strings.HasPrefix(kv.value, "//") {
			switch kv.key {
			case "align":
				if a, ok := parseAlign(kv.value); ok {
					g.Align = a
				}
			case "width":
				g.Width = 0
				if n, err := strconv.ParseFloat(kv.value, 64); err == nil && n > 0 {
					g.Width = n
				}
			}
			continue
		}
		parts := strings.Split(line, "|")
		src := strings.TrimSpace(parts[0])
		if src == "" {
			continue
		}
		item := GalleryItem{Src: src}
		if len(parts) > 1 {
			item.Caption = strings.TrimSpace(parts[1])
		}
		g.Items = append(g.Items, item)
	}
	return g
}

func parseDownload(body string) Token {
	d := &Download{}
	for _, raw := range bodyLines(body) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kv, ok := parseKeyValue(line)
		if !ok {
			continue
		}
		switch kv.key {
		case "file":
			d.File = kv.value
		case "label":
			d.Label = kv.value
		case "desc", "description":
			d.Desc = kv.value
		}
	}
	return d
}

// parseCallout keeps every line that is not a recognized setting as body
// markdown, with its original indentation. A type outside the known set is
// left in the body.
func parseCallout(body string) Token {
	c := &Callout{Type: CalloutNote}
	var content []string
	for _, raw := range bodyLines(body) {
		line := strings.TrimSpace(raw)
		if line == "" {
			content = append(content, "")
			continue
		}
		kv, ok := parseKeyValue(line)
		if !ok {
			content = append(content, raw)
			continue
		}
		switch {
		case kv.key == "type" && isCalloutType(kv.value):
			c.Type = CalloutType(kv.value)
		case kv.key == "title":
			c.Title = kv.value
		case kv.key == "icon":
			c.Icon = kv.value
		default:
			content = append(content, raw)
		}
	}
	c.Body = strings.TrimSpace(strings.Join(content, "\n"))
	return c
}

func isCalloutType(v string) bool {
	switch CalloutType(v) {
	case CalloutNote, CalloutWarning, CalloutTip, CalloutError:
		return true
	}
	return false
}
