package renderer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Metadata captures front matter. Raw holds every key with values
// normalized to string, float64, bool, []any and map[string]any; the
// interpreted keys are also exposed as fields.
type Metadata struct {
	Raw         map[string]any
	Title       string
	Slug        string
	Description string
	Icon        string
	Tags        []string

	order    int
	hasOrder bool
}

// IsZero reports whether the metadata carries any meaningful values.
func (m Metadata) IsZero() bool {
	if m.Title != "" || m.Description != "" || len(m.Tags) > 0 {
		return false
	}
	return len(m.Raw) == 0
}

// Order returns the numeric order key. Floats are truncated toward zero.
func (m Metadata) Order() (int, bool) {
	return m.order, m.hasOrder
}

// Lookup returns the normalized value stored under key.
func (m Metadata) Lookup(key string) (any, bool) {
	v, ok := m.Raw[key]
	return v, ok
}

// String returns the trimmed string value of key. Empty strings and
// non-string values report false.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m.Raw[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// FirstString returns the first key among keys holding a non-empty string.
func (m Metadata) FirstString(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m.String(k); ok {
			return s, true
		}
	}
	return "", false
}

// Bool returns the boolean value of key. The strings "true" and "false"
// are accepted too.
func (m Metadata) Bool(key string) (bool, bool) {
	switch v := m.Raw[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// MarshalJSON encodes the raw front matter.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m.Raw)
}

// metaOnly parses nothing but front matter.
var metaOnly = goldmark.New(goldmark.WithExtensions(goldmarkmeta.Meta))

// ReadFrontMatter extracts the front matter of a markdown source. Missing
// or malformed front matter yields empty metadata.
func ReadFrontMatter(src []byte) Metadata {
	pc := parser.NewContext()
	metaOnly.Parser().Parse(text.NewReader(src), parser.WithContext(pc))
	return extractMetadata(pc)
}

func extractMetadata(pc parser.Context) Metadata {
	raw, err := goldmarkmeta.TryGet(pc)
	if err != nil || len(raw) == 0 {
		return Metadata{}
	}
	return NewMetadata(raw)
}

// NewMetadata normalizes a decoded front matter map.
func NewMetadata(raw map[string]any) Metadata {
	var meta Metadata
	if len(raw) == 0 {
		return meta
	}

	meta.Raw = make(map[string]any, len(raw))
	for k, v := range raw {
		meta.Raw[k] = normalize(v)
	}

	meta.Title, _ = meta.String("title")
	meta.Slug, _ = meta.String("slug")
	meta.Icon, _ = meta.String("icon")
	meta.Description, _ = meta.FirstString("description", "desc", "summary")
	if tags, ok := meta.Raw["tags"]; ok {
		meta.Tags = toStringSlice(tags)
	} else if kw, ok := meta.Raw["keywords"]; ok {
		meta.Tags = toStringSlice(kw)
	}
	if n, ok := meta.Raw["order"].(float64); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
		meta.order = int(n)
		meta.hasOrder = true
	}
	return meta
}

// normalize folds YAML decoder output into the closed set of value kinds.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return []string{vv}
	default:
		return nil
	}
}
