package tree

import (
	"encoding/json"
	"math"
	"os"
)

// DefaultOrderingFile is the ordering file name relative to the project root.
const DefaultOrderingFile = "wiki.config.json"

// SectionOverride customizes one top-level folder.
type SectionOverride struct {
	// Dir is the folder name as it appears on disk.
	Dir   string
	Title string
	Slug  string
	Order *int
}

// Ordering lists top-level folders to build first, in order.
type Ordering struct {
	Sections []SectionOverride
}

// LoadOrdering reads an ordering file. A missing or unreadable file yields
// an empty ordering.
func LoadOrdering(path string) Ordering {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return Ordering{}
	}
	return ParseOrdering(data)
}

// ParseOrdering decodes {"sections":[{"dir":..,"title":..,"slug":..,"order":..}]}.
// Invalid JSON yields an empty ordering; entries without a string dir are
// dropped and wrongly typed fields are ignored one by one.
func ParseOrdering(data []byte) Ordering {
	var doc struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Ordering{}
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(doc.Sections, &entries); err != nil {
		return Ordering{}
	}

	var out Ordering
	for _, raw := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		var ov SectionOverride
		if !decodeField(fields, "dir", &ov.Dir) || ov.Dir == "" {
			continue
		}
		decodeField(fields, "title", &ov.Title)
		decodeField(fields, "slug", &ov.Slug)
		var order float64
		if decodeField(fields, "order", &order) && !math.IsInf(order, 0) {
			n := int(math.Trunc(order))
			ov.Order = &n
		}
		out.Sections = append(out.Sections, ov)
	}
	return out
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// ApplyOverride overwrites a section's title, order and slug. A slug
// change re-derives the paths of the section, its index page and every
// descendant.
func ApplyOverride(sec *Section, ov SectionOverride) {
	if ov.Title != "" {
		sec.Title = ov.Title
	}
	if ov.Order != nil {
		sec.Order = *ov.Order
	}
	if ov.Slug == "" {
		return
	}
	slug := NormalizeSlug(ov.Slug)
	if slug == "" || slug == sec.Slug {
		return
	}
	sec.Slug = slug
	RecomputePaths(sec, parentPath(sec.Path))
}

// RecomputePaths sets n's path from parent and its slug, then cascades to
// index pages and children.
func RecomputePaths(n Node, parent string) {
	switch v := n.(type) {
	case *Page:
		v.Path = joinPath(parent, v.Slug)
	case *Section:
		if v.Slug == "" && parent == "" {
			v.Path = ""
		} else {
			v.Path = joinPath(parent, v.Slug)
		}
		if v.Index != nil {
			v.Index.Slug = v.Slug
			v.Index.Path = v.Path
		}
		for _, child := range v.Children {
			RecomputePaths(child, v.Path)
		}
	}
}
