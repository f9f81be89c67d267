package tree

import (
	"encoding/json"

	"github.com/euforicio/wikigen/internal/renderer"
)

// Entry holds the fields shared by sections and pages.
type Entry struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Path  string `json:"path"`
	Order int    `json:"order"`
}

func (e *Entry) entry() *Entry { return e }

// Node is a *Section or a *Page.
type Node interface {
	entry() *Entry
}

// Info returns a copy of the shared fields of n.
func Info(n Node) Entry {
	return *n.entry()
}

// Page is a markdown file. Path always equals the parent section path
// joined with Slug; index pages share their section's slug and path.
type Page struct {
	Entry
	// Source is the absolute path of the backing file.
	Source string            `json:"-"`
	Meta   renderer.Metadata `json:"meta"`
}

// Section is a content folder.
type Section struct {
	Entry
	Dir      string            `json:"-"`
	Index    *Page             `json:"index,omitempty"`
	Children []Node            `json:"children"`
	Meta     renderer.Metadata `json:"meta"`
}

// MarshalJSON tags the page with "type":"page".
func (p *Page) MarshalJSON() ([]byte, error) {
	type alias Page
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{Type: "page", alias: (*alias)(p)})
}

// MarshalJSON tags the section with "type":"section".
func (s *Section) MarshalJSON() ([]byte, error) {
	type alias Section
	children := s.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
		Children []Node `json:"children"`
	}{Type: "section", alias: (*alias)(s), Children: children})
}
