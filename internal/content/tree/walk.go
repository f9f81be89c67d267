package tree

// Walk calls fn for n and its descendants in tree order, index pages
// excluded. Returning false from fn skips the node's children.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	if sec, ok := n.(*Section); ok {
		for _, child := range sec.Children {
			walk(child, depth+1, fn)
		}
	}
}

// Trail returns the chain of nodes from the top level down to the node
// at urlPath. A section path resolves to the section itself. The result is
// nil when nothing lives at urlPath.
func Trail(root *Section, urlPath string) []Node {
	if root == nil {
		return nil
	}
	target := NormalizePath(urlPath)
	for _, child := range root.Children {
		if trail := trail(child, target); trail != nil {
			return trail
		}
	}
	return nil
}

func trail(n Node, target string) []Node {
	if NormalizePath(n.entry().Path) == target {
		return []Node{n}
	}
	sec, ok := n.(*Section)
	if !ok {
		return nil
	}
	for _, child := range sec.Children {
		if rest := trail(child, target); rest != nil {
			return append([]Node{n}, rest...)
		}
	}
	return nil
}

// SectionFor returns the section whose index page is p.
func SectionFor(root *Section, p *Page) (*Section, bool) {
	var found *Section
	Walk(root, func(n Node, _ int) bool {
		if found != nil {
			return false
		}
		if sec, ok := n.(*Section); ok && sec.Index == p {
			found = sec
			return false
		}
		return true
	})
	return found, found != nil
}

// FirstPath is the landing path of the first top-level entry: a section's
// path when it has an index page, else the first routed page inside it.
// Empty trees yield "".
func FirstPath(root *Section) string {
	if root == nil || len(root.Children) == 0 {
		return ""
	}
	first := root.Children[0]
	if sec, ok := first.(*Section); ok && sec.Index == nil {
		if routes := BuildRoutes(&Section{Children: sec.Children}); routes.Len() > 0 {
			return routes.entries[0].Path
		}
	}
	return NormalizePath(first.entry().Path)
}
