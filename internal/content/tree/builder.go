// Package tree turns a content directory into the section/page tree and
// route table the wiki is generated from.
package tree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/euforicio/wikigen/internal/renderer"
)

// Options control how the tree is constructed.
type Options struct {
	// Ordering overrides top-level folders.
	Ordering Ordering
	// ExcludeDirs names folders to skip, compared case-insensitively.
	// Nothing is excluded by default.
	ExcludeDirs []string
	// IncludeHidden keeps dot-prefixed files and folders, which are
	// skipped otherwise.
	IncludeHidden bool
	Logger        *slog.Logger
}

// Build walks root and returns a synthetic root section with empty
// title, slug and path whose children are the top-level sections.
// Only directories count at the top level. Folders named in
// opts.Ordering are built first with their overrides applied; the
// combined list is then sorted by order, title and path.
func Build(ctx context.Context, root string, opts Options) (*Section, error) {
	if root == "" {
		return nil, errors.New("content root must be provided")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, &ReadError{Op: "stat", Path: absRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, &ReadError{Op: "stat", Path: absRoot, Err: ErrNotDirectory}
	}

	b := newBuilder(opts)

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, &ReadError{Op: "list", Path: absRoot, Err: err}
	}
	var dirs []string
	present := make(map[string]bool)
	for _, entry := range entries {
		if b.skip(entry.Name()) || b.isExcluded(entry.Name()) || !isDir(absRoot, entry) {
			continue
		}
		dirs = append(dirs, entry.Name())
		present[entry.Name()] = true
	}

	top := make([]Node, 0, len(dirs))
	used := make(map[string]bool)
	for _, ov := range opts.Ordering.Sections {
		if !present[ov.Dir] || used[ov.Dir] {
			continue
		}
		used[ov.Dir] = true
		sec, err := b.buildSection(ctx, filepath.Join(absRoot, ov.Dir), "")
		if err != nil {
			return nil, err
		}
		ApplyOverride(sec, ov)
		top = append(top, sec)
	}
	for _, dir := range dirs {
		if used[dir] {
			continue
		}
		sec, err := b.buildSection(ctx, filepath.Join(absRoot, dir), "")
		if err != nil {
			return nil, err
		}
		top = append(top, sec)
	}
	b.sort(top)

	return &Section{Dir: absRoot, Children: top}, nil
}

// builder carries state during tree construction. The collator is not
// safe for concurrent use, so every Build gets its own.
type builder struct {
	exclude  map[string]struct{}
	opts     Options
	logger   *slog.Logger
	collator *collate.Collator
}

func newBuilder(opts Options) *builder {
	exclude := make(map[string]struct{})
	for _, name := range opts.ExcludeDirs {
		if name = strings.TrimSpace(name); name != "" {
			exclude[strings.ToLower(name)] = struct{}{}
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &builder{
		exclude:  exclude,
		opts:     opts,
		logger:   logger.With("component", "tree"),
		collator: collate.New(language.Und),
	}
}

func (b *builder) skip(name string) bool {
	return !b.opts.IncludeHidden && strings.HasPrefix(name, ".")
}

func (b *builder) isExcluded(name string) bool {
	_, ok := b.exclude[strings.ToLower(name)]
	return ok
}

func (b *builder) buildSection(ctx context.Context, dir, parent string) (*Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded := DecodeName(filepath.Base(dir))
	slug := slugOf(decoded)
	sec := &Section{
		Entry: Entry{Title: decoded, Slug: slug, Path: joinPath(parent, slug)},
		Dir:   dir,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ReadError{Op: "list", Path: dir, Err: err}
	}

	sec.Children = make([]Node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if b.skip(name) {
			continue
		}
		full := filepath.Join(dir, name)

		if isDir(dir, entry) {
			if b.isExcluded(name) {
				continue
			}
			child, err := b.buildSection(ctx, full, sec.Path)
			if err != nil {
				return nil, err
			}
			sec.Children = append(sec.Children, child)
			continue
		}

		if !isMarkdownName(name) {
			continue
		}
		if isIndexName(name) {
			page, err := b.readPage(full, sec.Path)
			if err != nil {
				return nil, err
			}
			if sec.Index != nil {
				b.logger.Warn("multiple index files, keeping the last", "dir", dir, "ignored", sec.Index.Source)
			}
			sec.Index = page
			continue
		}
		page, err := b.readPage(full, sec.Path)
		if err != nil {
			return nil, err
		}
		sec.Children = append(sec.Children, page)
	}

	if idx := sec.Index; idx != nil {
		if idx.Meta.Title != "" {
			sec.Title = idx.Meta.Title
		} else {
			idx.Title = sec.Title
		}
		sec.Order = idx.Order
		sec.Meta = idx.Meta
		idx.Slug = sec.Slug
		idx.Path = sec.Path
	}

	b.sort(sec.Children)
	return sec, nil
}

// readPage parses one markdown file. Malformed front matter yields empty
// metadata and filename-derived fields.
func (b *builder) readPage(file, parent string) (*Page, error) {
	src, err := os.ReadFile(file) //nolint:gosec // file is discovered under the content root
	if err != nil {
		return nil, &ReadError{Op: "read", Path: file, Err: err}
	}
	meta := renderer.ReadFrontMatter(src)

	base := stem(filepath.Base(file))
	decoded := DecodeName(base)

	slug := ""
	if meta.Slug != "" {
		slug = NormalizeSlug(meta.Slug)
	}
	if slug == "" {
		slug = slugOf(decoded)
	}
	if slug == "" {
		slug = base
	}

	title := meta.Title
	if title == "" {
		title = decoded
	}
	order, _ := meta.Order()

	return &Page{
		Entry:  Entry{Title: title, Slug: slug, Path: joinPath(parent, slug), Order: order},
		Source: file,
		Meta:   meta,
	}, nil
}

// sort orders siblings by order, then collated title, then path, which
// makes the order total for distinct paths.
func (b *builder) sort(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, c := nodes[i].entry(), nodes[j].entry()
		if a.Order != c.Order {
			return a.Order < c.Order
		}
		if r := b.collator.CompareString(a.Title, c.Title); r != 0 {
			return r < 0
		}
		return a.Path < c.Path
	})
}

// isDir follows symlinks so linked folders are treated as folders.
func isDir(parent string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}
