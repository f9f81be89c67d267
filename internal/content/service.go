// Package content keeps the wiki tree and route table current with the
// content directory and notifies subscribers about changes.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/euforicio/wikigen/internal/content/tree"
	"github.com/euforicio/wikigen/internal/renderer"
)

const (
	eventTypeTreeUpdated = "treeUpdated"
	eventTypeDeleted     = "deleted"
	eventTypePageUpdated = "pageUpdated"
	eventTypeUnknown     = "unknown"
)

// ErrNotFound is returned by Document when no page is routed at a path.
var ErrNotFound = errors.New("page not found")

// Event describes change notifications emitted to subscribers.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	// Path is the changed file relative to the content root.
	Path string `json:"path,omitempty"`
	// Route is the URL path of the changed page when it is routed.
	Route string `json:"route,omitempty"`
}

// Snapshot is an immutable view of one tree build.
type Snapshot struct {
	Tree   *tree.Section
	Routes *tree.Routes
	Built  time.Time
}

// Service coordinates tree builds, page rendering and change notifications.
type Service struct {
	ctx         context.Context
	logger      *slog.Logger
	watcher     *fsnotify.Watcher
	renderer    *renderer.Service
	cancel      context.CancelFunc
	snapshot    atomic.Pointer[Snapshot]
	subscribers map[uint64]*subscriber
	root        string
	opts        Options
	subCounter  atomic.Uint64
	subsMu      sync.RWMutex
	rebuildMu   sync.Mutex
}

type subscriber struct {
	ctx context.Context
	ch  chan Event
}

// Options configures the content service.
type Options struct {
	// OrderingFile is re-read on every build. Empty disables ordering.
	OrderingFile  string
	ExcludeDirs   []string
	IncludeHidden bool
	// Watch enables filesystem monitoring and automatic rebuilds.
	Watch bool
}

// NewService builds the initial tree rooted at root. A missing or
// unreadable root fails here; later rebuild failures keep the previous
// snapshot.
func NewService(parentCtx context.Context, root string, rendererSvc *renderer.Service, logger *slog.Logger, opts Options) (*Service, error) {
	if root == "" {
		return nil, errors.New("root directory must be provided")
	}
	if rendererSvc == nil {
		return nil, errors.New("renderer service must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if opts.OrderingFile != "" {
		if opts.OrderingFile, err = filepath.Abs(opts.OrderingFile); err != nil {
			return nil, fmt.Errorf("resolve ordering file: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(parentCtx)

	svc := &Service{
		root:        absRoot,
		renderer:    rendererSvc,
		opts:        opts,
		logger:      logger.With("component", "content_service"),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[uint64]*subscriber),
	}

	snap, err := svc.build(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	svc.snapshot.Store(snap)

	if opts.Watch {
		if err := svc.startWatcher(); err != nil {
			cancel()
			return nil, err
		}
	}

	return svc, nil
}

// Close releases resources associated with the service.
func (s *Service) Close() error {
	s.cancel()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Root returns the absolute content root.
func (s *Service) Root() string {
	return s.root
}

// Snapshot returns the current tree and routes.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Document renders the page routed at urlPath.
func (s *Service) Document(ctx context.Context, urlPath string) (*tree.Page, renderer.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, renderer.Document{}, err
	}
	snap := s.Snapshot()
	page, ok := snap.Routes.Lookup(urlPath)
	if !ok {
		return nil, renderer.Document{}, fmt.Errorf("%s: %w", urlPath, ErrNotFound)
	}
	doc, err := s.renderer.RenderFile(ctx, page.Source, snap.Routes)
	if err != nil {
		return page, renderer.Document{}, err
	}
	return page, doc, nil
}

// Rebuild rescans the content root and swaps in the new snapshot.
func (s *Service) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	snap, err := s.build(ctx)
	if err != nil {
		return err
	}
	s.snapshot.Store(snap)
	s.renderer.Purge()
	return nil
}

func (s *Service) build(ctx context.Context) (*Snapshot, error) {
	var ordering tree.Ordering
	if s.opts.OrderingFile != "" {
		ordering = tree.LoadOrdering(s.opts.OrderingFile)
	}
	root, err := tree.Build(ctx, s.root, tree.Options{
		Ordering:      ordering,
		ExcludeDirs:   s.opts.ExcludeDirs,
		IncludeHidden: s.opts.IncludeHidden,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, err
	}
	routes := tree.BuildRoutes(root)
	for _, lost := range routes.Shadowed() {
		s.logger.Warn("route shadowed by a later page", slog.String("route", lost.Path), slog.String("source", s.relativePath(lost.Page.Source)))
	}
	s.logger.Debug("content tree built", slog.Int("routes", routes.Len()))
	return &Snapshot{Tree: root, Routes: routes, Built: time.Now()}, nil
}

// Subscribe registers for change events. The returned channel will close when ctx is done.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 8)
	id := s.subCounter.Add(1)

	s.subsMu.Lock()
	s.subscribers[id] = &subscriber{ctx: ctx, ch: ch}
	s.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.removeSubscriber(id)
	}()

	return ch
}

func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	if err := s.watchRecursive(s.root); err != nil {
		return err
	}
	if s.opts.OrderingFile != "" {
		if dir := filepath.Dir(s.opts.OrderingFile); !s.insideRoot(dir) {
			if err := watcher.Add(dir); err != nil {
				s.logger.Warn("failed to watch ordering file", slog.String("path", s.opts.OrderingFile), slog.Any("err", err))
			}
		}
	}

	go s.runWatcher()
	return nil
}

func (s *Service) runWatcher() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("watcher error", slog.Any("err", err))
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) handleEvent(event fsnotify.Event) {
	if event.Name == "" {
		return
	}
	isOrdering := s.opts.OrderingFile != "" && filepath.Clean(event.Name) == s.opts.OrderingFile
	if !isOrdering && !s.insideRoot(event.Name) {
		return
	}

	rel := s.relativePath(event.Name)
	op := event.Op
	s.logger.Debug("fsnotify event", slog.String("path", rel), slog.String("op", op.String()))

	isMarkdown := isMarkdownPath(event.Name)

	if op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = s.watchRecursive(event.Name)
		}
	}

	eventType := classifyEvent(event.Name, op, isMarkdown)
	if isOrdering {
		eventType = eventTypeTreeUpdated
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Error("rebuild tree failed", slog.Any("err", err))
		if eventType == eventTypeTreeUpdated || eventType == eventTypeDeleted {
			s.logger.Warn("skipping tree broadcast due to rebuild failure", slog.String("path", rel))
			return
		}
	}

	evt := Event{Type: eventType, Path: rel, Timestamp: time.Now()}
	if route, ok := s.Snapshot().Routes.ResolveSource(event.Name); ok {
		evt.Route = route
	}
	s.broadcast(evt)
}

func (s *Service) broadcast(evt Event) {
	s.subsMu.RLock()
	var stale []uint64
	for id, sub := range s.subscribers {
		select {
		case <-sub.ctx.Done():
			stale = append(stale, id)
		case <-s.ctx.Done():
			stale = append(stale, id)
		case sub.ch <- evt:
		default:
			// drop event when subscriber lags
		}
	}
	s.subsMu.RUnlock()

	for _, id := range stale {
		s.removeSubscriber(id)
	}
}

func (s *Service) removeSubscriber(id uint64) {
	s.subsMu.Lock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	s.subsMu.Unlock()
}

func (s *Service) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !s.opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			if err := s.watcher.Add(path); err != nil {
				s.logger.Warn("failed to watch directory", slog.String("path", path), slog.Any("err", err))
			}
		}
		return nil
	})
}

func (s *Service) insideRoot(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func (s *Service) relativePath(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func classifyEvent(path string, op fsnotify.Op, isMarkdown bool) string {
	switch {
	case op&fsnotify.Remove != 0:
		if isMarkdown {
			if _, err := os.Stat(path); err == nil {
				return eventTypePageUpdated
			}
			return eventTypeDeleted
		}
		return eventTypeTreeUpdated
	case op&fsnotify.Rename != 0:
		return eventTypeTreeUpdated
	case op&(fsnotify.Write|fsnotify.Create) != 0:
		if isMarkdown {
			return eventTypePageUpdated
		}
		return eventTypeTreeUpdated
	default:
		return eventTypeUnknown
	}
}

func isMarkdownPath(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}
