package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/vk/pkgresolve/internal/ctxlog"
)

// DefaultDebounce is used when New is given a non-positive delay.
const DefaultDebounce = 500 * time.Millisecond

// skipDirs are never descended into when watching recursively.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".pkgresolve":  true,
}

// ChangeFunc is invoked with the sorted, root-relative paths that changed
// since the previous flush. An error is logged; it does not stop the loop.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches a set of files and glob patterns below a root directory.
type Watcher struct {
	root     string
	delay    time.Duration
	excludes []string
	fsw      *fsnotify.Watcher

	mu        sync.Mutex
	files     map[string]struct{}
	globs     []string
	recursive []string
	watched   map[string]struct{}

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
}

// New creates a Watcher rooted at root. Paths matching one of the excludes
// globs (slash-separated, relative to root) are never reported. Close must be
// called to release the underlying OS resources.
func New(root string, delay time.Duration, excludes []string) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		root:     abs,
		delay:    delay,
		excludes: append([]string(nil), excludes...),
		fsw:      fsw,
		files:    make(map[string]struct{}),
		watched:  make(map[string]struct{}),
		pending:  make(map[string]fsnotify.Op),
	}, nil
}

// Set replaces the watched set. files and globs are slash-separated and
// relative to the root. Directories that do not exist are skipped.
func (w *Watcher) Set(ctx context.Context, files, globs []string) error {
	logger := ctxlog.FromContext(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.watched {
		if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			logger.Debug("Failed to remove watch.", "path", dir, "error", err)
		}
	}
	w.watched = make(map[string]struct{})
	w.files = make(map[string]struct{}, len(files))
	w.globs = append([]string(nil), globs...)
	w.recursive = nil

	for _, f := range files {
		f = path.Clean(f)
		w.files[f] = struct{}{}
		w.addDir(ctx, path.Dir(f))
	}
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid watch pattern %q", g)
		}
		base, rest := doublestar.SplitPattern(g)
		if strings.Contains(rest, "/") || strings.Contains(rest, "**") {
			w.recursive = append(w.recursive, base)
			w.addTree(ctx, base)
			continue
		}
		w.addDir(ctx, base)
	}

	logger.Debug("Watch set updated.", "files", len(w.files), "globs", len(w.globs), "directories", len(w.watched))
	return nil
}

// Watched returns the sorted absolute directories currently watched.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for dir := range w.watched {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// addDir must be called with mu held.
func (w *Watcher) addDir(ctx context.Context, rel string) {
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	if _, ok := w.watched[abs]; ok {
		return
	}
	if err := w.fsw.Add(abs); err != nil {
		ctxlog.FromContext(ctx).Debug("Skipping watch on directory.", "path", abs, "error", err)
		return
	}
	w.watched[abs] = struct{}{}
}

// addTree must be called with mu held.
func (w *Watcher) addTree(ctx context.Context, rel string) {
	start := filepath.Join(w.root, filepath.FromSlash(rel))
	_ = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		relDir, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			return nil
		}
		relDir = filepath.ToSlash(relDir)
		if p != start && (skipDirs[d.Name()] || w.excludedDir(relDir)) {
			return filepath.SkipDir
		}
		w.addDir(ctx, relDir)
		return nil
	})
}

// Run processes events until ctx ends, calling onChange after each debounce
// interval in which a watched path changed.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(w.delay)
	defer ticker.Stop()

	logger.Info("Watching for changes.", "root", w.root, "debounce", w.delay)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watch loop stopped.")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error.", "error", err)

		case <-ticker.C:
			changed := w.flushPending()
			if len(changed) == 0 {
				continue
			}
			logger.Info("Change detected.", "paths", changed)
			if err := onChange(ctx, changed); err != nil {
				logger.Error("Re-run after change failed.", "error", err)
			}
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.handleNewDirectory(ctx, rel)
		}
	}
	if !w.matches(rel) {
		return
	}

	w.pendingMu.Lock()
	w.pending[rel] |= event.Op
	w.pendingMu.Unlock()
	ctxlog.FromContext(ctx).Debug("Watched path changed.", "path", rel, "op", event.Op.String())
}

func (w *Watcher) handleNewDirectory(ctx context.Context, rel string) {
	if skipDirs[path.Base(rel)] {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, base := range w.recursive {
		if base == "." || base == "" || rel == base || strings.HasPrefix(rel, base+"/") {
			w.addTree(ctx, rel)
			return
		}
	}
}

func (w *Watcher) excluded(rel string) bool {
	for _, p := range w.excludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// excludedDir reports whether everything below dir is excluded.
func (w *Watcher) excludedDir(dir string) bool {
	return w.excluded(dir) || w.excluded(path.Join(dir, "_"))
}

func (w *Watcher) matches(rel string) bool {
	if w.excluded(rel) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[rel]; ok {
		return true
	}
	for _, g := range w.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) flushPending() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	w.pending = make(map[string]fsnotify.Op)
	sort.Strings(out)
	return out
}
