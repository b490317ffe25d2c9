// Package watcher watches inbox directories for BOQ files with fsnotify and
// reports debounced changes and removals.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 750 * time.Millisecond

// Handler receives inbox events. OnChange runs after a file has been quiet
// for the debounce interval; OnRemove runs when a file is deleted or renamed
// away.
type Handler struct {
	OnChange func(path string)
	OnRemove func(path string)
}

// Inbox watches root directories for files with matching extensions.
type Inbox struct {
	roots      []string
	extensions []string
	recursive  bool
	handler    Handler
	debounce   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	pending   map[string]*time.Timer
	rootPaths map[string][]string // root -> directories added to fsnotify
	done      chan struct{}
	started   bool
	stopOnce  sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inbox) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay unchanged before OnChange runs.
// Spreadsheet applications write in several steps, so this should cover a save.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) {
		if d > 0 {
			in.debounce = d
		}
	}
}

// NewInbox creates an inbox watcher over roots. An empty extensions list
// accepts every file.
func NewInbox(roots, extensions []string, recursive bool, h Handler, opts ...Option) *Inbox {
	in := &Inbox{
		roots:      append([]string(nil), roots...),
		extensions: extensions,
		recursive:  recursive,
		handler:    h,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		rootPaths:  make(map[string][]string),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Start begins watching. It returns once every root is registered; events are
// handled until ctx is cancelled or Stop is called. Missing roots are created.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		in.mu.Unlock()
		return err
	}
	in.watcher = w
	in.started = true
	in.logger.Debug("inbox starting",
		zap.Strings("roots", in.roots),
		zap.Strings("extensions", in.extensions),
		zap.Bool("recursive", in.recursive))
	for i, root := range in.roots {
		abs, err := filepath.Abs(root)
		if err == nil {
			err = in.addRootLocked(abs)
		}
		if err != nil {
			_ = in.watcher.Close()
			in.watcher = nil
			in.started = false
			in.mu.Unlock()
			return err
		}
		in.roots[i] = abs
	}
	in.mu.Unlock()
	go in.run(ctx, w)
	return nil
}

func (in *Inbox) run(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			in.handleEvent(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if err != nil {
				in.logger.Warn("inbox watch error", zap.Error(err))
			}
		}
	}
}

func (in *Inbox) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !in.underRoot(path) {
		return
	}
	in.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		in.cancel(path)
		if in.accepts(path) && in.handler.OnRemove != nil {
			in.handler.OnRemove(path)
		}
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Op.Has(fsnotify.Create) {
				in.handleNewDirectory(path)
			}
			return
		}
		if in.accepts(path) {
			in.schedule(path)
		}
	}
}

// handleNewDirectory registers a directory created (or moved) under a root
// and picks up files already inside it.
func (in *Inbox) handleNewDirectory(dir string) {
	in.mu.Lock()
	recursive := in.recursive
	w := in.watcher
	in.mu.Unlock()
	if w == nil || !recursive {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				in.logger.Debug("inbox failed to add directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	in.syncDirectory(dir)
}

func (in *Inbox) underRoot(path string) bool {
	in.mu.Lock()
	roots := append([]string(nil), in.roots...)
	recursive := in.recursive
	in.mu.Unlock()
	for _, root := range roots {
		root = filepath.Clean(root)
		if recursive && inDir(root, path) {
			return true
		}
		if !recursive && filepath.Dir(path) == root {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (in *Inbox) accepts(path string) bool {
	return Accepts(path, in.extensions)
}

// Accepts reports whether path is an inbox candidate: not an office lock or
// hidden file, and with one of extensions (any extension when empty).
func Accepts(path string, extensions []string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.started {
		return
	}
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		onChange := in.handler.OnChange
		in.mu.Unlock()
		in.logger.Debug("inbox file settled", zap.String("path", path))
		if onChange != nil {
			onChange(path)
		}
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
		delete(in.pending, path)
	}
}

// AddDirectory starts watching root. When syncExisting is set, files already
// present are reported through OnChange in the background.
func (in *Inbox) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	in.mu.Lock()
	for _, r := range in.roots {
		if filepath.Clean(r) == abs {
			in.mu.Unlock()
			return nil
		}
	}
	if in.watcher != nil {
		if err := in.addRootLocked(abs); err != nil {
			in.mu.Unlock()
			return err
		}
	}
	in.roots = append(in.roots, abs)
	in.mu.Unlock()

	in.logger.Info("inbox directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go in.syncDirectory(abs)
	}
	return nil
}

func (in *Inbox) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !in.recursive {
		if err := in.watcher.Add(root); err != nil {
			return err
		}
		in.rootPaths[root] = []string{root}
		return nil
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := in.watcher.Add(path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	in.rootPaths[root] = paths
	return nil
}

func (in *Inbox) syncDirectory(root string) {
	in.mu.Lock()
	exts := append([]string(nil), in.extensions...)
	recursive := in.recursive
	onChange := in.handler.OnChange
	in.mu.Unlock()
	if onChange == nil {
		return
	}
	in.logger.Debug("inbox syncing directory", zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if Accepts(path, exts) {
			onChange(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Stored extractions are kept.
func (in *Inbox) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	in.mu.Lock()
	defer in.mu.Unlock()
	idx := -1
	for i, r := range in.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if in.watcher != nil {
		for _, p := range in.rootPaths[abs] {
			_ = in.watcher.Remove(p)
		}
	}
	delete(in.rootPaths, abs)
	in.roots = append(in.roots[:idx], in.roots[idx+1:]...)
	for path, t := range in.pending {
		if inDir(abs, path) {
			t.Stop()
			delete(in.pending, path)
		}
	}
	in.logger.Info("inbox directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the watched roots.
func (in *Inbox) Directories() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.roots...)
}

// SyncExistingFiles reports every matching file already present in the roots.
// Call it after Start to pick up files dropped while the service was down.
func (in *Inbox) SyncExistingFiles() {
	for _, root := range in.Directories() {
		in.syncDirectory(root)
	}
}

// Stop stops watching and cancels pending events.
func (in *Inbox) Stop() {
	in.mu.Lock()
	if !in.started || in.watcher == nil {
		in.mu.Unlock()
		return
	}
	for path, t := range in.pending {
		t.Stop()
		delete(in.pending, path)
	}
	_ = in.watcher.Close()
	in.watcher = nil
	in.started = false
	in.mu.Unlock()
	in.stopOnce.Do(func() { close(in.done) })
}
