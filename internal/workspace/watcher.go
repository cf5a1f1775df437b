package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change is one filesystem event for a source file.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to source files under the roots, within the
// same depth and exclusion limits as Scan.
type Watcher struct {
	roots   []string
	opts    Options
	handler func(Change)

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWatcher(roots []string, opts Options, handler func(Change)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if root != "" {
			cleaned = append(cleaned, filepath.Clean(root))
		}
	}
	return &Watcher{
		roots:   cleaned,
		opts:    opts,
		handler: handler,
		watcher: watcher,
		done:    make(chan struct{}),
	}, nil
}

// Start registers the directories to watch and begins delivering changes.
func (w *Watcher) Start(ctx context.Context) {
	for _, root := range w.roots {
		w.addTree(root, root)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processEvents(ctx)
	}()
}

// Stop ends event delivery and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			log.Warningf("closing watcher: %s", err)
		}
		w.wg.Wait()
	})
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	return w.watcher.WatchList()
}

func (w *Watcher) addTree(root, dir string) {
	if w.opts.MaxDepth <= 0 {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (IsExcluded(d.Name(), w.opts.Exclude) || Depth(root, path) >= w.opts.MaxDepth) {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Debugf("cannot watch %s: %s", path, err)
		}
		return nil
	})
}

// rootOf returns the root containing path.
func (w *Watcher) rootOf(path string) (string, bool) {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("watch error: %s", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if root, ok := w.rootOf(event.Name); ok {
				w.addTree(root, event.Name)
			}
			return
		}
	}
	if !strings.HasSuffix(event.Name, w.opts.Extension) || event.Op == fsnotify.Chmod {
		return
	}
	if w.handler != nil {
		w.handler(Change{Path: event.Name, Op: event.Op})
	}
}
