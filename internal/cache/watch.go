package cache

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/stsci-crds/crds-go/internal/metrics"
)

// Invalidator is the subset of Mappings a Watcher needs: drop a
// basename's cached entry, and recall its last-loaded fingerprint so a
// write event that didn't actually change the bytes (an editor
// re-saving identical content) doesn't force a reload.
type Invalidator interface {
	Invalidate(basename string)
	Fingerprint(basename string) (uint64, bool)
}

// Watcher is the optional dev-mode invalidator left as
// an implementation choice rather than requiring: production lookups
// never need it, since the cache has no eviction policy and mapping
// files are treated as immutable once loaded. It mirrors the recursive
// fsnotify add-watch / event-loop shape used for live index
// updates elsewhere in this codebase.
type Watcher struct {
	fsWatcher      *fsnotify.Watcher
	inv            Invalidator
	pathToBasename func(path string) (basename string, ok bool)

	// Metrics is optional; nil leaves recording disabled.
	Metrics *metrics.Counters

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a fsnotify-backed watcher rooted at root.
// pathToBasename maps an absolute file path under root back to the
// mapping basename cache entries are keyed by (a responsibility of the
// locate package, which knows the <observatory>/<basename> layout).
func NewWatcher(root string, pathToBasename func(path string) (string, bool), inv Invalidator) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{fsWatcher: fw, inv: inv, pathToBasename: pathToBasename, ctx: ctx, cancel: cancel}
	if err := w.addWatches(root); err != nil {
		fw.Close()
		cancel()
		return nil, err
	}
	return w, nil
}

// Start begins processing filesystem events in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.processEvents()
}

// Stop tears down the watcher and waits for its event loop to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			log.Printf("cache: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("cache: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	basename, ok := w.pathToBasename(event.Name)
	if !ok {
		return
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.invalidate(basename)
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	content, err := os.ReadFile(event.Name)
	if err != nil {
		// File already gone by the time we read it (common for editor
		// save sequences that rename-then-remove); treat as removal.
		w.invalidate(basename)
		return
	}
	newFP := xxhash.Sum64(content)
	if oldFP, cached := w.inv.Fingerprint(basename); cached && oldFP == newFP {
		return
	}
	w.invalidate(basename)
}

func (w *Watcher) invalidate(basename string) {
	w.inv.Invalidate(basename)
	if w.Metrics != nil {
		w.Metrics.RecordWatchInvalidation()
	}
}
