package index

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when a scanned directory has changed on disk and the
// index should be rebuilt. It never mutates the Index itself: the owning
// loop decides when to rescan.
type Watcher struct {
	fs    *fsnotify.Watcher
	stale chan struct{}
}

// Watch starts watching the index's directory. The returned Watcher's
// Stale channel receives at most one pending notification; coalesced
// events do not queue up. The watcher stops when ctx is cancelled.
func (ix *Index) Watch(ctx context.Context) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("index: watch: %w", err)
	}
	if err := fs.Add(ix.dir); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnreadable, ix.dir, err)
	}

	w := &Watcher{fs: fs, stale: make(chan struct{}, 1)}
	go w.run(ctx)
	return w, nil
}

// Stale returns a channel that receives when the directory contents
// may have changed.
func (w *Watcher) Stale() <-chan struct{} { return w.stale }

func (w *Watcher) run(ctx context.Context) {
	defer func() { _ = w.fs.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				select {
				case w.stale <- struct{}{}:
				default:
					// A notification is already pending.
				}
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}
