package channel

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher converts filesystem events on a file channel directory into
// wake signals. Wakes only shorten the poller's sleep between ticks;
// the periodic poll remains the correctness mechanism, since fsnotify
// events can be coalesced or dropped.
type Watcher struct {
	fsw  *fsnotify.Watcher
	wake chan struct{}
}

// Watch starts watching the channel directory for new messages.
func (c *FileChannel) Watch() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(c.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", c.dir, err)
	}

	w := &Watcher{
		fsw:  fsw,
		wake: make(chan struct{}, 1),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.wake)
				return
			}
			// Atomic writes land as a rename into place; direct writers
			// produce creates.
			if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				select {
				case w.wake <- struct{}{}:
				default:
				}
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				close(w.wake)
				return
			}
		}
	}
}

// Wake returns the signal channel. It is closed when the watcher stops.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
