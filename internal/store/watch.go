package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
)

// Op is the kind of change reported by a Watcher.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Event reports that the record under Key changed.
type Event struct {
	Key string `json:"key"`
	Op  Op     `json:"op"`
}

// Watcher delivers change events from a backend. Events and Errors are
// buffered; when a buffer is full new items are dropped.
type Watcher struct {
	Events chan Event
	Errors chan error

	done     chan struct{}
	stopOnce sync.Once
	closeFn  func() error
}

func newWatcher(closeFn func() error) *Watcher {
	return &Watcher{
		Events:  make(chan Event, 100),
		Errors:  make(chan error, 10),
		done:    make(chan struct{}),
		closeFn: closeFn,
	}
}

// Stop stops the watcher and releases the underlying subscription.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.closeFn()
	})
	return err
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.Events <- ev:
	default:
		// Event channel full
	}
}

func (w *Watcher) fail(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}

// Watch reports record files created, rewritten or removed in the store
// directory. The directory is created if it does not exist yet.
func (f *File) Watch(context.Context) (*Watcher, error) {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(f.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", f.dir, err)
	}

	w := newWatcher(fsw.Close)
	go w.fileLoop(fsw)
	return w, nil
}

// fileLoop handles fsnotify events
func (w *Watcher) fileLoop(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	key, ok := keyFromPath(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.emit(Event{Key: key, Op: OpDelete})
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.emit(Event{Key: key, Op: OpSet})
	}
}

func (w *Watcher) redisLoop(msgs <-chan *redis.Message) {
	for {
		select {
		case <-w.done:
			return

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				w.fail(fmt.Errorf("decoding change event: %w", err))
				continue
			}
			w.emit(ev)
		}
	}
}
