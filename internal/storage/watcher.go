package storage

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"todo-list/internal/logging"
	"todo-list/internal/model"
)

// Event describes a change to one key made by another store.
// NewValue is nil when the key was removed.
type Event struct {
	Key      string
	OldValue *string
	NewValue *string
	Origin   string
	Revision int64
}

// EntryLister lists every entry including removed ones.
type EntryLister interface {
	ListAll(ctx context.Context) ([]model.KVEntry, error)
}

type snapshot struct {
	revision int64
	value    *string
}

// Watcher detects writes by other origins and fans them out to subscribers.
// Writes by its own origin are recorded silently.
type Watcher struct {
	lister EntryLister
	origin string
	logger *log.Logger

	mu     sync.Mutex
	seen   map[string]snapshot
	primed bool

	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

func NewWatcher(lister EntryLister, origin string, logger *log.Logger) *Watcher {
	return &Watcher{
		lister: lister,
		origin: origin,
		logger: logging.OrDiscard(logger),
		seen:   make(map[string]snapshot),
		subs:   make(map[int]func(Event)),
	}
}

// Subscribe registers fn for future events and returns its cancel function.
func (w *Watcher) Subscribe(fn func(Event)) func() {
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.subMu.Unlock()

	return func() {
		w.subMu.Lock()
		delete(w.subs, id)
		w.subMu.Unlock()
	}
}

// Prime records the current state without publishing anything.
func (w *Watcher) Prime(ctx context.Context) error {
	entries, err := w.lister.ListAll(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		w.seen[entry.Key] = snapshotOf(entry)
	}
	w.primed = true
	return nil
}

// Poll compares the stored revisions against the last seen ones and publishes
// an event for every key another origin changed. The published events are returned.
func (w *Watcher) Poll(ctx context.Context) ([]Event, error) {
	entries, err := w.lister.ListAll(ctx)
	if err != nil {
		w.logger.Error("poll storage", "err", err)
		return nil, err
	}

	var events []Event
	w.mu.Lock()
	if !w.primed {
		for _, entry := range entries {
			w.seen[entry.Key] = snapshotOf(entry)
		}
		w.primed = true
		w.mu.Unlock()
		return nil, nil
	}
	for _, entry := range entries {
		prev, known := w.seen[entry.Key]
		if known && prev.revision == entry.Revision {
			continue
		}
		next := snapshotOf(entry)
		w.seen[entry.Key] = next
		if entry.Origin == w.origin {
			continue
		}
		events = append(events, Event{
			Key:      entry.Key,
			OldValue: prev.value,
			NewValue: next.value,
			Origin:   entry.Origin,
			Revision: entry.Revision,
		})
	}
	w.mu.Unlock()

	for _, ev := range events {
		w.logger.Debug("storage changed", "key", ev.Key, "origin", ev.Origin, "revision", ev.Revision)
		w.publish(ev)
	}
	return events, nil
}

func (w *Watcher) publish(ev Event) {
	w.subMu.RLock()
	subs := make([]func(Event), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func snapshotOf(entry model.KVEntry) snapshot {
	s := snapshot{revision: entry.Revision}
	if !entry.Removed() {
		v := entry.Value
		s.value = &v
	}
	return s
}
