package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"todo-list/internal/model"
	"todo-list/internal/repository"
	"todo-list/internal/storage"
)

func newTestRepo(t *testing.T) *repository.KVRepository {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "todo.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		t.Cleanup(func() { sqlDB.Close() })
	}
	return repository.NewKVRepository(db)
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	return storage.NewWithRepository(newTestRepo(t), storage.Options{})
}

// fakeClock advances by one second on every reading so creation order is observable.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("task-%03d", n)
	}
}

func newTestTaskService(t *testing.T, store *storage.Store) (*TaskService, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	svc := NewTaskService(store, TaskServiceOptions{Now: clock.Now, NewID: sequentialIDs()})
	return svc, clock
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []model.NotificationType
}

func (r *recordingNotifier) Notify(kind model.NotificationType, _, _ string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return fmt.Sprintf("n-%d", len(r.kinds))
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.kinds)
}

type staticSource []model.Task

func (s staticSource) Tasks() []model.Task { return s }

func dateOf(t time.Time) *model.Date {
	d := model.NewDate(t.Year(), t.Month(), t.Day())
	return &d
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
