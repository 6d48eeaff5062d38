package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"todo-list/internal/repository"
)

func newTestRepo(t *testing.T) *repository.KVRepository {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "storage.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		t.Cleanup(func() { sqlDB.Close() })
	}
	return repository.NewKVRepository(db)
}

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestSetAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewWithRepository(newTestRepo(t), Options{})

	want := sample{Name: "milk", Count: 2, Tags: []string{"shop"}}
	if !Set(ctx, store, "sample", want) {
		t.Fatalf("Set returned false")
	}

	got, ok := Get[sample](ctx, store, "sample")
	if !ok {
		t.Fatalf("Get reported miss")
	}
	if got.Name != want.Name || got.Count != want.Count || len(got.Tags) != 1 || got.Tags[0] != "shop" {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewWithRepository(newTestRepo(t), Options{})

	if _, ok := Get[sample](ctx, store, "absent"); ok {
		t.Fatalf("expected miss for absent key")
	}
	if got := GetOr(ctx, store, "absent", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetCorruptedValueFailsSoft(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.Put(ctx, "broken", "{not json", "elsewhere"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewWithRepository(repo, Options{})

	if _, ok := Get[sample](ctx, store, "broken"); ok {
		t.Fatalf("expected corrupted value to be reported as a miss")
	}
	if got := GetOr(ctx, store, "broken", sample{Name: "default"}); got.Name != "default" {
		t.Fatalf("expected default, got %+v", got)
	}
}

func TestSetRejectsOversizedValue(t *testing.T) {
	ctx := context.Background()
	store := NewWithRepository(newTestRepo(t), Options{MaxValueBytes: 16})

	if Set(ctx, store, "big", strings.Repeat("x", 64)) {
		t.Fatalf("expected quota failure")
	}
	if _, ok := store.Raw(ctx, "big"); ok {
		t.Fatalf("oversized value must not be written")
	}
}

func TestSetRejectsUnencodableValue(t *testing.T) {
	ctx := context.Background()
	store := NewWithRepository(newTestRepo(t), Options{})

	if Set(ctx, store, "chan", make(chan int)) {
		t.Fatalf("expected encode failure")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewWithRepository(newTestRepo(t), Options{})

	if !store.Remove(ctx, "never-written") {
		t.Fatalf("removing an absent key should succeed")
	}
	Set(ctx, store, "theme", "dark")
	if !store.Remove(ctx, "theme") {
		t.Fatalf("Remove returned false")
	}
	if !store.Remove(ctx, "theme") {
		t.Fatalf("second Remove returned false")
	}
	if _, ok := Get[string](ctx, store, "theme"); ok {
		t.Fatalf("expected key to be gone")
	}

	Set(ctx, store, "theme", "light")
	if got := GetOr(ctx, store, "theme", ""); got != "light" {
		t.Fatalf("expected revived key, got %q", got)
	}
}

type failingBackend struct{}

var errBackend = errors.New("disk full")

func (failingBackend) Find(context.Context, string) (*Entry, error)     { return nil, errBackend }
func (failingBackend) Put(context.Context, string, string, string) error { return errBackend }
func (failingBackend) Delete(context.Context, string, string) error      { return errBackend }

func TestBackendFailuresAreContained(t *testing.T) {
	ctx := context.Background()
	store := New(failingBackend{}, Options{})

	if Set(ctx, store, "todos", []int{1}) {
		t.Fatalf("expected Set to report failure")
	}
	if _, ok := Get[[]int](ctx, store, "todos"); ok {
		t.Fatalf("expected Get to report miss")
	}
	if store.Remove(ctx, "todos") {
		t.Fatalf("expected Remove to report failure")
	}
}
