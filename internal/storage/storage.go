// Package storage is a fail-soft JSON key-value store shared by every
// process that opens the same database.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"todo-list/internal/logging"
	"todo-list/internal/repository"
)

// ErrQuotaExceeded is logged when a value is larger than the configured limit.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// DefaultMaxValueBytes mirrors the usual per-origin browser storage quota.
const DefaultMaxValueBytes = 5 << 20

// Backend is the persistence the store writes through.
type Backend interface {
	Find(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key, value, origin string) error
	Delete(ctx context.Context, key, origin string) error
}

// Entry is a raw stored value.
type Entry struct {
	Key      string
	Value    string
	Revision int64
	Origin   string
}

// Options configures a Store.
type Options struct {
	// Origin identifies this store in change events. Generated when empty.
	Origin string
	// MaxValueBytes rejects larger encoded values. Zero means DefaultMaxValueBytes.
	MaxValueBytes int
	// Timeout bounds each backend call. Zero means five seconds.
	Timeout time.Duration
	Logger  *log.Logger
}

// Store reads and writes JSON values. It never returns errors to callers:
// failures are logged and reported as a miss or as false.
type Store struct {
	backend  Backend
	origin   string
	maxBytes int
	timeout  time.Duration
	logger   *log.Logger
}

func New(backend Backend, opts Options) *Store {
	origin := opts.Origin
	if origin == "" {
		origin = uuid.NewString()
	}
	maxBytes := opts.MaxValueBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxValueBytes
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{
		backend:  backend,
		origin:   origin,
		maxBytes: maxBytes,
		timeout:  timeout,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// NewWithRepository wires a store to the gorm key-value repository.
func NewWithRepository(repo *repository.KVRepository, opts Options) *Store {
	return New(RepositoryBackend{Repo: repo}, opts)
}

// Origin returns the identifier stamped on this store's writes.
func (s *Store) Origin() string {
	return s.origin
}

// Raw returns the stored JSON text for key.
func (s *Store) Raw(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.backend.Find(ctx, key)
	if err != nil {
		s.logger.Error("read storage key", "key", key, "err", err)
		return "", false
	}
	if entry == nil || entry.Value == "" {
		return "", false
	}
	return entry.Value, true
}

// Remove deletes key. Removing a missing key succeeds.
func (s *Store) Remove(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.Delete(ctx, key, s.origin); err != nil {
		s.logger.Error("remove storage key", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Store) setRaw(ctx context.Context, key string, data []byte) bool {
	if len(data) > s.maxBytes {
		s.logger.Error("write storage key", "key", key, "size", len(data), "limit", s.maxBytes, "err", ErrQuotaExceeded)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.Put(ctx, key, string(data), s.origin); err != nil {
		s.logger.Error("write storage key", "key", key, "err", err)
		return false
	}
	return true
}

// Get decodes the value under key. It reports false when the key is absent
// or its value cannot be decoded into T.
func Get[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T
	raw, ok := s.Raw(ctx, key)
	if !ok {
		return zero, false
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.logger.Error("decode storage key", "key", key, "err", err)
		return zero, false
	}
	return value, true
}

// GetOr is Get with a fallback value.
func GetOr[T any](ctx context.Context, s *Store, key string, def T) T {
	if value, ok := Get[T](ctx, s, key); ok {
		return value
	}
	return def
}

// Set encodes value as JSON and writes it under key.
func Set[T any](ctx context.Context, s *Store, key string, value T) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("encode storage key", "key", key, "err", fmt.Errorf("marshal: %w", err))
		return false
	}
	return s.setRaw(ctx, key, data)
}

// RepositoryBackend adapts KVRepository to Backend.
type RepositoryBackend struct {
	Repo *repository.KVRepository
}

func (b RepositoryBackend) Find(ctx context.Context, key string) (*Entry, error) {
	row, err := b.Repo.Find(ctx, key)
	if err != nil || row == nil {
		return nil, err
	}
	return &Entry{Key: row.Key, Value: row.Value, Revision: row.Revision, Origin: row.Origin}, nil
}

func (b RepositoryBackend) Put(ctx context.Context, key, value, origin string) error {
	_, err := b.Repo.Put(ctx, key, value, origin)
	return err
}

func (b RepositoryBackend) Delete(ctx context.Context, key, origin string) error {
	return b.Repo.Delete(ctx, key, origin)
}
