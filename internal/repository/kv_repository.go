package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"todo-list/internal/model"
)

// KVRepository handles the rows behind the key-value storage.
type KVRepository struct {
	db *gorm.DB
}

func NewKVRepository(db *gorm.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Find returns the live entry for key. A missing or removed key yields nil without error.
func (r *KVRepository) Find(ctx context.Context, key string) (*model.KVEntry, error) {
	var entry model.KVEntry
	err := r.db.WithContext(ctx).Where("name = ?", key).First(&entry).Error
	switch {
	case err == nil:
		return &entry, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find entry: %w", err)
	}
}

// Put writes value under key, reviving a removed key and bumping its revision.
func (r *KVRepository) Put(ctx context.Context, key, value, origin string) (*model.KVEntry, error) {
	var entry model.KVEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Unscoped().Where("name = ?", key).First(&entry).Error
		switch {
		case err == nil:
			next := entry.Revision + 1
			updates := map[string]interface{}{
				"value":      value,
				"revision":   next,
				"origin":     origin,
				"deleted_at": nil,
			}
			if err := tx.Unscoped().Model(&entry).Updates(updates).Error; err != nil {
				return fmt.Errorf("update entry: %w", err)
			}
			entry.Value = value
			entry.Revision = next
			entry.Origin = origin
			entry.DeletedAt = gorm.DeletedAt{}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = model.KVEntry{Key: key, Value: value, Revision: 1, Origin: origin}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("create entry: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("find entry: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete turns key into a tombstone so other readers observe the removal.
// Deleting a missing key is not an error.
func (r *KVRepository) Delete(ctx context.Context, key, origin string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.KVEntry
		err := tx.Where("name = ?", key).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find entry: %w", err)
		}
		updates := map[string]interface{}{
			"value":    "",
			"revision": entry.Revision + 1,
			"origin":   origin,
		}
		if err := tx.Model(&entry).Updates(updates).Error; err != nil {
			return fmt.Errorf("tombstone entry: %w", err)
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})
}

// ListAll returns every entry, tombstones included, ordered by key.
func (r *KVRepository) ListAll(ctx context.Context) ([]model.KVEntry, error) {
	var entries []model.KVEntry
	if err := r.db.WithContext(ctx).Unscoped().Order("name ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}
