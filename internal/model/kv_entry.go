package model

import (
	"time"

	"gorm.io/gorm"
)

// KVEntry is one key of the shared key-value storage.
// Revision grows on every write; Origin names the store that wrote it last.
type KVEntry struct {
	Key       string `gorm:"primaryKey;column:name"`
	Value     string
	Revision  int64
	Origin    string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Removed reports whether the entry is a tombstone.
func (e KVEntry) Removed() bool {
	return e.DeletedAt.Valid
}
