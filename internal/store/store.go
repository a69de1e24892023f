// Package store implements the durable metadata layer of the result cache.
//
// Each row maps a content hash to the location of an artifact file:
// - one table, primary key on the hash
// - size captured from the artifact when the row is written
// - updated_at (unix seconds) drives eviction order
// - evicting marks a row whose artifact removal is in flight
package store

import (
	"context"
	"time"
)

// Entry is a single cached artifact.
type Entry struct {
	Key       string
	Location  string
	Size      int64
	UpdatedAt time.Time

	// Evicting is set while the row is tombstoned: the artifact may or may
	// not still exist, and the row is removed once it is gone.
	Evicting bool
}

// Artifacts is the file system that entry locations point into.
type Artifacts interface {
	// Size returns the byte length of the artifact at location.
	Size(location string) (int64, error)

	// Remove deletes the artifact at location. Removing a missing
	// artifact is not an error.
	Remove(location string) error
}

// Store handles cache metadata.
type Store interface {
	// Initialize creates the schema if absent. Safe to call repeatedly.
	Initialize(ctx context.Context) error

	// Get returns the location stored for key.
	Get(ctx context.Context, key string) (location string, ok bool, err error)

	// GetSize returns the artifact size stored for key.
	GetSize(ctx context.Context, key string) (size int64, ok bool, err error)

	// Stat returns the full row for key.
	Stat(ctx context.Context, key string) (Entry, bool, error)

	// Put inserts a new row for key pointing at location.
	Put(ctx context.Context, key, location string) error

	// Update re-points an existing row and refreshes its timestamp.
	Update(ctx context.Context, key, location string) error

	// List returns all rows, oldest first.
	List(ctx context.Context) ([]Entry, error)

	// Count returns the number of rows, tombstoned ones included.
	Count(ctx context.Context) (int, error)

	// DeleteOldest evicts the least recently updated row and its artifact.
	DeleteOldest(ctx context.Context) (Entry, error)

	// Pending returns the rows left tombstoned by an unfinished eviction.
	Pending(ctx context.Context) ([]Entry, error)

	// CompleteEviction removes the artifact of a tombstoned row, then the row.
	CompleteEviction(ctx context.Context, entry Entry) error

	Close() error
}
