package store

import "errors"

var (
	ErrStorageUnavailable = errors.New("flashcache: storage unavailable")
	ErrDuplicateKey       = errors.New("flashcache: duplicate key")
	ErrNotFound           = errors.New("flashcache: not found")
	ErrEmptyStore         = errors.New("flashcache: empty store")
	ErrEvictionPending    = errors.New("flashcache: eviction pending")
)
