package flashcache

import (
	"errors"

	"github.com/aweris/flashcache/internal/artifact"
	"github.com/aweris/flashcache/internal/store"
)

var (
	ErrStorageUnavailable = store.ErrStorageUnavailable
	ErrDuplicateKey       = store.ErrDuplicateKey
	ErrNotFound           = store.ErrNotFound
	ErrEmptyStore         = store.ErrEmptyStore
	ErrEvictionPending    = store.ErrEvictionPending
	ErrArtifactIO         = artifact.ErrIO
	ErrInvalidKey         = errors.New("flashcache: invalid key")
)

// ArtifactError reports a failed stat, write, read or removal of an
// artifact file. It matches ErrArtifactIO.
type ArtifactError = artifact.Error
