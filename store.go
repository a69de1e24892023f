package flashcache

import (
	"github.com/aweris/flashcache/internal/artifact"
	"github.com/aweris/flashcache/internal/store"
)

// Entry is a cache row.
// Re-exported from internal/store for convenience.
type Entry = store.Entry

// ArtifactStore reads and writes result files.
// Re-exported from internal/artifact for convenience.
type ArtifactStore = artifact.Store
