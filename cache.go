package flashcache

import "context"

// Cache maps document keys to result files, keeping at most Limit entries.
type Cache interface {
	Lookup(ctx context.Context, key Key) (location string, ok bool, err error) // location of the cached result
	Insert(ctx context.Context, key Key, location string) error                // add, then evict down to Limit
	Refresh(ctx context.Context, key Key, location string) error               // re-point an existing entry
	Size(ctx context.Context) (int, error)                                     // number of entries

	Stat(ctx context.Context, key Key) (Entry, bool, error)
	List(ctx context.Context) ([]Entry, error) // oldest first
	Recover(ctx context.Context) (int, error)  // finish interrupted evictions

	Limit() int
	Artifacts() *ArtifactStore
	Close() error
}
