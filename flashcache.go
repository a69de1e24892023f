package flashcache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"

	"github.com/aweris/flashcache/internal/artifact"
	"github.com/aweris/flashcache/internal/store"
)

// ResultCache is the SQLite-backed Cache implementation.
type ResultCache struct {
	db        *store.DB
	artifacts *artifact.Store
	enforcer  *enforcer
	logger    *slog.Logger

	// mu serializes mutating sequences (insert + enforce, refresh, recover).
	// Lookups do not take it.
	mu sync.Mutex
}

var _ Cache = (*ResultCache)(nil)

// Open creates or opens the cache database at dbPath ("~" is expanded).
// Evictions left unfinished by a previous process are completed.
func Open(dbPath string, opts ...OpenOption) (Cache, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	dbPath, err := homedir.Expand(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	artifactDir := options.ArtifactDir
	if artifactDir == "" {
		artifactDir = filepath.Join(filepath.Dir(dbPath), "artifacts")
	}
	if artifactDir, err = homedir.Expand(artifactDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	artifacts, err := artifact.New(artifact.Config{
		Dir:              artifactDir,
		Compress:         options.Compress,
		CompressionLevel: options.CompressionLevel,
		CacheSize:        options.ArtifactCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	db, err := store.NewDB(store.Config{
		Path:      dbPath,
		Artifacts: artifacts,
		Now:       options.Now,
		Logger:    options.Logger,
	})
	if err != nil {
		artifacts.Close()
		return nil, err
	}

	ctx := context.Background()
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		artifacts.Close()
		return nil, err
	}

	c := &ResultCache{
		db:        db,
		artifacts: artifacts,
		logger:    options.Logger,
		enforcer: &enforcer{
			store:  db,
			limit:  options.Limit,
			logger: options.Logger,
		},
	}

	// Left-over tombstones are retried by the next Insert as well, so a
	// failure here does not prevent opening.
	if n, err := c.Recover(ctx); err != nil {
		c.logger.Warn("pending evictions not completed", "err", err)
	} else if n > 0 {
		c.logger.Info("completed pending evictions", "count", n)
	}

	return c, nil
}

func (c *ResultCache) Limit() int                { return c.enforcer.limit }
func (c *ResultCache) Artifacts() *ArtifactStore { return c.artifacts }

// Lookup returns the result location for key. An entry caught mid-eviction
// yields ErrEvictionPending.
func (c *ResultCache) Lookup(ctx context.Context, key Key) (string, bool, error) {
	loc, ok, err := c.db.Get(ctx, string(key))
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", key.Short(), err)
	}
	return loc, ok, nil
}

// Insert records location as the result for key, then evicts the least
// recently updated entries until Size is within Limit. It returns once the
// row and any evictions are durable.
func (c *ResultCache) Insert(ctx context.Context, key Key, location string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Put(ctx, string(key), location); err != nil {
		return fmt.Errorf("insert %s: %w", key.Short(), err)
	}
	c.logger.Debug("inserted cache entry", "key", string(key), "path", location)

	if _, err := c.enforcer.enforce(ctx); err != nil {
		return fmt.Errorf("insert %s: enforce limit: %w", key.Short(), err)
	}
	return nil
}

// Refresh re-points key at a regenerated result. The entry count does not
// change, so no eviction runs.
func (c *ResultCache) Refresh(ctx context.Context, key Key, location string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Update(ctx, string(key), location); err != nil {
		return fmt.Errorf("refresh %s: %w", key.Short(), err)
	}
	c.logger.Debug("refreshed cache entry", "key", string(key), "path", location)
	return nil
}

func (c *ResultCache) Size(ctx context.Context) (int, error) {
	n, err := c.db.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return n, nil
}

// Stat returns the full entry for key, including entries mid-eviction.
func (c *ResultCache) Stat(ctx context.Context, key Key) (Entry, bool, error) {
	e, ok, err := c.db.Stat(ctx, string(key))
	if err != nil {
		return Entry{}, false, fmt.Errorf("stat %s: %w", key.Short(), err)
	}
	return e, ok, nil
}

func (c *ResultCache) List(ctx context.Context) ([]Entry, error) {
	list, err := c.db.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return list, nil
}

// Recover completes evictions interrupted by a crash or a failed artifact
// removal and returns how many were completed.
func (c *ResultCache) Recover(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.enforcer.recover(ctx)
	if err != nil {
		return n, fmt.Errorf("recover: %w", err)
	}
	return n, nil
}

func (c *ResultCache) Close() error {
	err := c.db.Close()
	if cerr := c.artifacts.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
