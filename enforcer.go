package flashcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aweris/flashcache/internal/store"
)

type evictor interface {
	Count(ctx context.Context) (int, error)
	DeleteOldest(ctx context.Context) (store.Entry, error)
	Pending(ctx context.Context) ([]store.Entry, error)
	CompleteEviction(ctx context.Context, entry store.Entry) error
}

// enforcer keeps the entry count at or below limit.
type enforcer struct {
	store  evictor
	limit  int
	logger *slog.Logger
}

// enforce finishes pending evictions, then evicts the oldest entry until
// the count is back at the limit. Callers must serialize calls.
func (e *enforcer) enforce(ctx context.Context) ([]Entry, error) {
	if _, err := e.recover(ctx); err != nil {
		return nil, err
	}

	var evicted []Entry
	for {
		n, err := e.store.Count(ctx)
		if err != nil {
			return evicted, err
		}
		if n <= e.limit {
			return evicted, nil
		}

		victim, err := e.store.DeleteOldest(ctx)
		if errors.Is(err, store.ErrEmptyStore) {
			return evicted, nil
		}
		if err != nil {
			return evicted, fmt.Errorf("evict oldest entry: %w", err)
		}

		e.logger.Info("evicted cache entry",
			"key", victim.Key, "path", victim.Location, "entries", n-1, "limit", e.limit)
		evicted = append(evicted, victim)
	}
}

// recover completes every tombstoned eviction it can. It returns the number
// completed and the joined errors of the rest.
func (e *enforcer) recover(ctx context.Context) (int, error) {
	pending, err := e.store.Pending(ctx)
	if err != nil {
		return 0, err
	}

	var (
		done int
		errs []error
	)
	for _, entry := range pending {
		if err := e.store.CompleteEviction(ctx, entry); err != nil {
			errs = append(errs, err)
			continue
		}
		e.logger.Info("completed pending eviction", "key", entry.Key, "path", entry.Location)
		done++
	}
	return done, errors.Join(errs...)
}
