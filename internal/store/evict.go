package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Eviction is a two-phase delete:
//
//  1. tombstone the row (evicting = 1) in one transaction
//  2. remove the artifact from disk
//  3. delete the row
//
// A failure in 2 leaves the tombstone and the entry stays counted. A crash
// between 2 and 3 leaves a tombstone whose artifact is already gone; since
// removing a missing artifact succeeds, CompleteEviction finishes it.

// DeleteOldest evicts the least recently updated row, tombstoned rows
// included. It returns ErrEmptyStore when there is nothing to evict.
func (d *DB) DeleteOldest(ctx context.Context) (Entry, error) {
	var victim Entry
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		e, err := scanEntry(tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM cache "+ageOrder+" LIMIT 1"))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEmptyStore
		}
		if err != nil {
			return errors.Wrap(err, "failed to find oldest cache entry")
		}
		if !e.Evicting {
			if _, err := tx.ExecContext(ctx, "UPDATE cache SET evicting = 1 WHERE hash = ?", e.Key); err != nil {
				return errors.Wrap(err, "failed to mark cache entry for eviction")
			}
			e.Evicting = true
		}
		victim = e
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	if err := d.CompleteEviction(ctx, victim); err != nil {
		return victim, err
	}
	return victim, nil
}

// Pending returns tombstoned rows, oldest first.
func (d *DB) Pending(ctx context.Context) ([]Entry, error) {
	return d.list(ctx, "SELECT "+entryColumns+" FROM cache WHERE evicting = 1 "+ageOrder)
}

// CompleteEviction finishes phases 2 and 3 for a tombstoned row. The
// location removed is the one stored in the row, not entry.Location.
func (d *DB) CompleteEviction(ctx context.Context, entry Entry) error {
	cur, ok, err := findEntry(ctx, d.db, entry.Key)
	if err != nil {
		return err
	}
	if !ok || !cur.Evicting {
		return errors.Wrapf(ErrNotFound, "hash %s is not pending eviction", entry.Key)
	}

	if err := d.artifacts.Remove(cur.Location); err != nil {
		d.logger.Error("artifact removal failed, entry left pending eviction",
			"key", cur.Key, "path", cur.Location, "err", err)
		return errors.Wrapf(err, "evict %s", cur.Key)
	}

	if _, err := d.db.ExecContext(ctx, "DELETE FROM cache WHERE hash = ? AND evicting = 1", cur.Key); err != nil {
		d.logger.Error("artifact removed but row delete failed, recovery required",
			"key", cur.Key, "path", cur.Location, "err", err)
		return errors.Wrapf(err, "failed to delete evicted entry %s", cur.Key)
	}

	d.logger.Debug("evicted cache entry", "key", cur.Key, "path", cur.Location, "size", cur.Size)
	return nil
}
