package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const entryColumns = "hash, file_path, file_size, updated_at, evicting"

// ageOrder sorts rows least recently updated first. Rows written within
// the same second keep their write order through revision.
const ageOrder = "ORDER BY updated_at ASC, revision ASC"

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		updatedAt int64
	)
	if err := row.Scan(&e.Key, &e.Location, &e.Size, &updatedAt, &e.Evicting); err != nil {
		return Entry{}, err
	}
	e.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return e, nil
}

func findEntry(ctx context.Context, q querier, key string) (Entry, bool, error) {
	row := q.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM cache WHERE hash = ?", key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "failed to query cache entry")
	}
	return e, true, nil
}

// Stat returns the row for key, tombstoned or not.
func (d *DB) Stat(ctx context.Context, key string) (Entry, bool, error) {
	return findEntry(ctx, d.db, key)
}

// Get returns the location for key. A tombstoned row yields
// ErrEvictionPending: its artifact may already be gone.
func (d *DB) Get(ctx context.Context, key string) (string, bool, error) {
	e, ok, err := d.live(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return e.Location, true, nil
}

// GetSize returns the artifact size recorded for key.
func (d *DB) GetSize(ctx context.Context, key string) (int64, bool, error) {
	e, ok, err := d.live(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	return e.Size, true, nil
}

func (d *DB) live(ctx context.Context, key string) (Entry, bool, error) {
	e, ok, err := findEntry(ctx, d.db, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if e.Evicting {
		return Entry{}, false, errors.Wrapf(ErrEvictionPending, "hash %s", key)
	}
	return e, true, nil
}

// Put inserts a row for key. The artifact at location is sized now.
//
// The new row is stamped no earlier than any existing row so an insertion
// can never make its own entry the eviction candidate.
func (d *DB) Put(ctx context.Context, key, location string) error {
	size, err := d.artifacts.Size(location)
	if err != nil {
		return err
	}
	now := d.now().Unix()

	return d.withTx(ctx, func(tx *sql.Tx) error {
		e, exists, err := findEntry(ctx, tx, key)
		if err != nil {
			return err
		}
		if exists {
			if e.Evicting {
				return errors.Wrapf(ErrEvictionPending, "hash %s", key)
			}
			return errors.Wrapf(ErrDuplicateKey, "hash %s", key)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cache (hash, file_path, file_size, updated_at, revision)
			SELECT ?, ?, ?, MAX(?, COALESCE(MAX(updated_at), 0)), COALESCE(MAX(revision), 0) + 1
			FROM cache`,
			key, location, size, now,
		)
		return errors.Wrap(err, "failed to insert cache entry")
	})
}

// Update re-points key at location. updated_at always moves strictly
// forward, even when called twice within the same second.
func (d *DB) Update(ctx context.Context, key, location string) error {
	size, err := d.artifacts.Size(location)
	if err != nil {
		return err
	}
	now := d.now().Unix()

	return d.withTx(ctx, func(tx *sql.Tx) error {
		e, exists, err := findEntry(ctx, tx, key)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(ErrNotFound, "hash %s", key)
		}
		if e.Evicting {
			return errors.Wrapf(ErrEvictionPending, "hash %s", key)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cache SET
				file_path = ?,
				file_size = ?,
				updated_at = MAX(?, updated_at + 1, (SELECT MAX(updated_at) FROM cache)),
				revision = (SELECT MAX(revision) FROM cache) + 1
			WHERE hash = ?`,
			location, size, now, key,
		)
		return errors.Wrap(err, "failed to update cache entry")
	})
}

// List returns every row, least recently updated first.
func (d *DB) List(ctx context.Context) ([]Entry, error) {
	return d.list(ctx, "SELECT "+entryColumns+" FROM cache "+ageOrder)
}

// Count includes tombstoned rows: they still hold an artifact slot until
// their eviction completes.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count cache entries")
	}
	return n, nil
}

func (d *DB) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cache entries")
	}
	defer rows.Close()

	list := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan cache entry")
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate cache entries")
	}
	return list, nil
}
