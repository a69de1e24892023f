package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SchemaVersion is recorded in PRAGMA user_version.
const SchemaVersion = 1

//go:embed schema.sql
var schema string

// Config configures a DB.
type Config struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string

	// Artifacts sizes and removes the files rows point at.
	Artifacts Artifacts

	Now    func() time.Time
	Logger *slog.Logger
}

// DB implements Store on a SQLite database file.
//
// Writers use immediate transactions so the read-check-write sequences in
// Put, Update and eviction never interleave. WAL mode keeps readers off the
// writer's lock.
type DB struct {
	db        *sql.DB
	path      string
	artifacts Artifacts
	now       func() time.Time
	logger    *slog.Logger
}

var _ Store = (*DB)(nil)

// NewDB opens the database at cfg.Path. Call Initialize before use.
func NewDB(cfg Config) (*DB, error) {
	if cfg.Artifacts == nil {
		return nil, errors.New("store: artifacts not configured")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrStorageUnavailable)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create database dir: %w", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, cfg.Path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, cfg.Path, err)
	}

	return &DB{
		db:        db,
		path:      cfg.Path,
		artifacts: cfg.Artifacts,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}, nil
}

func dsn(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// Initialize creates the cache table and stamps the schema version.
// A database written by a newer schema is refused.
func (d *DB) Initialize(ctx context.Context) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var version int
		if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return errors.Wrap(err, "failed to read schema version")
		}
		if version > SchemaVersion {
			return errors.Errorf("schema version %d is newer than supported version %d", version, SchemaVersion)
		}
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return errors.Wrap(err, "failed to create schema")
		}
		if version < SchemaVersion {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
				return errors.Wrap(err, "failed to record schema version")
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: initialize %s: %w", ErrStorageUnavailable, d.path, err)
	}
	return nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}
