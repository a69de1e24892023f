package flashcache

import (
	"log/slog"
	"time"
)

// DefaultLimit is the number of entries kept when WithLimit is not given.
const DefaultLimit = 10

// OpenOptions configures a cache.
type OpenOptions struct {
	Limit int

	ArtifactDir       string
	Compress          bool
	CompressionLevel  int
	ArtifactCacheSize int

	Logger *slog.Logger
	Now    func() time.Time
}

// OpenOption is a functional option for configuring Open.
type OpenOption func(*OpenOptions)

func defaultOptions() *OpenOptions {
	return &OpenOptions{
		Limit:             DefaultLimit,
		CompressionLevel:  2,
		ArtifactCacheSize: 32,
		Logger:            slog.New(slog.DiscardHandler),
		Now:               time.Now,
	}
}

// WithLimit sets the maximum number of entries. Values below 1 are ignored.
func WithLimit(n int) OpenOption {
	return func(o *OpenOptions) {
		if n > 0 {
			o.Limit = n
		}
	}
}

// WithArtifactDir sets where new artifacts are written.
// Defaults to "artifacts" next to the database file.
func WithArtifactDir(dir string) OpenOption {
	return func(o *OpenOptions) { o.ArtifactDir = dir }
}

// WithCompression zstd-compresses new artifacts at level 1 (fastest) to 3 (best).
func WithCompression(level int) OpenOption {
	return func(o *OpenOptions) {
		o.Compress = true
		o.CompressionLevel = level
	}
}

// WithArtifactCache sets how many decoded artifacts stay in memory.
// Zero disables the cache.
func WithArtifactCache(n int) OpenOption {
	return func(o *OpenOptions) {
		if n >= 0 {
			o.ArtifactCacheSize = n
		}
	}
}

// WithLogger sets the logger for eviction and recovery events.
func WithLogger(logger *slog.Logger) OpenOption {
	return func(o *OpenOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithClock overrides the time source for entry timestamps.
func WithClock(now func() time.Time) OpenOption {
	return func(o *OpenOptions) {
		if now != nil {
			o.Now = now
		}
	}
}
