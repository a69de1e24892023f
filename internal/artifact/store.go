// Package artifact stores generation results as files on the local disk.
//
// Storage layout:
//
//	dir/
//	  ab/cd123...-<id>.json      (plain)
//	  ab/cd123...-<id>.json.zst  (zstd)
//
// Files are sharded by the first two hex characters of the cache key, git
// style. Each write gets a fresh id, so a regenerated result never
// overwrites the file an existing cache row still points at.
package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lithammer/shortuuid/v4"

	"github.com/aweris/flashcache/internal/compression"
)

const (
	ext    = ".json"
	zstExt = ".zst"
)

// Config configures a Store.
type Config struct {
	Dir string

	Compress         bool
	CompressionLevel int

	// CacheSize is how many decoded artifacts Read keeps in memory.
	// Zero disables the cache.
	CacheSize int
}

// Store implements store.Artifacts and writes new artifacts.
type Store struct {
	dir        string
	compressor *compression.Compressor
	decoded    *lru.Cache[string, []byte]
}

func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, &Error{Op: "init", Path: cfg.Dir, Err: errors.New("empty artifact dir")}
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, &Error{Op: "init", Path: cfg.Dir, Err: err}
	}

	compressor, err := compression.NewCompressor(cfg.CompressionLevel, cfg.Compress)
	if err != nil {
		return nil, &Error{Op: "init", Path: cfg.Dir, Err: err}
	}

	s := &Store{dir: cfg.Dir, compressor: compressor}
	if cfg.CacheSize > 0 {
		s.decoded, err = lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, &Error{Op: "init", Path: cfg.Dir, Err: err}
		}
	}
	return s, nil
}

// Dir returns the root directory new artifacts are written under.
func (s *Store) Dir() string {
	return s.dir
}

// Write stores data as a new artifact for key and returns its path. The
// file appears atomically: readers see either nothing or the whole file.
func (s *Store) Write(key string, data []byte) (string, error) {
	encoded, compressed := s.compressor.Compress(data)

	name := key + "-" + shortuuid.New() + ext
	if compressed {
		name += zstExt
	}
	path := s.artifactPath(name)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &Error{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", &Error{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return "", &Error{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &Error{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", &Error{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", &Error{Op: "write", Path: path, Err: err}
	}

	if s.decoded != nil {
		s.decoded.Add(path, data)
	}
	return path, nil
}

// Read returns the decoded content of the artifact at path. Any path may be
// read, not only ones under Dir; ".zst" files are decompressed.
func (s *Store) Read(path string) ([]byte, error) {
	if s.decoded != nil {
		if data, ok := s.decoded.Get(path); ok {
			return data, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Err: err}
	}

	if strings.HasSuffix(path, zstExt) {
		data, err = s.compressor.Decompress(data)
		if err != nil {
			return nil, &Error{Op: "read", Path: path, Err: err}
		}
	}

	if s.decoded != nil {
		s.decoded.Add(path, data)
	}
	return data, nil
}

// Size returns the on-disk byte length of the artifact at path.
func (s *Store) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &Error{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return 0, &Error{Op: "stat", Path: path, Err: errors.New("is a directory")}
	}
	return info.Size(), nil
}

// Remove deletes the artifact at path. A missing file is treated as
// already removed.
func (s *Store) Remove(path string) error {
	if s.decoded != nil {
		s.decoded.Remove(path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "remove", Path: path, Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.compressor.Close()
}

// artifactPath shards name under dir: ab/cd123...
func (s *Store) artifactPath(name string) string {
	if len(name) < 2 {
		return filepath.Join(s.dir, name)
	}
	return filepath.Join(s.dir, name[:2], name[2:])
}
