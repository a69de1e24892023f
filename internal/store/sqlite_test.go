package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/flashcache/internal/artifact"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyArtifacts fails Remove for selected paths.
type flakyArtifacts struct {
	*artifact.Store

	mu   sync.Mutex
	fail map[string]bool
}

func (f *flakyArtifacts) failRemove(path string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = fail
}

func (f *flakyArtifacts) Remove(path string) error {
	f.mu.Lock()
	fail := f.fail[path]
	f.mu.Unlock()
	if fail {
		return &artifact.Error{Op: "remove", Path: path, Err: os.ErrPermission}
	}
	return f.Store.Remove(path)
}

type fixture struct {
	db        *DB
	clock     *testClock
	artifacts *flakyArtifacts
	dir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	as, err := artifact.New(artifact.Config{Dir: filepath.Join(dir, "artifacts")})
	require.NoError(t, err)
	flaky := &flakyArtifacts{Store: as, fail: make(map[string]bool)}

	clock := newTestClock()
	db, err := NewDB(Config{
		Path:      filepath.Join(dir, "cache.db"),
		Artifacts: flaky,
		Now:       clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Initialize(context.Background()))
	return &fixture{db: db, clock: clock, artifacts: flaky, dir: dir}
}

func (f *fixture) artifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestInitializeIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Initialize(ctx))
	require.NoError(t, f.db.Initialize(ctx))

	var version int
	require.NoError(t, f.db.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	n, err := f.db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInitializeKeepsRowsAcrossReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.artifact(t, "a.json", "alpha")
	require.NoError(t, f.db.Put(ctx, "a", path))
	require.NoError(t, f.db.Close())

	reopened, err := NewDB(Config{Path: f.db.Path(), Artifacts: f.artifacts, Now: f.clock.Now})
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Initialize(ctx))

	loc, ok, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, path, loc)
}

func TestInitializeRejectsNewerSchema(t *testing.T) {
	f := newFixture(t)
	_, err := f.db.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)

	err = f.db.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestNewDBUnavailable(t *testing.T) {
	dir := t.TempDir()
	as, err := artifact.New(artifact.Config{Dir: dir})
	require.NoError(t, err)

	// The parent of the database path is a regular file.
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err = NewDB(Config{Path: filepath.Join(blocker, "cache.db"), Artifacts: as})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = NewDB(Config{Path: "", Artifacts: as})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loc, ok, err := f.db.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, loc)

	size, ok, err := f.db.GetSize(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, size)
}

func TestPutGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.artifact(t, "test_path", "test")

	require.NoError(t, f.db.Put(ctx, "test_hash", path))

	loc, ok, err := f.db.Get(ctx, "test_hash")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, loc)

	size, ok, err := f.db.GetSize(ctx, "test_hash")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(4), size)

	e, ok, err := f.db.Stat(ctx, "test_hash")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.clock.Now().Unix(), e.UpdatedAt.Unix())
	assert.False(t, e.Evicting)
}

func TestPutDuplicateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.artifact(t, "a.json", "alpha")

	require.NoError(t, f.db.Put(ctx, "a", path))
	err := f.db.Put(ctx, "a", path)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	n, err := f.db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPutMissingArtifact(t *testing.T) {
	f := newFixture(t)
	err := f.db.Put(context.Background(), "a", filepath.Join(f.dir, "missing.json"))

	assert.ErrorIs(t, err, artifact.ErrIO)
	var aerr *artifact.Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "stat", aerr.Op)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.artifact(t, "first.json", "one")
	second := f.artifact(t, "second.json", "second one")

	require.NoError(t, f.db.Put(ctx, "k", first))
	before, _, err := f.db.Stat(ctx, "k")
	require.NoError(t, err)

	// Same clock second: the timestamp must still move forward.
	require.NoError(t, f.db.Update(ctx, "k", second))

	after, ok, err := f.db.Stat(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, after.Location)
	assert.Equal(t, int64(len("second one")), after.Size)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	n, err := f.db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateMissing(t *testing.T) {
	f := newFixture(t)
	path := f.artifact(t, "a.json", "alpha")

	err := f.db.Update(context.Background(), "missing", path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, key := range []string{"c", "a", "b"} {
		require.NoError(t, f.db.Put(ctx, key, f.artifact(t, key+".json", key)))
		f.clock.Advance(time.Second)
	}
	require.NoError(t, f.db.Update(ctx, "c", f.artifact(t, "c2.json", "c2")))

	list, err := f.db.List(ctx)
	require.NoError(t, err)
	keys := make([]string, 0, len(list))
	for _, e := range list {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestDeleteOldestEmptyStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.db.DeleteOldest(context.Background())
	assert.ErrorIs(t, err, ErrEmptyStore)
}

func TestDeleteOldest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paths := map[string]string{}
	for _, key := range []string{"a", "b", "c"} {
		paths[key] = f.artifact(t, key+".json", key)
		require.NoError(t, f.db.Put(ctx, key, paths[key]))
		f.clock.Advance(time.Second)
	}

	victim, err := f.db.DeleteOldest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", victim.Key)

	_, ok, err := f.db.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, paths["a"])
	assert.FileExists(t, paths["b"])

	n, err := f.db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteOldestSameSecondKeepsWriteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// "z" sorts last but was written first.
	for _, key := range []string{"z", "m", "a"} {
		require.NoError(t, f.db.Put(ctx, key, f.artifact(t, key+".json", key)))
	}

	victim, err := f.db.DeleteOldest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "z", victim.Key)
}

func TestDeleteOldestArtifactFailureLeavesTombstone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.artifact(t, "a.json", "alpha")
	require.NoError(t, f.db.Put(ctx, "a", path))
	f.artifacts.failRemove(path, true)

	_, err := f.db.DeleteOldest(ctx)
	require.ErrorIs(t, err, artifact.ErrIO)

	// Still counted, file still present, lookups surface the state.
	n, err := f.db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, path)

	_, _, err = f.db.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrEvictionPending)
	err = f.db.Update(ctx, "a", path)
	assert.ErrorIs(t, err, ErrEvictionPending)
	err = f.db.Put(ctx, "a", path)
	assert.ErrorIs(t, err, ErrEvictionPending)

	pending, err := f.db.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].Key)

	f.artifacts.failRemove(path, false)
	require.NoError(t, f.db.CompleteEviction(ctx, pending[0]))

	n, err = f.db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, path)
}

func TestCompleteEvictionArtifactAlreadyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.artifact(t, "a.json", "alpha")
	require.NoError(t, f.db.Put(ctx, "a", path))
	f.artifacts.failRemove(path, true)
	_, err := f.db.DeleteOldest(ctx)
	require.Error(t, err)

	// Simulates a crash after the file was deleted but before the row was.
	require.NoError(t, os.Remove(path))
	f.artifacts.failRemove(path, false)

	require.NoError(t, f.db.CompleteEviction(ctx, Entry{Key: "a"}))
	_, ok, err := f.db.Stat(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteEvictionRefusesLiveRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.artifact(t, "a.json", "alpha")
	require.NoError(t, f.db.Put(ctx, "a", path))

	err := f.db.CompleteEviction(ctx, Entry{Key: "a", Location: path})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.FileExists(t, path)
}
