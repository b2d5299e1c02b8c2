package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SetAndGet(t *testing.T) {
	st := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "hash123", []byte(`[["GEO_ID"]]`), time.Hour))

	data, err := st.Get(ctx, "hash123")
	require.NoError(t, err)
	assert.Equal(t, `[["GEO_ID"]]`, string(data))
}

func TestSQLite_Missing(t *testing.T) {
	st := newTestSQLiteCache(t)

	data, err := st.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_Expired(t *testing.T) {
	st := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "expired", []byte("old"), -time.Hour))

	data, err := st.Get(ctx, "expired")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_SetReplaces(t *testing.T) {
	st := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v1"), time.Hour))
	require.NoError(t, st.Set(ctx, "k", []byte("v2"), time.Hour))

	data, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_Prune(t *testing.T) {
	st := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "live", []byte("a"), time.Hour))
	require.NoError(t, st.Set(ctx, "dead1", []byte("b"), -time.Minute))
	require.NoError(t, st.Set(ctx, "dead2", []byte("c"), -time.Hour))

	n, err := st.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	live, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, live)
}

func TestSQLite_ExpiresWithClock(t *testing.T) {
	st := newTestSQLiteCache(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	require.NoError(t, st.Set(ctx, "k", []byte("v"), time.Hour))

	st.now = func() time.Time { return base.Add(59 * time.Minute) }
	data, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, data)

	st.now = func() time.Time { return base.Add(2 * time.Hour) }
	data, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}
