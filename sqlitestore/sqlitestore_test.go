package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/bloghub"
	"github.com/hypergopher/bloghub/sqlitestore"
	"github.com/hypergopher/bloghub/storetest"
)

func setupTestStore(t *testing.T, dbPath string) *sqlitestore.SQLiteStore {
	t.Helper()

	db, err := sqlitestore.Open(dbPath)
	require.NoError(t, err, "Failed to create SQLite db")

	store := sqlitestore.NewSQLiteStore(db)
	require.NoError(t, store.Init(), "Failed to init store")

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) bloghub.Store {
		return setupTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	})
}

func TestSQLiteStore_InitIsIdempotent(t *testing.T) {
	store := setupTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, store.Init())
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlitestore.Open(dbPath)
	require.NoError(t, err)
	store := sqlitestore.NewSQLiteStore(db)
	require.NoError(t, store.Init())

	w := storetest.NewWorld(t, store)
	post, err := store.Create(ctx, bloghub.PostMeta{
		Title:      "Getting Started with Django",
		AuthorID:   w.Sarah.ID,
		CategoryID: w.Technology.ID,
		Excerpt:    "Learn the fundamentals",
		Published:  true,
		TagIDs:     []uint64{w.Django.ID, w.Python.ID},
	})
	require.NoError(t, err)
	require.NoError(t, store.SetViews(ctx, post.ID, 12))
	require.NoError(t, store.Close())

	reopened := setupTestStore(t, dbPath)
	got, err := reopened.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Technology", got.CategoryName())
	assert.Equal(t, []string{"Django", "Python"}, got.TagNames())
	assert.Equal(t, 12, got.Views)
	assert.True(t, post.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteStore_SearchMatchesSubstrings(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	w := storetest.NewWorld(t, store)

	_, err := store.Create(ctx, bloghub.PostMeta{
		Title:    "Getting Started with Django",
		AuthorID: w.Sarah.ID,
		Excerpt:  "Learn the fundamentals",
		TagIDs:   []uint64{w.Python.ID},
	})
	require.NoError(t, err)

	for _, search := range []string{"jang", "DAMENT", "ohns", "ytho"} {
		_, total, err := store.List(ctx, bloghub.AdminFilter{Search: search})
		require.NoError(t, err)
		assert.Equal(t, 1, total, search)
	}

	// A missing category never matches
	_, total, err := store.List(ctx, bloghub.AdminFilter{Search: "technology"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSQLiteStore_IDsAreNotReusedAfterClear(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, filepath.Join(t.TempDir(), "test.db"))

	first := storetest.NewWorld(t, store)
	require.NoError(t, store.Clear(ctx))
	second := storetest.NewWorld(t, store)

	assert.Greater(t, second.Sarah.ID, first.Tom.ID)
}
