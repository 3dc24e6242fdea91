package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore(t *testing.T) {
	cases := []struct {
		name string
		cfg  StoreConfig
	}{
		{"Memory", StoreConfig{Driver: "memory"}},
		{"BBolt", StoreConfig{Driver: "bbolt", Path: filepath.Join(t.TempDir(), "data")}},
		{"SQLite", StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "bloghub.db")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := openStore(tc.cfg, discardLogger())
			require.NoError(t, err)
			defer store.Close()

			authors, err := store.ListAuthors(t.Context())
			require.NoError(t, err)
			assert.Empty(t, authors)
		})
	}

	_, err := openStore(StoreConfig{Driver: "postgres"}, discardLogger())
	assert.Error(t, err)
}

func TestLoadSeedFixtures(t *testing.T) {
	fixtures, err := loadSeedFixtures("", "")
	require.NoError(t, err)
	assert.Len(t, fixtures.Posts, 9)

	fixtures, err = loadSeedFixtures("../../testdata/fixtures.toml", "")
	require.NoError(t, err)
	assert.Len(t, fixtures.Users, 1)
	assert.Len(t, fixtures.Posts, 2)

	fixtures, err = loadSeedFixtures("", "../../testdata/posts")
	require.NoError(t, err)
	assert.Len(t, fixtures.Users, 9, "users come from the built-in data set")
	require.Len(t, fixtures.Posts, 2)
	assert.Equal(t, "Getting Started with Go", fixtures.Posts[0].Title)

	_, err = loadSeedFixtures("../../testdata/missing.toml", "")
	assert.Error(t, err)
	_, err = loadSeedFixtures("", "../../testdata/missing")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("BLOGHUB_STORE_DRIVER", "bbolt")
	t.Setenv("BLOGHUB_STORE_PATH", dataDir)
	t.Setenv("BLOGHUB_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"seed"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "seeded categories=7 posts=9 tags=16 users=9\n", out.String())

	store, err := openStore(StoreConfig{Driver: "bbolt", Path: dataDir}, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	published, err := store.ListPublished(t.Context())
	require.NoError(t, err)
	assert.Len(t, published, 7)
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "seeded a=1 b=2", formatCounts(map[string]int{"b": 2, "a": 1}))
	assert.Equal(t, "seeded ", formatCounts(map[string]int{}))
}
