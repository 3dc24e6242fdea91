package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hypergopher/bloghub"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	fixturesPath, _ := cmd.Flags().GetString("fixtures")
	markdownDir, _ := cmd.Flags().GetString("markdown")

	fixtures, err := loadSeedFixtures(fixturesPath, markdownDir)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing store", slog.String("error", err.Error()))
		}
	}()

	counts, err := bloghub.Seed(cmd.Context(), store, fixtures)
	if err != nil {
		return err
	}

	logger.Info("store seeded",
		slog.Int("users", counts["users"]),
		slog.Int("categories", counts["categories"]),
		slog.Int("tags", counts["tags"]),
		slog.Int("posts", counts["posts"]))
	fmt.Fprintln(cmd.OutOrStdout(), formatCounts(counts))
	return nil
}

// loadSeedFixtures returns the fixtures to seed: the built-in data set or the file at
// fixturesPath, with the posts replaced by the markdown files in markdownDir when set.
func loadSeedFixtures(fixturesPath, markdownDir string) (*bloghub.Fixtures, error) {
	var (
		fixtures *bloghub.Fixtures
		err      error
	)
	if fixturesPath != "" {
		fixtures, err = bloghub.LoadFixturesFile(fixturesPath)
	} else {
		fixtures, err = bloghub.DefaultFixtures()
	}
	if err != nil {
		return nil, err
	}

	if markdownDir != "" {
		posts, err := bloghub.ReadMarkdownPosts(markdownDir)
		if err != nil {
			return nil, err
		}
		fixtures.Posts = posts
	}

	return fixtures, nil
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, counts[key]))
	}
	return "seeded " + strings.Join(parts, " ")
}
