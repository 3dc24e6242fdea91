package bloghub

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/seed.yaml
var defaultFixtures []byte

// FixtureFormat is the encoding of a fixture file.
type FixtureFormat string

const (
	FixtureYAML FixtureFormat = "yaml"
	FixtureTOML FixtureFormat = "toml"
)

// maxSeedViews bounds the random view count given to fixture posts without one.
const maxSeedViews = 500

// PostFixture describes a post by the names of the entities it references.
type PostFixture struct {
	Title       string   `yaml:"title" toml:"title"`
	Author      string   `yaml:"author" toml:"author"`     // Author is a username
	Category    string   `yaml:"category" toml:"category"` // Category is a category name, empty for none
	Excerpt     string   `yaml:"excerpt" toml:"excerpt"`
	Published   bool     `yaml:"published" toml:"published"`
	ReadingTime int      `yaml:"reading_time" toml:"reading_time"`
	Featured    bool     `yaml:"featured" toml:"featured"`
	Tags        []string `yaml:"tags" toml:"tags"` // Tags that do not exist are ignored
	Views       *int     `yaml:"views,omitempty" toml:"views,omitempty"`
}

// Fixtures is a complete data set to load into an empty store.
type Fixtures struct {
	Users      []Author      `yaml:"users" toml:"users"`
	Categories []string      `yaml:"categories" toml:"categories"`
	Tags       []string      `yaml:"tags" toml:"tags"`
	Posts      []PostFixture `yaml:"posts" toml:"posts"`
}

// DefaultFixtures returns the bundled demo data set.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(defaultFixtures, FixtureYAML)
}

// ParseFixtures decodes fixtures in the given format.
func ParseFixtures(data []byte, format FixtureFormat) (*Fixtures, error) {
	var fixtures Fixtures

	switch format {
	case FixtureYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&fixtures); err != nil {
			return nil, fmt.Errorf("failed to decode YAML fixtures: %w", err)
		}
	case FixtureTOML:
		if _, err := toml.Decode(string(data), &fixtures); err != nil {
			return nil, fmt.Errorf("failed to decode TOML fixtures: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixture format: %s", format)
	}

	return &fixtures, nil
}

// LoadFixturesFile reads fixtures from a .yaml, .yml or .toml file.
func LoadFixturesFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseFixtures(data, FixtureYAML)
	case ".toml":
		return ParseFixtures(data, FixtureTOML)
	default:
		return nil, fmt.Errorf("unsupported fixture file extension: %s", filepath.Ext(path))
	}
}

// Seed clears the store and loads the fixtures into it. It returns the number of
// records created per kind (users, categories, tags, posts).
func Seed(ctx context.Context, store Store, fixtures *Fixtures) (map[string]int, error) {
	counts := make(map[string]int)

	if err := store.Clear(ctx); err != nil {
		return counts, fmt.Errorf("failed to clear store: %w", err)
	}

	authors := make(map[string]uint64, len(fixtures.Users))
	for _, user := range fixtures.Users {
		author, err := store.CreateAuthor(ctx, user)
		if err != nil {
			return counts, fmt.Errorf("failed to create user %s: %w", user.Username, err)
		}
		authors[author.Username] = author.ID
		counts["users"]++
	}

	categories := make(map[string]uint64, len(fixtures.Categories))
	for _, name := range fixtures.Categories {
		category, err := store.CreateCategory(ctx, name)
		if err != nil {
			return counts, fmt.Errorf("failed to create category %s: %w", name, err)
		}
		categories[category.Name] = category.ID
		counts["categories"]++
	}

	tags := make(map[string]uint64, len(fixtures.Tags))
	for _, name := range fixtures.Tags {
		tag, err := store.CreateTag(ctx, name)
		if err != nil {
			return counts, fmt.Errorf("failed to create tag %s: %w", name, err)
		}
		tags[tag.Name] = tag.ID
		counts["tags"]++
	}

	for _, fixture := range fixtures.Posts {
		meta, err := fixture.meta(authors, categories, tags)
		if err != nil {
			return counts, fmt.Errorf("failed to resolve post %q: %w", fixture.Title, err)
		}

		post, err := store.Create(ctx, meta)
		if err != nil {
			return counts, fmt.Errorf("failed to create post %q: %w", fixture.Title, err)
		}

		views := rand.IntN(maxSeedViews + 1)
		if fixture.Views != nil {
			views = *fixture.Views
		}
		if err := store.SetViews(ctx, post.ID, views); err != nil {
			return counts, fmt.Errorf("failed to set views of post %q: %w", fixture.Title, err)
		}

		counts["posts"]++
	}

	return counts, nil
}

func (pf PostFixture) meta(authors, categories, tags map[string]uint64) (PostMeta, error) {
	authorID, ok := authors[pf.Author]
	if !ok {
		return PostMeta{}, fmt.Errorf("%w: %s", ErrAuthorNotFound, pf.Author)
	}

	meta := PostMeta{
		Title:       pf.Title,
		AuthorID:    authorID,
		Excerpt:     pf.Excerpt,
		Published:   pf.Published,
		ReadingTime: pf.ReadingTime,
		Featured:    pf.Featured,
	}

	if pf.Category != "" {
		categoryID, ok := categories[pf.Category]
		if !ok {
			return PostMeta{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, pf.Category)
		}
		meta.CategoryID = categoryID
	}

	for _, name := range pf.Tags {
		if id, ok := tags[name]; ok {
			meta.TagIDs = append(meta.TagIDs, id)
		}
	}

	return meta, nil
}
