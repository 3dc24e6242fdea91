package bloghub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/bloghub"
)

func TestPostMeta_Validate(t *testing.T) {
	cases := []struct {
		name    string
		meta    bloghub.PostMeta
		wantErr bool
	}{
		{"Valid", bloghub.PostMeta{Title: "Hello", AuthorID: 1, Excerpt: "x"}, false},
		{"Blank title", bloghub.PostMeta{Title: "   ", AuthorID: 1, Excerpt: "x"}, true},
		{"Title too long", bloghub.PostMeta{Title: string(make([]byte, 256)), AuthorID: 1, Excerpt: "x"}, true},
		{"No author", bloghub.PostMeta{Title: "Hello", Excerpt: "x"}, true},
		{"No excerpt", bloghub.PostMeta{Title: "Hello", AuthorID: 1}, true},
		{"Negative reading time", bloghub.PostMeta{Title: "Hello", AuthorID: 1, Excerpt: "x", ReadingTime: -1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.meta.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, bloghub.ErrInvalidPostMeta)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostMeta_ValidateNormalizes(t *testing.T) {
	meta := bloghub.PostMeta{Title: "  Hello  ", AuthorID: 1, Excerpt: "x", TagIDs: []uint64{3, 1, 3, 2}}
	require.NoError(t, meta.Validate())
	assert.Equal(t, "Hello", meta.Title)
	assert.Equal(t, []uint64{1, 2, 3}, meta.TagIDs)
}

func TestPost_Accessors(t *testing.T) {
	created := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	post := &bloghub.Post{
		ID:        7,
		Title:     "Django Basics",
		Author:    bloghub.Author{ID: 2, Username: "sarah", FirstName: "Sarah", LastName: "Johnson"},
		Category:  &bloghub.Category{ID: 3, Name: "Technology"},
		Excerpt:   "Models",
		CreatedAt: created,
		Tags:      []bloghub.Tag{{ID: 5, Name: "Python"}, {ID: 4, Name: "Django"}},
	}

	assert.True(t, post.HasCategory())
	assert.Equal(t, "Technology", post.CategoryName())
	assert.True(t, post.HasTags())
	assert.True(t, post.HasTag(4))
	assert.False(t, post.HasTag(9))
	assert.Equal(t, []string{"Django", "Python"}, post.TagNames())
	assert.Equal(t, "Draft", post.StatusLabel())
	assert.Equal(t, "Mar 7, 2025", post.CreatedDate())
	assert.Equal(t, "Django Basics Published by sarah", post.String())
	assert.Equal(t, "Sarah Johnson", post.Author.FullName())

	meta := post.Meta()
	assert.Equal(t, uint64(2), meta.AuthorID)
	assert.Equal(t, uint64(3), meta.CategoryID)
	assert.ElementsMatch(t, []uint64{4, 5}, meta.TagIDs)

	post.Published = true
	post.Category = nil
	assert.Equal(t, "Published", post.StatusLabel())
	assert.Equal(t, "", post.CategoryName())
	assert.Zero(t, post.Meta().CategoryID)
}

func TestPost_Clone(t *testing.T) {
	post := &bloghub.Post{
		Title:    "Original",
		Category: &bloghub.Category{ID: 1, Name: "Technology"},
		Tags:     []bloghub.Tag{{ID: 1, Name: "Go"}},
	}

	clone := post.Clone()
	clone.Title = "Changed"
	clone.Category.Name = "Changed"
	clone.Tags[0].Name = "Changed"

	assert.Equal(t, "Original", post.Title)
	assert.Equal(t, "Technology", post.Category.Name)
	assert.Equal(t, "Go", post.Tags[0].Name)
}

func TestPostRecord(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	record := bloghub.NewPostRecord(1, bloghub.PostMeta{Title: "Hello World", AuthorID: 2, Excerpt: "x", TagIDs: []uint64{3, 4}}, created)

	assert.Equal(t, "hello-world", record.Slug)
	assert.True(t, record.HasTag(3))
	assert.True(t, record.RemoveTag(3))
	assert.False(t, record.RemoveTag(3))
	assert.Equal(t, []uint64{4}, record.TagIDs)

	post := record.Hydrate(bloghub.Author{ID: 2, Username: "sarah"}, nil, nil)
	assert.Equal(t, created, post.CreatedAt)
	assert.Nil(t, post.Category)
	assert.NotNil(t, post.Tags)
	assert.Equal(t, "sarah", post.Author.Username)
}

func TestTaxonomyNames(t *testing.T) {
	name, err := bloghub.CheckCategoryName("  Technology ")
	require.NoError(t, err)
	assert.Equal(t, "Technology", name)

	_, err = bloghub.CheckCategoryName("")
	assert.ErrorIs(t, err, bloghub.ErrInvalidName)

	_, err = bloghub.CheckTagName(string(make([]rune, 51)))
	assert.ErrorIs(t, err, bloghub.ErrInvalidName)
}
