// Package storetest holds the behaviour tests every bloghub.Store implementation must pass.
package storetest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/bloghub"
)

// Factory returns a new, initialized and empty store. It is responsible for closing it.
type Factory func(t *testing.T) bloghub.Store

// World is a small data set shared by the store tests.
type World struct {
	Sarah, Tom             *bloghub.Author
	Technology, Lifestyle  *bloghub.Category
	Python, Django, Health *bloghub.Tag
}

// NewWorld creates two authors, two categories and three tags.
func NewWorld(t *testing.T, store bloghub.Store) World {
	t.Helper()
	ctx := context.Background()

	var w World
	var err error

	w.Sarah, err = store.CreateAuthor(ctx, bloghub.Author{Username: "sarah", FirstName: "Sarah", LastName: "Johnson", Email: "sarah@example.com"})
	require.NoError(t, err)
	w.Tom, err = store.CreateAuthor(ctx, bloghub.Author{Username: "tom", FirstName: "Tom", LastName: "Lee"})
	require.NoError(t, err)

	w.Technology, err = store.CreateCategory(ctx, "Technology")
	require.NoError(t, err)
	w.Lifestyle, err = store.CreateCategory(ctx, "Lifestyle")
	require.NoError(t, err)

	w.Python, err = store.CreateTag(ctx, "Python")
	require.NoError(t, err)
	w.Django, err = store.CreateTag(ctx, "Django")
	require.NoError(t, err)
	w.Health, err = store.CreateTag(ctx, "Health")
	require.NoError(t, err)

	return w
}

// Run runs the store behaviour tests against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store bloghub.Store)
	}{
		{"Authors", testAuthors},
		{"Taxonomies", testTaxonomies},
		{"CreateAndGet", testCreateAndGet},
		{"CreateErrors", testCreateErrors},
		{"Update", testUpdate},
		{"Delete", testDelete},
		{"ListPublished", testListPublished},
		{"Views", testViews},
		{"List", testList},
		{"DeleteCategoryDetachesPosts", testDeleteCategory},
		{"DeleteTagRemovesFromPosts", testDeleteTag},
		{"Clear", testClear},
		{"ReturnsCopies", testReturnsCopies},
		{"SeedDefaultFixtures", testSeed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func testAuthors(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	assert.NotZero(t, w.Sarah.ID)
	assert.NotEqual(t, w.Sarah.ID, w.Tom.ID)

	_, err := store.CreateAuthor(ctx, bloghub.Author{Username: "sarah", FirstName: "Other"})
	assert.ErrorIs(t, err, bloghub.ErrAuthorExists)

	_, err = store.CreateAuthor(ctx, bloghub.Author{Username: ""})
	assert.ErrorIs(t, err, bloghub.ErrInvalidName)

	author, err := store.GetAuthor(ctx, w.Sarah.ID)
	require.NoError(t, err)
	assert.Equal(t, *w.Sarah, *author)

	_, err = store.GetAuthor(ctx, 999999)
	assert.ErrorIs(t, err, bloghub.ErrAuthorNotFound)

	_, err = store.CreateAuthor(ctx, bloghub.Author{Username: "alex", FirstName: "Alex", LastName: "Kim"})
	require.NoError(t, err)

	authors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	usernames := make([]string, 0, len(authors))
	for _, a := range authors {
		usernames = append(usernames, a.Username)
	}
	assert.Equal(t, []string{"alex", "sarah", "tom"}, usernames)
}

func testTaxonomies(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	_, err := store.CreateCategory(ctx, "Technology")
	assert.ErrorIs(t, err, bloghub.ErrCategoryExists)
	_, err = store.CreateCategory(ctx, "  ")
	assert.ErrorIs(t, err, bloghub.ErrInvalidName)

	_, err = store.CreateTag(ctx, "Python")
	assert.ErrorIs(t, err, bloghub.ErrTagExists)
	_, err = store.CreateTag(ctx, "this tag name is far too long to be accepted by the store")
	assert.ErrorIs(t, err, bloghub.ErrInvalidName)

	_, err = store.Create(ctx, bloghub.PostMeta{
		Title:      "Django Basics",
		AuthorID:   w.Sarah.ID,
		CategoryID: w.Technology.ID,
		Excerpt:    "Models and views",
		Published:  true,
		TagIDs:     []uint64{w.Python.ID, w.Django.ID},
	})
	require.NoError(t, err)

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bloghub.TaxonomyCount{
		{ID: w.Lifestyle.ID, Name: "Lifestyle", PostCount: 0},
		{ID: w.Technology.ID, Name: "Technology", PostCount: 1},
	}, categories)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bloghub.TaxonomyCount{
		{ID: w.Django.ID, Name: "Django", PostCount: 1},
		{ID: w.Health.ID, Name: "Health", PostCount: 0},
		{ID: w.Python.ID, Name: "Python", PostCount: 1},
	}, tags)

	assert.ErrorIs(t, store.DeleteCategory(ctx, 999999), bloghub.ErrCategoryNotFound)
	assert.ErrorIs(t, store.DeleteTag(ctx, 999999), bloghub.ErrTagNotFound)
}

func testCreateAndGet(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	created, err := store.Create(ctx, bloghub.PostMeta{
		Title:       "  Django Basics  ",
		AuthorID:    w.Sarah.ID,
		CategoryID:  w.Technology.ID,
		Excerpt:     "Models and views",
		Published:   true,
		TagIDs:      []uint64{w.Python.ID, w.Django.ID, w.Python.ID},
		ReadingTime: 5,
		Featured:    true,
	})
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "Django Basics", created.Title)
	assert.Equal(t, "django-basics", created.Slug)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, *w.Sarah, created.Author)
	require.NotNil(t, created.Category)
	assert.Equal(t, *w.Technology, *created.Category)
	assert.Equal(t, []bloghub.Tag{*w.Django, *w.Python}, created.Tags)
	assert.Equal(t, 0, created.Views)
	assert.Equal(t, 5, created.ReadingTime)
	assert.True(t, created.Featured)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Tags, got.Tags)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	uncategorized, err := store.Create(ctx, bloghub.PostMeta{
		Title:    "Loose Thoughts",
		AuthorID: w.Tom.ID,
		Excerpt:  "Nothing in particular",
	})
	require.NoError(t, err)
	assert.Nil(t, uncategorized.Category)
	assert.NotNil(t, uncategorized.Tags)
	assert.Empty(t, uncategorized.Tags)

	_, err = store.Get(ctx, 999999)
	assert.ErrorIs(t, err, bloghub.ErrPostNotFound)
}

func testCreateErrors(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	_, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, Excerpt: "x"})
	require.NoError(t, err)

	cases := []struct {
		name     string
		meta     bloghub.PostMeta
		expected error
	}{
		{"Duplicate title", bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Tom.ID, Excerpt: "y"}, bloghub.ErrPostExists},
		{"Missing title", bloghub.PostMeta{AuthorID: w.Tom.ID, Excerpt: "y"}, bloghub.ErrInvalidPostMeta},
		{"Missing excerpt", bloghub.PostMeta{Title: "New", AuthorID: w.Tom.ID}, bloghub.ErrInvalidPostMeta},
		{"Missing author", bloghub.PostMeta{Title: "New", Excerpt: "y"}, bloghub.ErrInvalidPostMeta},
		{"Unknown author", bloghub.PostMeta{Title: "New", AuthorID: 999999, Excerpt: "y"}, bloghub.ErrAuthorNotFound},
		{"Unknown category", bloghub.PostMeta{Title: "New", AuthorID: w.Tom.ID, CategoryID: 999999, Excerpt: "y"}, bloghub.ErrCategoryNotFound},
		{"Unknown tag", bloghub.PostMeta{Title: "New", AuthorID: w.Tom.ID, TagIDs: []uint64{999999}, Excerpt: "y"}, bloghub.ErrTagNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(ctx, tc.meta)
			assert.ErrorIs(t, err, tc.expected)
		})
	}

	posts, total, err := store.List(ctx, bloghub.AdminFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, posts, 1)
}

func testUpdate(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	original, err := store.Create(ctx, bloghub.PostMeta{
		Title:      "Django Basics",
		AuthorID:   w.Sarah.ID,
		CategoryID: w.Technology.ID,
		Excerpt:    "Models and views",
		TagIDs:     []uint64{w.Python.ID},
	})
	require.NoError(t, err)
	other, err := store.Create(ctx, bloghub.PostMeta{Title: "Cooking 101", AuthorID: w.Tom.ID, Excerpt: "Pasta"})
	require.NoError(t, err)

	require.NoError(t, store.SetViews(ctx, original.ID, 42))

	updated, err := store.Update(ctx, original.ID, bloghub.PostMeta{
		Title:      "Django in Depth",
		AuthorID:   w.Tom.ID,
		CategoryID: w.Lifestyle.ID,
		Excerpt:    "Querysets",
		Published:  true,
		TagIDs:     []uint64{w.Django.ID, w.Health.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "Django in Depth", updated.Title)
	assert.Equal(t, "django-in-depth", updated.Slug)
	assert.Equal(t, *w.Tom, updated.Author)
	assert.Equal(t, *w.Lifestyle, *updated.Category)
	assert.Equal(t, []bloghub.Tag{*w.Django, *w.Health}, updated.Tags)
	assert.True(t, updated.Published)
	assert.Equal(t, 42, updated.Views)
	assert.True(t, original.CreatedAt.Equal(updated.CreatedAt))

	// Keeping its own title is allowed
	_, err = store.Update(ctx, original.ID, updated.Meta())
	assert.NoError(t, err)

	meta := updated.Meta()
	meta.Title = other.Title
	_, err = store.Update(ctx, original.ID, meta)
	assert.ErrorIs(t, err, bloghub.ErrPostExists)

	_, err = store.Update(ctx, 999999, updated.Meta())
	assert.ErrorIs(t, err, bloghub.ErrPostNotFound)

	meta = updated.Meta()
	meta.CategoryID = 0
	meta.TagIDs = nil
	cleared, err := store.Update(ctx, original.ID, meta)
	require.NoError(t, err)
	assert.Nil(t, cleared.Category)
	assert.Empty(t, cleared.Tags)
}

func testDelete(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	post, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, Excerpt: "x", TagIDs: []uint64{w.Python.ID}})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, post.ID))

	_, err = store.Get(ctx, post.ID)
	assert.ErrorIs(t, err, bloghub.ErrPostNotFound)
	assert.ErrorIs(t, store.Delete(ctx, post.ID), bloghub.ErrPostNotFound)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	for _, tag := range tags {
		assert.Zero(t, tag.PostCount, tag.Name)
	}

	// The title is free again
	_, err = store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, Excerpt: "x"})
	assert.NoError(t, err)
}

func testListPublished(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	for _, meta := range []bloghub.PostMeta{
		{Title: "First", AuthorID: w.Sarah.ID, Excerpt: "x", Published: true},
		{Title: "Draft", AuthorID: w.Sarah.ID, Excerpt: "x"},
		{Title: "Second", AuthorID: w.Tom.ID, Excerpt: "x", Published: true},
		{Title: "Third", AuthorID: w.Tom.ID, Excerpt: "x", Published: true, CategoryID: w.Technology.ID},
	} {
		_, err := store.Create(ctx, meta)
		require.NoError(t, err)
	}

	posts, err := store.ListPublished(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Third", "Second", "First"}, titlesOf(posts))

	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt))
	}
}

func testViews(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	post, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, Excerpt: "x"})
	require.NoError(t, err)

	views, err := store.IncrementViews(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	views, err = store.IncrementViews(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, views)

	require.NoError(t, store.SetViews(ctx, post.ID, 250))
	views, err = store.IncrementViews(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 251, views)

	got, err := store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 251, got.Views)

	_, err = store.IncrementViews(ctx, 999999)
	assert.ErrorIs(t, err, bloghub.ErrPostNotFound)
	assert.ErrorIs(t, store.SetViews(ctx, 999999, 1), bloghub.ErrPostNotFound)
}

func testList(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	for _, meta := range []bloghub.PostMeta{
		{Title: "Getting Started with Django", AuthorID: w.Sarah.ID, CategoryID: w.Technology.ID, Excerpt: "Learn the fundamentals", Published: true, Featured: true, TagIDs: []uint64{w.Django.ID, w.Python.ID}},
		{Title: "Cooking 101", AuthorID: w.Tom.ID, CategoryID: w.Lifestyle.ID, Excerpt: "Pasta for beginners", Published: true},
		{Title: "Eating Well", AuthorID: w.Tom.ID, CategoryID: w.Lifestyle.ID, Excerpt: "Vegetables", TagIDs: []uint64{w.Health.ID}},
		{Title: "Machine Learning", AuthorID: w.Sarah.ID, CategoryID: w.Technology.ID, Excerpt: "Models", TagIDs: []uint64{w.Python.ID}},
	} {
		_, err := store.Create(ctx, meta)
		require.NoError(t, err)
	}

	yes, no := true, false

	cases := []struct {
		name     string
		filter   bloghub.AdminFilter
		expected []string
	}{
		{"All", bloghub.AdminFilter{}, []string{"Machine Learning", "Eating Well", "Cooking 101", "Getting Started with Django"}},
		{"Published", bloghub.AdminFilter{Published: &yes}, []string{"Cooking 101", "Getting Started with Django"}},
		{"Drafts", bloghub.AdminFilter{Published: &no}, []string{"Machine Learning", "Eating Well"}},
		{"Featured", bloghub.AdminFilter{Featured: &yes}, []string{"Getting Started with Django"}},
		{"Category", bloghub.AdminFilter{CategoryID: w.Lifestyle.ID}, []string{"Eating Well", "Cooking 101"}},
		{"Author", bloghub.AdminFilter{AuthorID: w.Sarah.ID}, []string{"Machine Learning", "Getting Started with Django"}},
		{"Tag", bloghub.AdminFilter{TagID: w.Python.ID}, []string{"Machine Learning", "Getting Started with Django"}},
		{"Combined", bloghub.AdminFilter{TagID: w.Python.ID, Published: &no}, []string{"Machine Learning"}},
		{"Search title", bloghub.AdminFilter{Search: "django"}, []string{"Getting Started with Django"}},
		{"Search author", bloghub.AdminFilter{Search: "Tom"}, []string{"Eating Well", "Cooking 101"}},
		{"Search tag", bloghub.AdminFilter{Search: "health"}, []string{"Eating Well"}},
		{"Search category", bloghub.AdminFilter{Search: "technology", Published: &yes}, []string{"Getting Started with Django"}},
		{"Search no match", bloghub.AdminFilter{Search: "kubernetes"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posts, total, err := store.List(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, titlesOf(posts))
			assert.Equal(t, len(tc.expected), total)
		})
	}

	t.Run("Paging", func(t *testing.T) {
		posts, total, err := store.List(ctx, bloghub.AdminFilter{PageNum: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"Getting Started with Django"}, titlesOf(posts))

		posts, total, err = store.List(ctx, bloghub.AdminFilter{PageNum: 5, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, posts)

		posts, total, err = store.List(ctx, bloghub.AdminFilter{PageNum: math.MaxInt, PageSize: 100})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, posts)
	})
}

func testDeleteCategory(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	post, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, CategoryID: w.Technology.ID, Excerpt: "x", Published: true})
	require.NoError(t, err)

	require.NoError(t, store.DeleteCategory(ctx, w.Technology.ID))

	got, err := store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Category)

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bloghub.TaxonomyCount{{ID: w.Lifestyle.ID, Name: "Lifestyle"}}, categories)

	// Name can be reused
	_, err = store.CreateCategory(ctx, "Technology")
	assert.NoError(t, err)
}

func testDeleteTag(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	post, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, Excerpt: "x", TagIDs: []uint64{w.Python.ID, w.Django.ID}})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTag(ctx, w.Python.ID))

	got, err := store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []bloghub.Tag{*w.Django}, got.Tags)

	posts, total, err := store.List(ctx, bloghub.AdminFilter{TagID: w.Django.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"Django Basics"}, titlesOf(posts))
}

func testClear(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	_, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, Excerpt: "x", Published: true})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))

	posts, err := store.ListPublished(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	authors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Empty(t, authors)

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	// The store is usable after clearing
	NewWorld(t, store)
}

func testReturnsCopies(t *testing.T, store bloghub.Store) {
	ctx := context.Background()
	w := NewWorld(t, store)

	post, err := store.Create(ctx, bloghub.PostMeta{Title: "Django Basics", AuthorID: w.Sarah.ID, CategoryID: w.Technology.ID, Excerpt: "x", TagIDs: []uint64{w.Python.ID}})
	require.NoError(t, err)

	post.Title = "Changed"
	post.Category.Name = "Changed"
	post.Tags[0].Name = "Changed"

	got, err := store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Django Basics", got.Title)
	assert.Equal(t, "Technology", got.Category.Name)
	assert.Equal(t, "Python", got.Tags[0].Name)
}

func testSeed(t *testing.T, store bloghub.Store) {
	ctx := context.Background()

	fixtures, err := bloghub.DefaultFixtures()
	require.NoError(t, err)

	counts, err := bloghub.Seed(ctx, store, fixtures)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"users": 9, "categories": 7, "tags": 16, "posts": 9}, counts)

	published, err := store.ListPublished(ctx)
	require.NoError(t, err)
	assert.Len(t, published, 7)

	for _, post := range published {
		assert.GreaterOrEqual(t, post.Views, 0)
		assert.LessOrEqual(t, post.Views, 500)
	}

	technology := bloghub.FilterByCategory(published, "technology")
	assert.Equal(t, []string{"Mastering RESTful APIs", "Getting Started with Django"}, titlesOf(technology.Posts))

	byAuthor := bloghub.FilterByAuthor(published, "sarah testsarah")
	assert.Equal(t, []string{"Getting Started with Django"}, titlesOf(byAuthor.Posts))

	// Seeding twice replaces the data
	_, err = bloghub.Seed(ctx, store, fixtures)
	require.NoError(t, err)
	published, err = store.ListPublished(ctx)
	require.NoError(t, err)
	assert.Len(t, published, 7)
}

func titlesOf(posts []*bloghub.Post) []string {
	titles := make([]string, 0, len(posts))
	for _, post := range posts {
		titles = append(titles, post.Title)
	}
	return titles
}
