package bloghub_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hypergopher/bloghub"
)

func TestNewPaginator(t *testing.T) {
	posts := []*bloghub.Post{
		{ID: 1, Title: "A", Featured: true},
		{ID: 2, Title: "B"},
	}

	cases := []struct {
		name            string
		total           int
		currentPage     int
		pageSize        int
		expectedPages   int
		expectedNext    int
		expectedPrev    int
		expectedHasNext bool
		expectedHasPrev bool
	}{
		{"First of three", 6, 1, 2, 3, 2, 1, true, false},
		{"Middle", 6, 2, 2, 3, 3, 1, true, true},
		{"Last", 6, 3, 2, 3, 3, 2, false, true},
		{"Partial last page", 5, 1, 2, 3, 2, 1, true, false},
		{"Defaults", 2, 0, 0, 1, 1, 1, false, false},
		{"Past the end", 6, 9, 2, 3, 3, 8, false, true},
		{"Largest page number", 6, math.MaxInt, 2, 3, 3, math.MaxInt - 1, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := bloghub.NewPaginator(posts, tc.total, tc.currentPage, tc.pageSize)
			assert.Equal(t, tc.expectedPages, p.TotalPages)
			assert.Equal(t, tc.expectedNext, p.NextPage)
			assert.Equal(t, tc.expectedPrev, p.PrevPage)
			assert.Equal(t, tc.expectedHasNext, p.HasNext)
			assert.Equal(t, tc.expectedHasPrev, p.HasPrev)
			assert.True(t, p.HasPosts)
			assert.Equal(t, tc.total, p.TotalPosts)
			assert.Len(t, p.FeaturedPosts, 1)
			assert.Len(t, p.NonFeaturedPosts, 1)
		})
	}

	empty := bloghub.NewPaginator(nil, 0, 1, 10)
	assert.False(t, empty.HasPosts)
	assert.NotNil(t, empty.Posts)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, bloghub.Paginate(items, 1, 2))
	assert.Equal(t, []int{5}, bloghub.Paginate(items, 3, 2))
	assert.Empty(t, bloghub.Paginate(items, 4, 2))
	assert.Empty(t, bloghub.Paginate([]int{}, 1, 2))
	assert.Empty(t, bloghub.Paginate(items, math.MaxInt, 2))
	assert.Empty(t, bloghub.Paginate(items, math.MaxInt/2+1, 2))
	assert.Empty(t, bloghub.Paginate(items, 0, 2))
	assert.Equal(t, items, bloghub.Paginate(items, 1, math.MaxInt))
}

func TestAdminFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, bloghub.AdminFilter{}.Offset())
	assert.Equal(t, 30, bloghub.AdminFilter{PageNum: 3}.Offset())
	assert.Equal(t, 20, bloghub.AdminFilter{PageNum: 5, PageSize: 5}.Offset())
	assert.Equal(t, math.MaxInt, bloghub.AdminFilter{PageNum: math.MaxInt, PageSize: 100}.Offset())
}

func TestAdminFilter(t *testing.T) {
	yes := true
	post := &bloghub.Post{
		ID:        1,
		Title:     "Getting Started",
		Author:    bloghub.Author{ID: 2, FirstName: "Sarah", LastName: "Johnson"},
		Category:  &bloghub.Category{ID: 3, Name: "Technology"},
		Tags:      []bloghub.Tag{{ID: 4, Name: "Python"}},
		Published: true,
	}

	cases := []struct {
		name     string
		filter   bloghub.AdminFilter
		expected bool
	}{
		{"Empty", bloghub.AdminFilter{}, true},
		{"Published", bloghub.AdminFilter{Published: &yes}, true},
		{"Featured", bloghub.AdminFilter{Featured: &yes}, false},
		{"Category", bloghub.AdminFilter{CategoryID: 3}, true},
		{"Other category", bloghub.AdminFilter{CategoryID: 9}, false},
		{"Author", bloghub.AdminFilter{AuthorID: 2}, true},
		{"Tag", bloghub.AdminFilter{TagID: 4}, true},
		{"Other tag", bloghub.AdminFilter{TagID: 5}, false},
		{"Search tag name", bloghub.AdminFilter{Search: "PYTH"}, true},
		{"Search last name", bloghub.AdminFilter{Search: "johns"}, true},
		{"Search miss", bloghub.AdminFilter{Search: "rust"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.filter.Normalize().Matches(post))
		})
	}

	normalized := bloghub.AdminFilter{Search: "  go "}.Normalize()
	assert.Equal(t, 1, normalized.PageNum)
	assert.Equal(t, bloghub.DefaultAdminPageSize, normalized.PageSize)
	assert.Equal(t, "go", normalized.Search)
}

func TestSortNewestFirst(t *testing.T) {
	now := time.Now()
	posts := []*bloghub.Post{
		{ID: 1, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, CreatedAt: now},
		{ID: 3, CreatedAt: now},
	}

	bloghub.SortNewestFirst(posts)

	ids := []uint64{posts[0].ID, posts[1].ID, posts[2].ID}
	assert.Equal(t, []uint64{3, 2, 1}, ids)
}
