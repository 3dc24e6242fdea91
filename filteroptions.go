package bloghub

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const (
	DefaultAdminPageSize    = 15
	DefaultTaxonomyPageSize = 20
)

// AdminFilter contains the options to filter posts in the admin listing.
type AdminFilter struct {
	PageNum    int    // The page number to retrieve
	PageSize   int    // The number of items per page. Default is DefaultAdminPageSize.
	Published  *bool  // Only posts with this published flag, when set
	Featured   *bool  // Only posts with this featured flag, when set
	CategoryID uint64 // Only posts in this category, when non-zero
	AuthorID   uint64 // Only posts by this author, when non-zero
	TagID      uint64 // Only posts carrying this tag, when non-zero
	Search     string // Case-insensitive search over title, excerpt, author names, category and tags
}

// Normalize fills in default paging values.
func (f AdminFilter) Normalize() AdminFilter {
	if f.PageNum < 1 {
		f.PageNum = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultAdminPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Offset is the number of matches skipped before the filter's page, saturating at
// math.MaxInt for page numbers past any real result set.
func (f AdminFilter) Offset() int {
	f = f.Normalize()
	if f.PageNum-1 > math.MaxInt/f.PageSize {
		return math.MaxInt
	}
	return (f.PageNum - 1) * f.PageSize
}

// MatchesAttributes checks every field of the filter except Search.
func (f AdminFilter) MatchesAttributes(post *Post) bool {
	if f.Published != nil && *f.Published != post.Published {
		return false
	}

	if f.Featured != nil && *f.Featured != post.Featured {
		return false
	}

	if f.CategoryID != 0 && (!post.HasCategory() || post.Category.ID != f.CategoryID) {
		return false
	}

	if f.AuthorID != 0 && post.Author.ID != f.AuthorID {
		return false
	}

	if f.TagID != 0 && !post.HasTag(f.TagID) {
		return false
	}

	return true
}

// Matches checks the post against every field of the filter.
func (f AdminFilter) Matches(post *Post) bool {
	if !f.MatchesAttributes(post) {
		return false
	}

	if f.Search == "" {
		return true
	}

	q := strings.ToLower(f.Search)
	if postMatchesQuery(post, q) {
		return true
	}

	for _, tag := range post.Tags {
		if strings.Contains(strings.ToLower(tag.Name), q) {
			return true
		}
	}

	return false
}

// SortNewestFirst orders posts by creation time descending, breaking ties with the
// higher ID first.
func SortNewestFirst(posts []*Post) {
	slices.SortStableFunc(posts, func(a, b *Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// Paginate returns the page of items selected by pageNum and pageSize.
func Paginate[T any](items []T, pageNum, pageSize int) []T {
	start, end := paginationBounds(pageNum, pageSize, len(items))
	return items[start:end]
}

// paginationBounds calculates the start and end indices for pagination
func paginationBounds(pageNum, pageSize, totalItems int) (start, end int) {
	if pageNum < 1 || pageSize < 1 || totalItems == 0 || pageNum-1 > (totalItems-1)/pageSize {
		return totalItems, totalItems
	}
	start = (pageNum - 1) * pageSize
	end = min(start+pageSize, totalItems)
	return start, end
}
