package bloghub

// Paginator is a struct that holds information about pagination, such as the total number of pages, the current page,
// the next and previous pages, the page size, whether there are more pages, whether there are posts,
// the total number of matching posts, the posts on this page, and the featured and non-featured posts on this page.
type Paginator struct {
	TotalPages       int     `json:"totalPages"`
	CurrentPage      int     `json:"currentPage"`
	NextPage         int     `json:"nextPage"`
	PrevPage         int     `json:"prevPage"`
	PageSize         int     `json:"pageSize"`
	HasNext          bool    `json:"hasNext"`
	HasPrev          bool    `json:"hasPrev"`
	HasPosts         bool    `json:"hasPosts"`
	TotalPosts       int     `json:"totalPosts"`
	Posts            []*Post `json:"posts"`
	FeaturedPosts    []*Post `json:"-"`
	NonFeaturedPosts []*Post `json:"-"`
}

// NewPaginator returns a Paginator for one page of posts out of total matches.
func NewPaginator(posts []*Post, total, currentPage, pageSize int) Paginator {
	if pageSize < 1 {
		pageSize = DefaultAdminPageSize
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if posts == nil {
		posts = []*Post{}
	}

	totalPages := (total + pageSize - 1) / pageSize
	nextPage := totalPages
	if currentPage < totalPages {
		nextPage = currentPage + 1
	}

	prevPage := max(currentPage-1, 1)

	// Split posts into featured and non-featured
	featured := make([]*Post, 0)
	nonFeatured := make([]*Post, 0)
	for _, post := range posts {
		if post.Featured {
			featured = append(featured, post)
		} else {
			nonFeatured = append(nonFeatured, post)
		}
	}

	return Paginator{
		TotalPages:       totalPages,
		CurrentPage:      currentPage,
		NextPage:         nextPage,
		PrevPage:         prevPage,
		PageSize:         pageSize,
		HasNext:          currentPage < totalPages,
		HasPrev:          currentPage > 1,
		HasPosts:         len(posts) > 0,
		TotalPosts:       total,
		Posts:            posts,
		FeaturedPosts:    featured,
		NonFeaturedPosts: nonFeatured,
	}
}
