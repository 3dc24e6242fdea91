package bloghub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// AllPostsHeading is the heading of the unfiltered post listing.
const AllPostsHeading = "All Blog Posts"

// Blog is the main entry point for browsing and managing posts.
type Blog struct {
	store  Store
	logger *slog.Logger
}

// Options is a struct for configuring a new Blog instance.
type Options struct {
	Store  Store        // Store holds the posts. Required.
	Logger *slog.Logger // Logger is the logger used by Blog. Default is a debug logger to stderr.
}

// SiteStats holds the aggregates shown on the home page.
type SiteStats struct {
	TotalPosts    int      `json:"totalPosts"`
	TotalAuthors  int      `json:"totalAuthors"`
	FeaturedPosts []*Post  `json:"featuredPosts"`
	Topics        []string `json:"topics"`
}

// New creates a new Blog instance with the provided options.
func New(opts Options) (*Blog, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}

	if opts.Logger == nil {
		opts.Logger = defaultLogger()
	}

	return &Blog{store: opts.Store, logger: opts.Logger}, nil
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelDebug,
		}))
}

// Store returns the underlying store.
func (b *Blog) Store() Store {
	return b.store
}

// Posts returns every published post, newest first.
func (b *Blog) Posts(ctx context.Context) (Listing, error) {
	posts, err := b.store.ListPublished(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("error listing published posts: %w", err)
	}
	return newListing(posts, AllPostsHeading), nil
}

// PostsByCategory returns the published posts in a category. A name that is not
// lowercase yields a redirect result without reading the store.
func (b *Blog) PostsByCategory(ctx context.Context, name string) (CategoryResult, error) {
	if canonical, ok := CanonicalCategory(name); !ok {
		b.logger.DebugContext(ctx, "redirecting to canonical category",
			slog.String("category", name),
			slog.String("canonical", canonical))
		return CategoryResult{RedirectTo: canonical}, nil
	}

	posts, err := b.store.ListPublished(ctx)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("error listing published posts: %w", err)
	}

	return FilterByCategory(posts, name), nil
}

// SearchPosts returns the published posts matching a free-text query. An empty query
// returns every published post.
func (b *Blog) SearchPosts(ctx context.Context, query string) (Listing, error) {
	posts, err := b.store.ListPublished(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("error listing published posts: %w", err)
	}

	return FilterByQuery(posts, query), nil
}

// PostsByAuthor returns the published posts written by the named author.
func (b *Blog) PostsByAuthor(ctx context.Context, name string) (Listing, error) {
	posts, err := b.store.ListPublished(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("error listing published posts: %w", err)
	}

	return FilterByAuthor(posts, name), nil
}

// ViewPost records a view and returns the post.
func (b *Blog) ViewPost(ctx context.Context, id uint64) (*Post, error) {
	views, err := b.store.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error recording view: %w", err)
	}

	post, err := b.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting post %d: %w", id, err)
	}

	// Another view may have landed between the two calls
	post.Views = max(post.Views, views)
	return post, nil
}

// Stats computes the home page aggregates from the stored data.
func (b *Blog) Stats(ctx context.Context) (SiteStats, error) {
	posts, err := b.store.ListPublished(ctx)
	if err != nil {
		return SiteStats{}, fmt.Errorf("error listing published posts: %w", err)
	}

	authors, err := b.store.ListAuthors(ctx)
	if err != nil {
		return SiteStats{}, fmt.Errorf("error listing authors: %w", err)
	}

	stats := SiteStats{
		TotalPosts:    len(posts),
		TotalAuthors:  len(authors),
		FeaturedPosts: []*Post{},
		Topics:        []string{},
	}

	for _, post := range posts {
		if post.Featured {
			stats.FeaturedPosts = append(stats.FeaturedPosts, post)
		}
		if post.HasCategory() && !slices.Contains(stats.Topics, post.Category.Name) {
			stats.Topics = append(stats.Topics, post.Category.Name)
		}
	}
	slices.Sort(stats.Topics)

	return stats, nil
}

// AdminPosts returns one page of posts, published or not, matching the filter.
func (b *Blog) AdminPosts(ctx context.Context, filter AdminFilter) (Paginator, error) {
	filter = filter.Normalize()

	posts, total, err := b.store.List(ctx, filter)
	if err != nil {
		return Paginator{}, fmt.Errorf("error searching for posts: %w", err)
	}

	return NewPaginator(posts, total, filter.PageNum, filter.PageSize), nil
}

// GetPost returns a post without recording a view.
func (b *Blog) GetPost(ctx context.Context, id uint64) (*Post, error) {
	return b.store.Get(ctx, id)
}

// CreatePost validates and stores a new post.
func (b *Blog) CreatePost(ctx context.Context, meta PostMeta) (*Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	post, err := b.store.Create(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	b.logger.InfoContext(ctx, "post created",
		slog.Uint64("id", post.ID),
		slog.String("title", post.Title),
		slog.Bool("published", post.Published))
	return post, nil
}

// UpdatePost validates and applies new metadata to an existing post.
func (b *Blog) UpdatePost(ctx context.Context, id uint64, meta PostMeta) (*Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	post, err := b.store.Update(ctx, id, meta)
	if err != nil {
		return nil, fmt.Errorf("error updating post %d: %w", id, err)
	}

	b.logger.InfoContext(ctx, "post updated", slog.Uint64("id", id))
	return post, nil
}

// DeletePost deletes a post.
func (b *Blog) DeletePost(ctx context.Context, id uint64) error {
	if err := b.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting post %d: %w", id, err)
	}

	b.logger.InfoContext(ctx, "post deleted", slog.Uint64("id", id))
	return nil
}

// Categories returns one page of categories with their post counts.
func (b *Blog) Categories(ctx context.Context, pageNum, pageSize int) ([]TaxonomyCount, int, error) {
	counts, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing categories: %w", err)
	}
	return pageTaxonomies(counts, pageNum, pageSize)
}

// Tags returns one page of tags with their post counts.
func (b *Blog) Tags(ctx context.Context, pageNum, pageSize int) ([]TaxonomyCount, int, error) {
	counts, err := b.store.ListTags(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing tags: %w", err)
	}
	return pageTaxonomies(counts, pageNum, pageSize)
}

func pageTaxonomies(counts []TaxonomyCount, pageNum, pageSize int) ([]TaxonomyCount, int, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = DefaultTaxonomyPageSize
	}
	return Paginate(counts, pageNum, pageSize), len(counts), nil
}

// CreateCategory creates a category.
func (b *Blog) CreateCategory(ctx context.Context, name string) (*Category, error) {
	category, err := b.store.CreateCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("error creating category: %w", err)
	}
	b.logger.InfoContext(ctx, "category created", slog.String("name", category.Name))
	return category, nil
}

// DeleteCategory deletes a category. Its posts become uncategorized.
func (b *Blog) DeleteCategory(ctx context.Context, id uint64) error {
	if err := b.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("error deleting category %d: %w", id, err)
	}
	b.logger.InfoContext(ctx, "category deleted", slog.Uint64("id", id))
	return nil
}

// CreateTag creates a tag.
func (b *Blog) CreateTag(ctx context.Context, name string) (*Tag, error) {
	tag, err := b.store.CreateTag(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("error creating tag: %w", err)
	}
	b.logger.InfoContext(ctx, "tag created", slog.String("name", tag.Name))
	return tag, nil
}

// DeleteTag deletes a tag and removes it from its posts.
func (b *Blog) DeleteTag(ctx context.Context, id uint64) error {
	if err := b.store.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("error deleting tag %d: %w", id, err)
	}
	b.logger.InfoContext(ctx, "tag deleted", slog.Uint64("id", id))
	return nil
}

// CreateAuthor creates an author.
func (b *Blog) CreateAuthor(ctx context.Context, author Author) (*Author, error) {
	created, err := b.store.CreateAuthor(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("error creating author: %w", err)
	}
	b.logger.InfoContext(ctx, "author created", slog.String("username", created.Username))
	return created, nil
}

// Authors returns every author ordered by username.
func (b *Blog) Authors(ctx context.Context) ([]*Author, error) {
	authors, err := b.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing authors: %w", err)
	}
	return authors, nil
}
