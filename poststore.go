package bloghub

import "context"

// Store persists posts together with the authors, categories and tags they reference.
// Posts handed out by a store are copies; changing them does not change stored state.
type Store interface {
	// Init initializes the store, such as creating the necessary tables, buckets or indexes.
	Init() error
	// Close closes the store.
	Close() error
	// Clear removes all posts, tags, categories and authors.
	Clear(ctx context.Context) error

	// ListPublished returns every published post, newest first.
	ListPublished(ctx context.Context) ([]*Post, error)
	// List returns one page of posts matching the admin filter, newest first, and the total number of matches.
	List(ctx context.Context, filter AdminFilter) ([]*Post, int, error)
	// Get retrieves a post by ID.
	Get(ctx context.Context, id uint64) (*Post, error)
	// Create creates a new post. The title must be unique.
	Create(ctx context.Context, meta PostMeta) (*Post, error)
	// Update replaces the editable fields of an existing post. CreatedAt and Views are kept.
	Update(ctx context.Context, id uint64, meta PostMeta) (*Post, error)
	// Delete deletes a post.
	Delete(ctx context.Context, id uint64) error
	// IncrementViews adds one to the view count of a post and returns the new count.
	IncrementViews(ctx context.Context, id uint64) (int, error)
	// SetViews overwrites the view count. It is used when loading fixtures.
	SetViews(ctx context.Context, id uint64, views int) error

	// CreateAuthor creates a new author. The username must be unique.
	CreateAuthor(ctx context.Context, author Author) (*Author, error)
	// GetAuthor retrieves an author by ID.
	GetAuthor(ctx context.Context, id uint64) (*Author, error)
	// ListAuthors returns all authors ordered by username.
	ListAuthors(ctx context.Context) ([]*Author, error)

	// CreateCategory creates a new category. The name must be unique.
	CreateCategory(ctx context.Context, name string) (*Category, error)
	// ListCategories returns all categories ordered by name with their post counts.
	ListCategories(ctx context.Context) ([]TaxonomyCount, error)
	// DeleteCategory deletes a category and detaches its posts.
	DeleteCategory(ctx context.Context, id uint64) error

	// CreateTag creates a new tag. The name must be unique.
	CreateTag(ctx context.Context, name string) (*Tag, error)
	// ListTags returns all tags ordered by name with their post counts.
	ListTags(ctx context.Context) ([]TaxonomyCount, error)
	// DeleteTag deletes a tag and removes it from every post.
	DeleteTag(ctx context.Context, id uint64) error
}
