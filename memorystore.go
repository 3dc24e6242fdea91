package bloghub

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements the Store interface using in-memory storage
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	seq        uint64
	posts      map[uint64]*PostRecord
	authors    map[uint64]Author
	categories map[uint64]Category
	tags       map[uint64]Tag
}

// NewMemoryStore creates a new MemoryStore
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{now: time.Now}
	m.reset()
	return m
}

func (m *MemoryStore) reset() {
	m.posts = make(map[uint64]*PostRecord)
	m.authors = make(map[uint64]Author)
	m.categories = make(map[uint64]Category)
	m.tags = make(map[uint64]Tag)
}

// Init initializes the store
func (m *MemoryStore) Init() error {
	return nil
}

// Close closes the store
func (m *MemoryStore) Close() error {
	return nil
}

// Clear clears all data from the store. IDs keep increasing across clears.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()
	return nil
}

// ListPublished returns all published posts, newest first
func (m *MemoryStore) ListPublished(_ context.Context) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]*Post, 0, len(m.posts))
	for _, record := range m.posts {
		if record.Published {
			posts = append(posts, m.hydrate(record))
		}
	}

	SortNewestFirst(posts)
	return posts, nil
}

// List returns one page of posts matching the filter and the total number of matches
func (m *MemoryStore) List(_ context.Context, filter AdminFilter) ([]*Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filter = filter.Normalize()

	var filtered []*Post
	for _, record := range m.posts {
		post := m.hydrate(record)
		if filter.Matches(post) {
			filtered = append(filtered, post)
		}
	}

	SortNewestFirst(filtered)
	return Paginate(filtered, filter.PageNum, filter.PageSize), len(filtered), nil
}

// Get retrieves a post from the store
func (m *MemoryStore) Get(_ context.Context, id uint64) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}

	return m.hydrate(record), nil
}

// Create adds a new post to the store
func (m *MemoryStore) Create(_ context.Context, meta PostMeta) (*Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkMeta(0, meta); err != nil {
		return nil, err
	}

	m.seq++
	record := NewPostRecord(m.seq, meta, m.now())
	m.posts[record.ID] = &record

	return m.hydrate(&record), nil
}

// Update updates an existing post in the store
func (m *MemoryStore) Update(_ context.Context, id uint64, meta PostMeta) (*Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}

	if err := m.checkMeta(id, meta); err != nil {
		return nil, err
	}

	record.Apply(meta)
	return m.hydrate(record), nil
}

// Delete removes a post from the store
func (m *MemoryStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}

	delete(m.posts, id)
	return nil
}

// IncrementViews adds one view to a post
func (m *MemoryStore) IncrementViews(_ context.Context, id uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.posts[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}

	record.Views++
	return record.Views, nil
}

// SetViews overwrites the view count of a post
func (m *MemoryStore) SetViews(_ context.Context, id uint64, views int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}

	record.Views = max(views, 0)
	return nil
}

// CreateAuthor adds a new author
func (m *MemoryStore) CreateAuthor(_ context.Context, author Author) (*Author, error) {
	if err := author.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.authors {
		if existing.Username == author.Username {
			return nil, fmt.Errorf("%w: %s", ErrAuthorExists, author.Username)
		}
	}

	m.seq++
	author.ID = m.seq
	m.authors[author.ID] = author
	return &author, nil
}

// GetAuthor retrieves an author
func (m *MemoryStore) GetAuthor(_ context.Context, id uint64) (*Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	author, ok := m.authors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAuthorNotFound, id)
	}
	return &author, nil
}

// ListAuthors returns all authors ordered by username
func (m *MemoryStore) ListAuthors(_ context.Context) ([]*Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	authors := make([]*Author, 0, len(m.authors))
	for _, author := range m.authors {
		a := author
		authors = append(authors, &a)
	}

	slices.SortFunc(authors, func(a, b *Author) int {
		return strings.Compare(a.Username, b.Username)
	})
	return authors, nil
}

// CreateCategory adds a new category
func (m *MemoryStore) CreateCategory(_ context.Context, name string) (*Category, error) {
	name, err := CheckCategoryName(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing.Name == name {
			return nil, fmt.Errorf("%w: %s", ErrCategoryExists, name)
		}
	}

	m.seq++
	category := Category{ID: m.seq, Name: name}
	m.categories[category.ID] = category
	return &category, nil
}

// ListCategories returns all categories with their post counts
func (m *MemoryStore) ListCategories(_ context.Context) ([]TaxonomyCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make([]TaxonomyCount, 0, len(m.categories))
	for _, category := range m.categories {
		count := 0
		for _, record := range m.posts {
			if record.CategoryID == category.ID {
				count++
			}
		}
		counts = append(counts, TaxonomyCount{ID: category.ID, Name: category.Name, PostCount: count})
	}

	SortTaxonomyCounts(counts)
	return counts, nil
}

// DeleteCategory removes a category and detaches its posts
func (m *MemoryStore) DeleteCategory(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
	}

	for _, record := range m.posts {
		if record.CategoryID == id {
			record.CategoryID = 0
		}
	}

	delete(m.categories, id)
	return nil
}

// CreateTag adds a new tag
func (m *MemoryStore) CreateTag(_ context.Context, name string) (*Tag, error) {
	name, err := CheckTagName(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tags {
		if existing.Name == name {
			return nil, fmt.Errorf("%w: %s", ErrTagExists, name)
		}
	}

	m.seq++
	tag := Tag{ID: m.seq, Name: name}
	m.tags[tag.ID] = tag
	return &tag, nil
}

// ListTags returns all tags with their post counts
func (m *MemoryStore) ListTags(_ context.Context) ([]TaxonomyCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make([]TaxonomyCount, 0, len(m.tags))
	for _, tag := range m.tags {
		count := 0
		for _, record := range m.posts {
			if record.HasTag(tag.ID) {
				count++
			}
		}
		counts = append(counts, TaxonomyCount{ID: tag.ID, Name: tag.Name, PostCount: count})
	}

	SortTaxonomyCounts(counts)
	return counts, nil
}

// DeleteTag removes a tag from the store and from every post
func (m *MemoryStore) DeleteTag(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tags[id]; !ok {
		return fmt.Errorf("%w: %d", ErrTagNotFound, id)
	}

	for _, record := range m.posts {
		record.RemoveTag(id)
	}

	delete(m.tags, id)
	return nil
}

// checkMeta verifies title uniqueness and that every reference exists. selfID is the
// post being updated, or zero on create.
func (m *MemoryStore) checkMeta(selfID uint64, meta PostMeta) error {
	for _, record := range m.posts {
		if record.ID != selfID && record.Title == meta.Title {
			return fmt.Errorf("%w: %s", ErrPostExists, meta.Title)
		}
	}

	if _, ok := m.authors[meta.AuthorID]; !ok {
		return fmt.Errorf("%w: %d", ErrAuthorNotFound, meta.AuthorID)
	}

	if meta.CategoryID != 0 {
		if _, ok := m.categories[meta.CategoryID]; !ok {
			return fmt.Errorf("%w: %d", ErrCategoryNotFound, meta.CategoryID)
		}
	}

	for _, tagID := range meta.TagIDs {
		if _, ok := m.tags[tagID]; !ok {
			return fmt.Errorf("%w: %d", ErrTagNotFound, tagID)
		}
	}

	return nil
}

// hydrate resolves the references of a record. The caller must hold the lock.
func (m *MemoryStore) hydrate(record *PostRecord) *Post {
	var category *Category
	if c, ok := m.categories[record.CategoryID]; ok {
		category = &c
	}

	tags := make([]Tag, 0, len(record.TagIDs))
	for _, id := range record.TagIDs {
		if tag, ok := m.tags[id]; ok {
			tags = append(tags, tag)
		}
	}

	return record.Hydrate(m.authors[record.AuthorID], category, tags)
}
