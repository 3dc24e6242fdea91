package bboltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.etcd.io/bbolt"

	"github.com/hypergopher/bloghub"
)

const (
	bboltFile        = "bloghub.db"
	bleveFile        = "bloghub.bleve"
	bucketPosts      = "posts"
	bucketAuthors    = "authors"
	bucketCategories = "categories"
	bucketTags       = "tags"
)

var buckets = []string{bucketPosts, bucketAuthors, bucketCategories, bucketTags}

// BBoltStore keeps posts, authors, categories and tags as JSON records in bbolt buckets
// and indexes posts in bleve for the admin search.
type BBoltStore struct {
	bleveIndex bleve.Index
	boltIndex  *bbolt.DB
	dataDir    string // dataDir is the directory holding the bolt file and the bleve index
	logger     *slog.Logger
	now        func() time.Time
	mu         sync.RWMutex // mu guards the index handles and keeps bleve in step with bolt writes
}

// New creates a new BBoltStore. Call Init before use.
func New(dataDir string, logger *slog.Logger) *BBoltStore {
	if logger == nil {
		logger = defaultLogger()
	}

	return &BBoltStore{
		dataDir: dataDir,
		logger:  logger,
		now:     time.Now,
	}
}

// Init opens (or creates) the bolt database and the bleve index.
func (bbs *BBoltStore) Init() error {
	if err := os.MkdirAll(bbs.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	boltIndex, err := bbs.initBolt()
	if err != nil {
		return fmt.Errorf("failed to initialize bbolt: %w", err)
	}
	bbs.boltIndex = boltIndex

	bleveIndex, err := bbs.initBleve()
	if err != nil {
		return fmt.Errorf("failed to initialize bleve: %w", err)
	}
	bbs.bleveIndex = bleveIndex

	return nil
}

// Clear removes the bolt file and the bleve index and creates empty ones.
func (bbs *BBoltStore) Clear(_ context.Context) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if err := bbs.closeIndexes(); err != nil {
		return fmt.Errorf("failed to close indexes: %w", err)
	}

	if err := os.Remove(filepath.Join(bbs.dataDir, bboltFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove bolt file: %w", err)
	}

	if err := os.RemoveAll(filepath.Join(bbs.dataDir, bleveFile)); err != nil {
		return fmt.Errorf("failed to remove bleve index: %w", err)
	}

	boltIndex, err := bbs.initBolt()
	if err != nil {
		return fmt.Errorf("failed to reinitialize bolt: %w", err)
	}

	bleveIndex, err := bbs.initBleve()
	if err != nil {
		_ = boltIndex.Close()
		return fmt.Errorf("failed to reinitialize bleve: %w", err)
	}

	bbs.boltIndex = boltIndex
	bbs.bleveIndex = bleveIndex

	bbs.logger.Debug("cleared bbolt store", slog.String("dataDir", bbs.dataDir))
	return nil
}

// Close closes the bolt database and the bleve index.
func (bbs *BBoltStore) Close() error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	return bbs.closeIndexes()
}

func (bbs *BBoltStore) closeIndexes() error {
	if bbs.boltIndex != nil {
		if err := bbs.boltIndex.Close(); err != nil {
			return err
		}
		bbs.boltIndex = nil
	}

	if bbs.bleveIndex != nil {
		err := bbs.bleveIndex.Close()
		bbs.bleveIndex = nil
		return err
	}

	return nil
}

// ListPublished returns all published posts, newest first.
func (bbs *BBoltStore) ListPublished(_ context.Context) ([]*bloghub.Post, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	var posts []*bloghub.Post

	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		return forEach(tx, bucketPosts, func(record *bloghub.PostRecord) error {
			if !record.Published {
				return nil
			}
			post, err := hydrate(tx, record)
			if err != nil {
				return err
			}
			posts = append(posts, post)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing published posts: %w", err)
	}

	if posts == nil {
		posts = []*bloghub.Post{}
	}
	bloghub.SortNewestFirst(posts)
	return posts, nil
}

// List returns one page of posts matching the filter and the total number of matches.
// The search term is matched through the bleve index, the other fields in Go.
func (bbs *BBoltStore) List(_ context.Context, filter bloghub.AdminFilter) ([]*bloghub.Post, int, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	filter = filter.Normalize()

	var matched map[uint64]bool
	if filter.Search != "" {
		var err error
		matched, err = bbs.search(filter.Search)
		if err != nil {
			return nil, 0, err
		}
	}

	var filtered []*bloghub.Post
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		return forEach(tx, bucketPosts, func(record *bloghub.PostRecord) error {
			if matched != nil && !matched[record.ID] {
				return nil
			}
			post, err := hydrate(tx, record)
			if err != nil {
				return err
			}
			if filter.MatchesAttributes(post) {
				filtered = append(filtered, post)
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error listing posts: %w", err)
	}

	bloghub.SortNewestFirst(filtered)
	return bloghub.Paginate(filtered, filter.PageNum, filter.PageSize), len(filtered), nil
}

// Get retrieves a post by ID.
func (bbs *BBoltStore) Get(_ context.Context, id uint64) (*bloghub.Post, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	var post *bloghub.Post

	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		record, err := get[bloghub.PostRecord](tx, bucketPosts, id)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
		}
		post, err = hydrate(tx, record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error getting post %d: %w", id, err)
	}

	return post, nil
}

// Create stores a new post and indexes it.
func (bbs *BBoltStore) Create(_ context.Context, meta bloghub.PostMeta) (*bloghub.Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	var post *bloghub.Post
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		if err := checkMeta(tx, 0, meta); err != nil {
			return err
		}

		id, err := tx.Bucket([]byte(bucketPosts)).NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate post id: %w", err)
		}

		record := bloghub.NewPostRecord(id, meta, bbs.now())
		if err := put(tx, bucketPosts, id, record); err != nil {
			return err
		}

		post, err = hydrate(tx, &record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := bbs.index(post); err != nil {
		return nil, err
	}

	return post, nil
}

// Update applies new metadata to a post and reindexes it.
func (bbs *BBoltStore) Update(_ context.Context, id uint64, meta bloghub.PostMeta) (*bloghub.Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	var post *bloghub.Post
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		record, err := get[bloghub.PostRecord](tx, bucketPosts, id)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
		}

		if err := checkMeta(tx, id, meta); err != nil {
			return err
		}

		record.Apply(meta)
		if err := put(tx, bucketPosts, id, record); err != nil {
			return err
		}

		post, err = hydrate(tx, record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update post %d: %w", id, err)
	}

	if err := bbs.index(post); err != nil {
		return nil, err
	}

	return post, nil
}

// Delete removes a post from bolt and from the bleve index.
func (bbs *BBoltStore) Delete(_ context.Context, id uint64) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b.Get(itob(id)) == nil {
			return fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
		}
		return b.Delete(itob(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}

	if err := bbs.bleveIndex.Delete(docID(id)); err != nil {
		return fmt.Errorf("failed to delete post from bleve: %w", err)
	}

	return nil
}

// IncrementViews adds one view to a post.
func (bbs *BBoltStore) IncrementViews(_ context.Context, id uint64) (int, error) {
	views := 0
	err := bbs.updateRecord(id, func(record *bloghub.PostRecord) {
		record.Views++
		views = record.Views
	})
	return views, err
}

// SetViews overwrites the view count of a post.
func (bbs *BBoltStore) SetViews(_ context.Context, id uint64, views int) error {
	return bbs.updateRecord(id, func(record *bloghub.PostRecord) {
		record.Views = max(views, 0)
	})
}

// updateRecord changes fields of a post record that the search index does not hold.
func (bbs *BBoltStore) updateRecord(id uint64, fn func(record *bloghub.PostRecord)) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		record, err := get[bloghub.PostRecord](tx, bucketPosts, id)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
		}
		fn(record)
		return put(tx, bucketPosts, id, record)
	})
	if err != nil {
		return fmt.Errorf("failed to update post %d: %w", id, err)
	}
	return nil
}

// CreateAuthor stores a new author.
func (bbs *BBoltStore) CreateAuthor(_ context.Context, author bloghub.Author) (*bloghub.Author, error) {
	if err := author.Validate(); err != nil {
		return nil, err
	}

	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		err := forEach(tx, bucketAuthors, func(existing *bloghub.Author) error {
			if existing.Username == author.Username {
				return fmt.Errorf("%w: %s", bloghub.ErrAuthorExists, author.Username)
			}
			return nil
		})
		if err != nil {
			return err
		}

		author.ID, err = tx.Bucket([]byte(bucketAuthors)).NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate author id: %w", err)
		}
		return put(tx, bucketAuthors, author.ID, author)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}

	return &author, nil
}

// GetAuthor retrieves an author by ID.
func (bbs *BBoltStore) GetAuthor(_ context.Context, id uint64) (*bloghub.Author, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	var author *bloghub.Author
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		var err error
		author, err = get[bloghub.Author](tx, bucketAuthors, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error getting author %d: %w", id, err)
	}
	if author == nil {
		return nil, fmt.Errorf("%w: %d", bloghub.ErrAuthorNotFound, id)
	}
	return author, nil
}

// ListAuthors returns all authors ordered by username.
func (bbs *BBoltStore) ListAuthors(_ context.Context) ([]*bloghub.Author, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	authors := []*bloghub.Author{}
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		return forEach(tx, bucketAuthors, func(author *bloghub.Author) error {
			authors = append(authors, author)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing authors: %w", err)
	}

	slices.SortFunc(authors, func(a, b *bloghub.Author) int {
		return strings.Compare(a.Username, b.Username)
	})
	return authors, nil
}

// CreateCategory stores a new category.
func (bbs *BBoltStore) CreateCategory(_ context.Context, name string) (*bloghub.Category, error) {
	name, err := bloghub.CheckCategoryName(name)
	if err != nil {
		return nil, err
	}

	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	category := bloghub.Category{Name: name}
	err = bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		err := forEach(tx, bucketCategories, func(existing *bloghub.Category) error {
			if existing.Name == name {
				return fmt.Errorf("%w: %s", bloghub.ErrCategoryExists, name)
			}
			return nil
		})
		if err != nil {
			return err
		}

		category.ID, err = tx.Bucket([]byte(bucketCategories)).NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate category id: %w", err)
		}
		return put(tx, bucketCategories, category.ID, category)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return &category, nil
}

// ListCategories returns all categories with their post counts.
func (bbs *BBoltStore) ListCategories(_ context.Context) ([]bloghub.TaxonomyCount, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	counts := []bloghub.TaxonomyCount{}
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		used := make(map[uint64]int)
		err := forEach(tx, bucketPosts, func(record *bloghub.PostRecord) error {
			if record.CategoryID != 0 {
				used[record.CategoryID]++
			}
			return nil
		})
		if err != nil {
			return err
		}

		return forEach(tx, bucketCategories, func(category *bloghub.Category) error {
			counts = append(counts, bloghub.TaxonomyCount{ID: category.ID, Name: category.Name, PostCount: used[category.ID]})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	bloghub.SortTaxonomyCounts(counts)
	return counts, nil
}

// DeleteCategory removes a category, detaches its posts and reindexes them.
func (bbs *BBoltStore) DeleteCategory(_ context.Context, id uint64) error {
	return bbs.deleteTaxonomy(bucketCategories, id, bloghub.ErrCategoryNotFound, func(record *bloghub.PostRecord) bool {
		if record.CategoryID != id {
			return false
		}
		record.CategoryID = 0
		return true
	})
}

// CreateTag stores a new tag.
func (bbs *BBoltStore) CreateTag(_ context.Context, name string) (*bloghub.Tag, error) {
	name, err := bloghub.CheckTagName(name)
	if err != nil {
		return nil, err
	}

	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	tag := bloghub.Tag{Name: name}
	err = bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		err := forEach(tx, bucketTags, func(existing *bloghub.Tag) error {
			if existing.Name == name {
				return fmt.Errorf("%w: %s", bloghub.ErrTagExists, name)
			}
			return nil
		})
		if err != nil {
			return err
		}

		tag.ID, err = tx.Bucket([]byte(bucketTags)).NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate tag id: %w", err)
		}
		return put(tx, bucketTags, tag.ID, tag)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return &tag, nil
}

// ListTags returns all tags with their post counts.
func (bbs *BBoltStore) ListTags(_ context.Context) ([]bloghub.TaxonomyCount, error) {
	bbs.mu.RLock()
	defer bbs.mu.RUnlock()

	counts := []bloghub.TaxonomyCount{}
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		used := make(map[uint64]int)
		err := forEach(tx, bucketPosts, func(record *bloghub.PostRecord) error {
			for _, tagID := range record.TagIDs {
				used[tagID]++
			}
			return nil
		})
		if err != nil {
			return err
		}

		return forEach(tx, bucketTags, func(tag *bloghub.Tag) error {
			counts = append(counts, bloghub.TaxonomyCount{ID: tag.ID, Name: tag.Name, PostCount: used[tag.ID]})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing tags: %w", err)
	}

	bloghub.SortTaxonomyCounts(counts)
	return counts, nil
}

// DeleteTag removes a tag from the store and from every post, and reindexes those posts.
func (bbs *BBoltStore) DeleteTag(_ context.Context, id uint64) error {
	return bbs.deleteTaxonomy(bucketTags, id, bloghub.ErrTagNotFound, func(record *bloghub.PostRecord) bool {
		return record.RemoveTag(id)
	})
}

// deleteTaxonomy deletes a category or tag. detach updates a post record that referenced
// it and reports whether the record changed.
func (bbs *BBoltStore) deleteTaxonomy(bucket string, id uint64, notFound error, detach func(*bloghub.PostRecord) bool) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	var changed []*bloghub.Post
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b.Get(itob(id)) == nil {
			return fmt.Errorf("%w: %d", notFound, id)
		}
		if err := b.Delete(itob(id)); err != nil {
			return err
		}

		var records []*bloghub.PostRecord
		err := forEach(tx, bucketPosts, func(record *bloghub.PostRecord) error {
			if detach(record) {
				records = append(records, record)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := put(tx, bucketPosts, record.ID, record); err != nil {
				return err
			}
			post, err := hydrate(tx, record)
			if err != nil {
				return err
			}
			changed = append(changed, post)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", strings.TrimSuffix(bucket, "s"), id, err)
	}

	return bbs.index(changed...)
}

func (bbs *BBoltStore) initBolt() (*bbolt.DB, error) {
	boltPath := filepath.Join(bbs.dataDir, bboltFile)
	boltIndex, err := bbolt.Open(boltPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt index: %w", err)
	}

	err = boltIndex.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = boltIndex.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return boltIndex, nil
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelDebug,
		}))
}

// checkMeta verifies title uniqueness and that every reference exists. selfID is the
// post being updated, or zero on create.
func checkMeta(tx *bbolt.Tx, selfID uint64, meta bloghub.PostMeta) error {
	err := forEach(tx, bucketPosts, func(record *bloghub.PostRecord) error {
		if record.ID != selfID && record.Title == meta.Title {
			return fmt.Errorf("%w: %s", bloghub.ErrPostExists, meta.Title)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if tx.Bucket([]byte(bucketAuthors)).Get(itob(meta.AuthorID)) == nil {
		return fmt.Errorf("%w: %d", bloghub.ErrAuthorNotFound, meta.AuthorID)
	}

	if meta.CategoryID != 0 && tx.Bucket([]byte(bucketCategories)).Get(itob(meta.CategoryID)) == nil {
		return fmt.Errorf("%w: %d", bloghub.ErrCategoryNotFound, meta.CategoryID)
	}

	tags := tx.Bucket([]byte(bucketTags))
	for _, tagID := range meta.TagIDs {
		if tags.Get(itob(tagID)) == nil {
			return fmt.Errorf("%w: %d", bloghub.ErrTagNotFound, tagID)
		}
	}

	return nil
}

// hydrate resolves the author, category and tags of a record.
func hydrate(tx *bbolt.Tx, record *bloghub.PostRecord) (*bloghub.Post, error) {
	author, err := get[bloghub.Author](tx, bucketAuthors, record.AuthorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		author = &bloghub.Author{ID: record.AuthorID}
	}

	var category *bloghub.Category
	if record.CategoryID != 0 {
		category, err = get[bloghub.Category](tx, bucketCategories, record.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	tags := make([]bloghub.Tag, 0, len(record.TagIDs))
	for _, tagID := range record.TagIDs {
		tag, err := get[bloghub.Tag](tx, bucketTags, tagID)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			tags = append(tags, *tag)
		}
	}

	return record.Hydrate(*author, category, tags), nil
}

func get[T any](tx *bbolt.Tx, bucket string, id uint64) (*T, error) {
	data := tx.Bucket([]byte(bucket)).Get(itob(id))
	if data == nil {
		return nil, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("error deserializing %s record %d: %w", bucket, id, err)
	}
	return &v, nil
}

func put(tx *bbolt.Tx, bucket string, id uint64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s record %d: %w", bucket, id, err)
	}

	if err := tx.Bucket([]byte(bucket)).Put(itob(id), data); err != nil {
		return fmt.Errorf("failed to put %s record %d: %w", bucket, id, err)
	}
	return nil
}

// forEach decodes every record of a bucket in key order. An error from fn stops the loop.
func forEach[T any](tx *bbolt.Tx, bucket string, fn func(*T) error) error {
	return tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
		var record T
		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("error deserializing %s record %d: %w", bucket, binary.BigEndian.Uint64(k), err)
		}
		return fn(&record)
	})
}

// itob encodes an ID as a big-endian key so bolt keeps records in ID order.
func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}
