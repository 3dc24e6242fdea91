package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hypergopher/bloghub"
)

const postColumns = `
	p.id, p.slug, p.title, p.excerpt, p.published, p.created_at, p.views, p.reading_time, p.featured,
	a.id, a.username, a.first_name, a.last_name, a.email,
	c.id, c.name
	FROM posts p
	JOIN authors a ON a.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id`

// SQLiteStore keeps blog data in a relational SQLite schema.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open database. Call Init before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Init creates the tables and indexes if they do not exist.
func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Clear deletes every row. IDs are not reused afterwards.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"post_tags", "posts", "tags", "categories", "authors"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// ListPublished returns all published posts, newest first.
func (s *SQLiteStore) ListPublished(ctx context.Context) ([]*bloghub.Post, error) {
	posts, err := s.queryPosts(ctx, s.db, `SELECT `+postColumns+`
		WHERE p.published = 1
		ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing published posts: %w", err)
	}
	return posts, nil
}

// List returns one page of posts matching the filter and the total number of matches.
func (s *SQLiteStore) List(ctx context.Context, filter bloghub.AdminFilter) ([]*bloghub.Post, int, error) {
	filter = filter.Normalize()
	where, args := filterClause(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM posts p
		JOIN authors a ON a.id = p.author_id
		LEFT JOIN categories c ON c.id = p.category_id` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting posts: %w", err)
	}

	pageArgs := append(args, filter.PageSize, filter.Offset())
	posts, err := s.queryPosts(ctx, s.db, `SELECT `+postColumns+where+`
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing posts: %w", err)
	}

	return posts, total, nil
}

// filterClause builds the WHERE clause for an admin filter.
func filterClause(filter bloghub.AdminFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Published != nil {
		conds = append(conds, "p.published = ?")
		args = append(args, *filter.Published)
	}
	if filter.Featured != nil {
		conds = append(conds, "p.featured = ?")
		args = append(args, *filter.Featured)
	}
	if filter.CategoryID != 0 {
		conds = append(conds, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.AuthorID != 0 {
		conds = append(conds, "p.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.TagID != 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM post_tags WHERE post_id = p.id AND tag_id = ?)")
		args = append(args, filter.TagID)
	}
	if filter.Search != "" {
		conds = append(conds, `(instr(lower(p.title), ?) > 0
			OR instr(lower(p.excerpt), ?) > 0
			OR instr(lower(a.first_name), ?) > 0
			OR instr(lower(a.last_name), ?) > 0
			OR instr(lower(c.name), ?) > 0
			OR EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
				WHERE pt.post_id = p.id AND instr(lower(t.name), ?) > 0))`)
		q := strings.ToLower(filter.Search)
		args = append(args, q, q, q, q, q, q)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

// Get retrieves a post by ID.
func (s *SQLiteStore) Get(ctx context.Context, id uint64) (*bloghub.Post, error) {
	post, err := s.getPost(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("error getting post %d: %w", id, err)
	}
	return post, nil
}

// Create inserts a new post and its tags.
func (s *SQLiteStore) Create(ctx context.Context, meta bloghub.PostMeta) (*bloghub.Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	var post *bloghub.Post
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkMeta(ctx, tx, 0, meta); err != nil {
			return err
		}

		record := bloghub.NewPostRecord(0, meta, s.now())
		result, err := tx.ExecContext(ctx, `
			INSERT INTO posts (slug, title, author_id, category_id, excerpt, published, created_at, reading_time, featured)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Slug, record.Title, record.AuthorID, nullID(record.CategoryID), record.Excerpt,
			record.Published, record.CreatedAt.UnixNano(), record.ReadingTime, record.Featured)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read post id: %w", err)
		}

		if err := insertTags(ctx, tx, uint64(id), record.TagIDs); err != nil {
			return err
		}

		post, err = s.getPost(ctx, tx, uint64(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// Update replaces the editable columns and the tags of a post.
func (s *SQLiteStore) Update(ctx context.Context, id uint64, meta bloghub.PostMeta) (*bloghub.Post, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	var post *bloghub.Post
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkPostExists(ctx, tx, id); err != nil {
			return err
		}

		if err := checkMeta(ctx, tx, id, meta); err != nil {
			return err
		}

		var record bloghub.PostRecord
		record.Apply(meta)
		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET
				slug = ?, title = ?, author_id = ?, category_id = ?, excerpt = ?,
				published = ?, reading_time = ?, featured = ?
			WHERE id = ?`,
			record.Slug, record.Title, record.AuthorID, nullID(record.CategoryID), record.Excerpt,
			record.Published, record.ReadingTime, record.Featured, id)
		if err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		// Delete existing tags
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete post tags: %w", err)
		}

		if err := insertTags(ctx, tx, id, record.TagIDs); err != nil {
			return err
		}

		post, err = s.getPost(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update post %d: %w", id, err)
	}

	return post, nil
}

// Delete deletes a post. Its tag links go with it.
func (s *SQLiteStore) Delete(ctx context.Context, id uint64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	return affected(result, fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id))
}

// IncrementViews adds one view to a post.
func (s *SQLiteStore) IncrementViews(ctx context.Context, id uint64) (int, error) {
	var views int
	err := s.db.QueryRowContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = ? RETURNING views`, id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment views of post %d: %w", id, err)
	}
	return views, nil
}

// SetViews overwrites the view count of a post.
func (s *SQLiteStore) SetViews(ctx context.Context, id uint64, views int) error {
	result, err := s.db.ExecContext(ctx, `UPDATE posts SET views = ? WHERE id = ?`, max(views, 0), id)
	if err != nil {
		return fmt.Errorf("failed to set views of post %d: %w", id, err)
	}
	return affected(result, fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id))
}

// CreateAuthor inserts a new author.
func (s *SQLiteStore) CreateAuthor(ctx context.Context, author bloghub.Author) (*bloghub.Author, error) {
	if err := author.Validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := taken(ctx, tx, `SELECT EXISTS(SELECT 1 FROM authors WHERE username = ?)`, author.Username)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: %s", bloghub.ErrAuthorExists, author.Username)
		}

		result, err := tx.ExecContext(ctx, `INSERT INTO authors (username, first_name, last_name, email) VALUES (?, ?, ?, ?)`,
			author.Username, author.FirstName, author.LastName, author.Email)
		if err != nil {
			return fmt.Errorf("failed to insert author: %w", err)
		}

		id, err := result.LastInsertId()
		author.ID = uint64(id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}

	return &author, nil
}

// GetAuthor retrieves an author by ID.
func (s *SQLiteStore) GetAuthor(ctx context.Context, id uint64) (*bloghub.Author, error) {
	var author bloghub.Author
	err := s.db.QueryRowContext(ctx, `SELECT id, username, first_name, last_name, email FROM authors WHERE id = ?`, id).
		Scan(&author.ID, &author.Username, &author.FirstName, &author.LastName, &author.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", bloghub.ErrAuthorNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting author %d: %w", id, err)
	}
	return &author, nil
}

// ListAuthors returns all authors ordered by username.
func (s *SQLiteStore) ListAuthors(ctx context.Context) ([]*bloghub.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, first_name, last_name, email FROM authors ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("error listing authors: %w", err)
	}
	defer rows.Close()

	authors := []*bloghub.Author{}
	for rows.Next() {
		var author bloghub.Author
		if err := rows.Scan(&author.ID, &author.Username, &author.FirstName, &author.LastName, &author.Email); err != nil {
			return nil, fmt.Errorf("error scanning author: %w", err)
		}
		authors = append(authors, &author)
	}
	return authors, rows.Err()
}

// CreateCategory inserts a new category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, name string) (*bloghub.Category, error) {
	name, err := bloghub.CheckCategoryName(name)
	if err != nil {
		return nil, err
	}

	id, err := s.createTaxonomy(ctx, "categories", name, bloghub.ErrCategoryExists)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &bloghub.Category{ID: id, Name: name}, nil
}

// ListCategories returns all categories with their post counts.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]bloghub.TaxonomyCount, error) {
	counts, err := s.queryCounts(ctx, `
		SELECT c.id, c.name, COUNT(p.id)
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return counts, nil
}

// DeleteCategory deletes a category. The foreign key detaches its posts.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id uint64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	return affected(result, fmt.Errorf("%w: %d", bloghub.ErrCategoryNotFound, id))
}

// CreateTag inserts a new tag.
func (s *SQLiteStore) CreateTag(ctx context.Context, name string) (*bloghub.Tag, error) {
	name, err := bloghub.CheckTagName(name)
	if err != nil {
		return nil, err
	}

	id, err := s.createTaxonomy(ctx, "tags", name, bloghub.ErrTagExists)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &bloghub.Tag{ID: id, Name: name}, nil
}

// ListTags returns all tags with their post counts.
func (s *SQLiteStore) ListTags(ctx context.Context) ([]bloghub.TaxonomyCount, error) {
	counts, err := s.queryCounts(ctx, `
		SELECT t.id, t.name, COUNT(pt.post_id)
		FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("error listing tags: %w", err)
	}
	return counts, nil
}

// DeleteTag deletes a tag. The foreign key removes it from every post.
func (s *SQLiteStore) DeleteTag(ctx context.Context, id uint64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag %d: %w", id, err)
	}
	return affected(result, fmt.Errorf("%w: %d", bloghub.ErrTagNotFound, id))
}

// createTaxonomy inserts a name into the categories or tags table.
func (s *SQLiteStore) createTaxonomy(ctx context.Context, table, name string, exists error) (uint64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := taken(ctx, tx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE name = ?)`, name)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: %s", exists, name)
		}

		result, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}

		id, err = result.LastInsertId()
		return err
	})
	return uint64(id), err
}

func (s *SQLiteStore) queryCounts(ctx context.Context, query string) ([]bloghub.TaxonomyCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []bloghub.TaxonomyCount{}
	for rows.Next() {
		var count bloghub.TaxonomyCount
		if err := rows.Scan(&count.ID, &count.Name, &count.PostCount); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) getPost(ctx context.Context, q querier, id uint64) (*bloghub.Post, error) {
	posts, err := s.queryPosts(ctx, q, `SELECT `+postColumns+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
	}
	return posts[0], nil
}

// queryPosts runs a query selecting postColumns and attaches the tags of every post.
func (s *SQLiteStore) queryPosts(ctx context.Context, q querier, query string, args ...any) ([]*bloghub.Post, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	type row struct {
		record   bloghub.PostRecord
		author   bloghub.Author
		category *bloghub.Category
	}

	var scanned []row
	for rows.Next() {
		var r row
		var createdAt int64
		var categoryID sql.NullInt64
		var categoryName sql.NullString

		err := rows.Scan(
			&r.record.ID, &r.record.Slug, &r.record.Title, &r.record.Excerpt, &r.record.Published,
			&createdAt, &r.record.Views, &r.record.ReadingTime, &r.record.Featured,
			&r.author.ID, &r.author.Username, &r.author.FirstName, &r.author.LastName, &r.author.Email,
			&categoryID, &categoryName,
		)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("error scanning post: %w", err)
		}

		r.record.CreatedAt = time.Unix(0, createdAt)
		if categoryID.Valid {
			r.category = &bloghub.Category{ID: uint64(categoryID.Int64), Name: categoryName.String}
		}
		scanned = append(scanned, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(scanned))
	for _, r := range scanned {
		ids = append(ids, r.record.ID)
	}

	tags, err := loadTags(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	posts := make([]*bloghub.Post, 0, len(scanned))
	for _, r := range scanned {
		posts = append(posts, r.record.Hydrate(r.author, r.category, tags[r.record.ID]))
	}
	return posts, nil
}

// loadTags returns the tags of each post, keyed by post ID.
func loadTags(ctx context.Context, q querier, postIDs []uint64) (map[uint64][]bloghub.Tag, error) {
	tags := make(map[uint64][]bloghub.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return tags, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(postIDs)), ",")
	args := make([]any, 0, len(postIDs))
	for _, id := range postIDs {
		args = append(args, id)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (`+placeholders+`)
		ORDER BY t.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("error loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID uint64
		var tag bloghub.Tag
		if err := rows.Scan(&postID, &tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("error scanning tag: %w", err)
		}
		tags[postID] = append(tags[postID], tag)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// checkMeta verifies title uniqueness and that every reference exists. selfID is the
// post being updated, or zero on create.
func checkMeta(ctx context.Context, tx *sql.Tx, selfID uint64, meta bloghub.PostMeta) error {
	found, err := taken(ctx, tx, `SELECT EXISTS(SELECT 1 FROM posts WHERE title = ? AND id != ?)`, meta.Title, selfID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %s", bloghub.ErrPostExists, meta.Title)
	}

	if !exists(ctx, tx, "authors", meta.AuthorID) {
		return fmt.Errorf("%w: %d", bloghub.ErrAuthorNotFound, meta.AuthorID)
	}

	if meta.CategoryID != 0 && !exists(ctx, tx, "categories", meta.CategoryID) {
		return fmt.Errorf("%w: %d", bloghub.ErrCategoryNotFound, meta.CategoryID)
	}

	for _, tagID := range meta.TagIDs {
		if !exists(ctx, tx, "tags", tagID) {
			return fmt.Errorf("%w: %d", bloghub.ErrTagNotFound, tagID)
		}
	}

	return nil
}

func checkPostExists(ctx context.Context, tx *sql.Tx, id uint64) error {
	if !exists(ctx, tx, "posts", id) {
		return fmt.Errorf("%w: %d", bloghub.ErrPostNotFound, id)
	}
	return nil
}

// taken runs an EXISTS query guarding a unique column.
func taken(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var found bool
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return found, nil
}

func exists(ctx context.Context, tx *sql.Tx, table string, id uint64) bool {
	var found bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`, id).Scan(&found)
	return err == nil && found
}

func insertTags(ctx context.Context, tx *sql.Tx, postID uint64, tagIDs []uint64) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, tagID); err != nil {
			return fmt.Errorf("failed to insert post tag: %w", err)
		}
	}
	return nil
}

func affected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullID(id uint64) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}
