package bloghub

import (
	"slices"
	"time"
)

// PostRecord is the stored form of a post: references are kept as IDs and resolved
// when the post is read.
type PostRecord struct {
	ID          uint64    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	AuthorID    uint64    `json:"authorId"`
	CategoryID  uint64    `json:"categoryId,omitempty"`
	Excerpt     string    `json:"excerpt"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	TagIDs      []uint64  `json:"tagIds,omitempty"`
	Views       int       `json:"views"`
	ReadingTime int       `json:"readingTime"`
	Featured    bool      `json:"featured"`
}

// NewPostRecord builds the record for a new post.
func NewPostRecord(id uint64, meta PostMeta, createdAt time.Time) PostRecord {
	r := PostRecord{ID: id, CreatedAt: createdAt}
	r.Apply(meta)
	return r
}

// Apply copies the editable fields of meta onto the record.
func (r *PostRecord) Apply(meta PostMeta) {
	r.Slug = Slugify(meta.Title)
	r.Title = meta.Title
	r.AuthorID = meta.AuthorID
	r.CategoryID = meta.CategoryID
	r.Excerpt = meta.Excerpt
	r.Published = meta.Published
	r.TagIDs = slices.Clone(meta.TagIDs)
	r.ReadingTime = meta.ReadingTime
	r.Featured = meta.Featured
}

// HasTag returns true if the record references the tag.
func (r *PostRecord) HasTag(id uint64) bool {
	return slices.Contains(r.TagIDs, id)
}

// RemoveTag drops the tag reference and reports whether it was present.
func (r *PostRecord) RemoveTag(id uint64) bool {
	i := slices.Index(r.TagIDs, id)
	if i < 0 {
		return false
	}
	r.TagIDs = slices.Delete(r.TagIDs, i, i+1)
	return true
}

// Hydrate combines the record with its resolved references into a Post.
func (r *PostRecord) Hydrate(author Author, category *Category, tags []Tag) *Post {
	post := &Post{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Author:      author,
		Excerpt:     r.Excerpt,
		Published:   r.Published,
		CreatedAt:   r.CreatedAt,
		Tags:        slices.Clone(tags),
		Views:       r.Views,
		ReadingTime: r.ReadingTime,
		Featured:    r.Featured,
	}
	if category != nil {
		c := *category
		post.Category = &c
	}
	if post.Tags == nil {
		post.Tags = []Tag{}
	}
	SortTags(post.Tags)
	return post
}
