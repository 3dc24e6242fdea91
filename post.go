package bloghub

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Category groups posts. Deleting a category detaches its posts instead of deleting them.
type Category struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Tag labels posts. A post can carry any number of tags.
type Tag struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// TaxonomyCount is a category or tag together with the number of posts using it.
type TaxonomyCount struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"postCount"`
}

// Post represents a blog post
type Post struct {
	ID          uint64    `json:"id"`          // ID is assigned by the store on creation
	Slug        string    `json:"slug"`        // Slug is the URL-friendly version of the title
	Title       string    `json:"title"`       // Title is unique across all posts
	Author      Author    `json:"author"`      // Author is the user who wrote the post
	Category    *Category `json:"category"`    // Category is nil when the post is uncategorized
	Excerpt     string    `json:"excerpt"`     // Excerpt is the markdown summary of the post
	Published   bool      `json:"published"`   // Published is true once the post is visible to readers
	CreatedAt   time.Time `json:"createdAt"`   // CreatedAt is set once when the post is created
	Tags        []Tag     `json:"tags"`        // Tags is the set of tags attached to the post
	Views       int       `json:"views"`       // Views only ever grows
	ReadingTime int       `json:"readingTime"` // ReadingTime is the estimated reading time in minutes
	Featured    bool      `json:"featured"`    // Featured is true if the post is highlighted on the home page
}

// PostMeta holds the editable fields of a post.
type PostMeta struct {
	Title       string   `json:"title" validate:"required,max=255"`
	AuthorID    uint64   `json:"authorId" validate:"required"`
	CategoryID  uint64   `json:"categoryId"` // zero means no category
	Excerpt     string   `json:"excerpt" validate:"required"`
	Published   bool     `json:"published"`
	TagIDs      []uint64 `json:"tagIds"`
	ReadingTime int      `json:"readingTime" validate:"min=0"`
	Featured    bool     `json:"featured"`
}

// Validate normalizes and checks the metadata.
func (pm *PostMeta) Validate() error {
	pm.Title = strings.TrimSpace(pm.Title)
	if err := validate.Struct(pm); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPostMeta, err.Error())
	}

	// Tags are a set
	slices.Sort(pm.TagIDs)
	pm.TagIDs = slices.Compact(pm.TagIDs)

	return nil
}

// Meta returns the editable fields of the post.
func (p *Post) Meta() PostMeta {
	meta := PostMeta{
		Title:       p.Title,
		AuthorID:    p.Author.ID,
		Excerpt:     p.Excerpt,
		Published:   p.Published,
		ReadingTime: p.ReadingTime,
		Featured:    p.Featured,
	}
	if p.Category != nil {
		meta.CategoryID = p.Category.ID
	}
	for _, tag := range p.Tags {
		meta.TagIDs = append(meta.TagIDs, tag.ID)
	}
	return meta
}

// HasCategory returns true if the post belongs to a category
func (p *Post) HasCategory() bool {
	return p.Category != nil
}

// CategoryName returns the category name, or an empty string if the post has no category
func (p *Post) CategoryName() string {
	if !p.HasCategory() {
		return ""
	}
	return p.Category.Name
}

// HasTags returns true if the post has tags
func (p *Post) HasTags() bool {
	return len(p.Tags) > 0
}

// HasTag returns true if the post carries the tag with the given ID
func (p *Post) HasTag(id uint64) bool {
	return slices.ContainsFunc(p.Tags, func(t Tag) bool { return t.ID == id })
}

// TagNames returns the tag names in name order
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.Name)
	}
	slices.Sort(names)
	return names
}

// StatusLabel returns "Published" or "Draft"
func (p *Post) StatusLabel() string {
	if p.Published {
		return "Published"
	}
	return "Draft"
}

// CreatedDate returns the creation date in the format Jan 2, 2006
func (p *Post) CreatedDate() string {
	if p.CreatedAt.IsZero() {
		return ""
	}
	return p.CreatedAt.Format("Jan 2, 2006")
}

func (p *Post) String() string {
	return fmt.Sprintf("%s Published by %s", p.Title, p.Author)
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	c := *p
	if p.Category != nil {
		category := *p.Category
		c.Category = &category
	}
	c.Tags = slices.Clone(p.Tags)
	return &c
}

// SortTags orders tags by name, the default tag ordering.
func SortTags(tags []Tag) {
	slices.SortFunc(tags, func(a, b Tag) int {
		return strings.Compare(a.Name, b.Name)
	})
}
