package bloghub

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Listing is a filtered view over a post collection. Posts keep the order of the
// collection they were selected from.
type Listing struct {
	Posts   []*Post `json:"posts"`
	Count   int     `json:"count"`
	Heading string  `json:"heading"` // Heading is the display form of the criterion
}

// CategoryResult is the outcome of a category filter. When RedirectTo is set the
// requested name was not in canonical (lowercase) form, no filtering happened, and the
// caller should send the client to RedirectTo instead.
type CategoryResult struct {
	Listing
	RedirectTo string `json:"redirectTo,omitempty"`
}

// IsRedirect returns true if the caller must redirect to the canonical category name.
func (cr CategoryResult) IsRedirect() bool {
	return cr.RedirectTo != ""
}

func newListing(posts []*Post, heading string) Listing {
	if posts == nil {
		posts = []*Post{}
	}
	return Listing{Posts: posts, Count: len(posts), Heading: heading}
}

// CanonicalCategory returns the lowercase form of a category name and whether the name
// was already in that form.
func CanonicalCategory(name string) (string, bool) {
	lower := strings.ToLower(name)
	return lower, lower == name
}

// FilterByCategory selects the posts whose category name, lowercased, equals name.
// Posts without a category never match.
func FilterByCategory(posts []*Post, name string) CategoryResult {
	canonical, ok := CanonicalCategory(name)
	if !ok {
		return CategoryResult{RedirectTo: canonical}
	}

	var matches []*Post
	for _, post := range posts {
		if !post.HasCategory() {
			continue
		}
		if strings.ToLower(post.Category.Name) == name {
			matches = append(matches, post)
		}
	}

	return CategoryResult{Listing: newListing(matches, TitleCase(name))}
}

// FilterByQuery selects the posts where query is a case-insensitive substring of the
// title, excerpt, category name, or the author's first or last name. An empty query
// selects every post.
func FilterByQuery(posts []*Post, query string) Listing {
	if query == "" {
		return newListing(posts, query)
	}

	q := strings.ToLower(query)
	var matches []*Post
	for _, post := range posts {
		if postMatchesQuery(post, q) {
			matches = append(matches, post)
		}
	}

	return newListing(matches, query)
}

func postMatchesQuery(post *Post, q string) bool {
	fields := []string{
		post.Title,
		post.Excerpt,
		post.Author.FirstName,
		post.Author.LastName,
	}
	if post.HasCategory() {
		fields = append(fields, post.Category.Name)
	}

	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// AuthorSlug converts a human-readable author name ("Sarah Johnson") into the slug form
// used for matching ("sarah-johnson").
func AuthorSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// AuthorHeading converts an author name or slug into its display form.
func AuthorHeading(name string) string {
	return TitleCase(strings.ReplaceAll(name, "-", " "))
}

// FilterByAuthor selects the posts whose author slug equals the slug of name.
func FilterByAuthor(posts []*Post, name string) Listing {
	target := AuthorSlug(name)

	var matches []*Post
	for _, post := range posts {
		if post.Author.Slug() == target {
			matches = append(matches, post)
		}
	}

	return newListing(matches, AuthorHeading(name))
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}
