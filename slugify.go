package bloghub

import (
	"strconv"

	"github.com/gosimple/slug"
)

// Slugify transforms a post title into a URL-friendly slug. Non-ASCII characters are
// transliterated, punctuation is dropped and words are joined with hyphens.
func Slugify(title string) string {
	return slug.Make(title)
}

// PostPath returns the public URL path of a post.
func PostPath(id uint64) string {
	return "/posts/" + strconv.FormatUint(id, 10) + "/"
}
