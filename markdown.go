package bloghub

import (
	"bytes"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.abhg.dev/goldmark/frontmatter"
)

const wordsPerMinute = 200

// excerptMarkdown renders excerpts. Raw HTML in excerpts is not passed through.
var excerptMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
)

// frontmatterMarkdown parses post files with YAML (---) or TOML (+++) frontmatter.
var frontmatterMarkdown = goldmark.New(
	goldmark.WithExtensions(
		&frontmatter.Extender{},
	),
)

// RenderMarkdown converts markdown to HTML.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := excerptMarkdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// EstimateReadingTime estimates the reading time of the content in whole minutes,
// rounding up. Empty content takes zero minutes.
func EstimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

// ParseMarkdownPost converts a markdown file into a post fixture. The frontmatter holds
// the post fields and the body becomes the excerpt.
func ParseMarkdownPost(content []byte) (PostFixture, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer
	if err := frontmatterMarkdown.Convert(content, &buf, parser.WithContext(ctx)); err != nil {
		return PostFixture{}, fmt.Errorf("failed to convert markdown: %w", err)
	}

	var fixture PostFixture
	data := frontmatter.Get(ctx)
	if data == nil {
		return PostFixture{}, fmt.Errorf("%w: missing frontmatter", ErrInvalidPostMeta)
	}

	if err := data.Decode(&fixture); err != nil {
		return PostFixture{}, fmt.Errorf("failed to decode frontmatter: %w", err)
	}

	fixture.Excerpt = stripFrontmatter(string(content))
	if fixture.ReadingTime == 0 {
		fixture.ReadingTime = EstimateReadingTime(fixture.Excerpt)
	}

	return fixture, nil
}

// stripFrontmatter returns the text after the closing frontmatter delimiter.
func stripFrontmatter(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	for _, delim := range []string{"---", "+++"} {
		if !strings.HasPrefix(content, delim+"\n") && !strings.HasPrefix(content, delim+"\r\n") {
			continue
		}

		rest := content[len(delim):]
		for {
			i := strings.Index(rest, "\n"+delim)
			if i < 0 {
				return ""
			}
			after := rest[i+1+len(delim):]
			if after == "" || after[0] == '\n' || after[0] == '\r' {
				return strings.TrimSpace(after)
			}
			rest = after
		}
	}
	return strings.TrimSpace(content)
}

// ReadMarkdownPosts reads every .md file below dir, in lexical path order, as a post fixture.
func ReadMarkdownPosts(dir string) ([]PostFixture, error) {
	var fixtures []PostFixture
	currentPath := ""

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		currentPath = path

		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		fixture, err := ParseMarkdownPost(content)
		if err != nil {
			return err
		}

		fixtures = append(fixtures, fixture)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", currentPath, err)
	}

	return fixtures, nil
}

// ExcerptHTML renders the excerpt markdown to HTML.
func (p *Post) ExcerptHTML() (string, error) {
	return RenderMarkdown(p.Excerpt)
}
