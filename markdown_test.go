package bloghub_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/bloghub"
)

func TestEstimateReadingTime(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		expected int
	}{
		{"Empty", "", 0},
		{"Whitespace", "  \n\t ", 0},
		{"One word", "hello", 1},
		{"Exactly one minute", strings.Repeat("word ", 200), 1},
		{"Just over one minute", strings.Repeat("word ", 201), 2},
		{"Five minutes", strings.Repeat("word ", 1000), 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, bloghub.EstimateReadingTime(tc.content))
		})
	}
}

func TestRenderMarkdown(t *testing.T) {
	html, err := bloghub.RenderMarkdown("Learn the **fundamentals**")
	require.NoError(t, err)
	assert.Equal(t, "<p>Learn the <strong>fundamentals</strong></p>\n", html)

	post := &bloghub.Post{Excerpt: "A *short* excerpt"}
	html, err = post.ExcerptHTML()
	require.NoError(t, err)
	assert.Equal(t, "<p>A <em>short</em> excerpt</p>\n", html)
}

func TestParseMarkdownPost(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		expected bloghub.PostFixture
	}{
		{
			name: "YAML frontmatter",
			content: "---\ntitle: Hello\nauthor: sarah\ncategory: Technology\npublished: true\ntags: [Go]\n---\n" +
				"Body text here.\n",
			expected: bloghub.PostFixture{
				Title:       "Hello",
				Author:      "sarah",
				Category:    "Technology",
				Excerpt:     "Body text here.",
				Published:   true,
				ReadingTime: 1,
				Tags:        []string{"Go"},
			},
		},
		{
			name:    "TOML frontmatter with reading time",
			content: "+++\ntitle = \"Hello\"\nauthor = \"tom\"\nreading_time = 9\n+++\n\nBody.\n",
			expected: bloghub.PostFixture{
				Title:       "Hello",
				Author:      "tom",
				Excerpt:     "Body.",
				ReadingTime: 9,
			},
		},
		{
			name:    "Empty body",
			content: "---\ntitle: Hello\nauthor: tom\n---\n",
			expected: bloghub.PostFixture{
				Title:  "Hello",
				Author: "tom",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fixture, err := bloghub.ParseMarkdownPost([]byte(tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, fixture)
		})
	}
}

func TestParseMarkdownPost_MissingFrontmatter(t *testing.T) {
	_, err := bloghub.ParseMarkdownPost([]byte("Just a body"))
	assert.ErrorIs(t, err, bloghub.ErrInvalidPostMeta)
}

func TestReadMarkdownPosts(t *testing.T) {
	fixtures, err := bloghub.ReadMarkdownPosts("testdata/posts")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	first := fixtures[0]
	assert.Equal(t, "Getting Started with Go", first.Title)
	assert.Equal(t, "sarah", first.Author)
	assert.Equal(t, "Technology", first.Category)
	assert.Equal(t, "Learn the **fundamentals** of Go.", first.Excerpt)
	assert.True(t, first.Published)
	assert.True(t, first.Featured)
	assert.Equal(t, 1, first.ReadingTime)
	assert.Equal(t, []string{"Python", "Unknown"}, first.Tags)
	assert.Nil(t, first.Views)

	second := fixtures[1]
	assert.Equal(t, "Cooking 101", second.Title)
	assert.Equal(t, "Pasta for beginners.", second.Excerpt)
	assert.Equal(t, 7, second.ReadingTime)
	require.NotNil(t, second.Views)
	assert.Equal(t, 3, *second.Views)

	_, err = bloghub.ReadMarkdownPosts("testdata/missing")
	assert.Error(t, err)
}
