package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/bloghub"
	"github.com/hypergopher/bloghub/sqlitestore"
	"github.com/hypergopher/bloghub/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type page struct {
	Page     string          `json:"page"`
	SiteName string          `json:"siteName"`
	Data     json.RawMessage `json:"data"`
}

func seededStore(t *testing.T) bloghub.Store {
	t.Helper()

	store := bloghub.NewMemoryStore()
	require.NoError(t, store.Init())
	seed(t, store)
	return store
}

func seededSQLiteStore(t *testing.T) bloghub.Store {
	t.Helper()

	db, err := sqlitestore.Open(filepath.Join(t.TempDir(), "bloghub.db"))
	require.NoError(t, err)
	store := sqlitestore.NewSQLiteStore(db)
	require.NoError(t, store.Init())
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	seed(t, store)
	return store
}

func seed(t *testing.T, store bloghub.Store) {
	t.Helper()

	fixtures, err := bloghub.DefaultFixtures()
	require.NoError(t, err)
	_, err = bloghub.Seed(context.Background(), store, fixtures)
	require.NoError(t, err)
}

func setupTestServer(t *testing.T, store bloghub.Store, opts web.Options) *web.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blog, err := bloghub.New(bloghub.Options{Store: store, Logger: logger})
	require.NoError(t, err)

	opts.Logger = logger
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	return web.NewServer(blog, opts)
}

func do(srv http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, srv http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return do(srv, method, target, strings.NewReader(string(data)), "application/json")
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder, data any) page {
	t.Helper()

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	if data != nil {
		require.NoError(t, json.Unmarshal(p.Data, data))
	}
	return p
}

func listingTitles(listing bloghub.Listing) []string {
	titles := make([]string, 0, len(listing.Posts))
	for _, post := range listing.Posts {
		titles = append(titles, post.Title)
	}
	return titles
}

func TestServer_Home(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	var home web.HomePage
	p := decodePage(t, do(srv, http.MethodGet, "/", nil, ""), &home)
	assert.Equal(t, "home", p.Page)
	assert.Equal(t, web.DefaultSiteName, p.SiteName)
	assert.Equal(t, 7, home.TotalPosts)
	assert.Equal(t, 9, home.TotalAuthors)
	assert.Len(t, home.FeaturedPosts, 4)
	assert.Contains(t, home.Topics, "Technology")
	assert.Len(t, home.Features, 4)
}

func TestServer_StaticPages(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{SiteName: "Test Hub"})

	var about web.AboutPage
	p := decodePage(t, do(srv, http.MethodGet, "/about/", nil, ""), &about)
	assert.Equal(t, "about", p.Page)
	assert.Equal(t, "Test Hub", p.SiteName)
	assert.Equal(t, "BlogHub Team", about.CompanyName)

	var contact web.ContactPage
	p = decodePage(t, do(srv, http.MethodGet, "/contact/", nil, ""), &contact)
	assert.Equal(t, "contact", p.Page)
	assert.Equal(t, "contact@bloghub.com", contact.Email)
	assert.Len(t, contact.Departments, 4)
	assert.Empty(t, contact.Message)
}

func TestServer_Posts(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	var listing bloghub.Listing
	p := decodePage(t, do(srv, http.MethodGet, "/posts/", nil, ""), &listing)
	assert.Equal(t, "posts", p.Page)
	assert.Equal(t, bloghub.AllPostsHeading, listing.Heading)
	assert.Equal(t, 7, listing.Count)
}

func TestServer_CategoryPosts(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	w := do(srv, http.MethodGet, "/category/Technology/", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/category/technology/", w.Header().Get("Location"))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().CategoryRedirects))

	w = do(srv, http.MethodGet, "/category/Self-Improvement/", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/category/self-improvement/", w.Header().Get("Location"))

	var listing bloghub.Listing
	p := decodePage(t, do(srv, http.MethodGet, "/category/technology/", nil, ""), &listing)
	assert.Equal(t, "category_posts", p.Page)
	assert.Equal(t, "Technology", listing.Heading)
	assert.Equal(t, []string{"Mastering RESTful APIs", "Getting Started with Django"}, listingTitles(listing))

	decodePage(t, do(srv, http.MethodGet, "/category/travel/", nil, ""), &listing)
	assert.Equal(t, 0, listing.Count)
	assert.Equal(t, "Travel", listing.Heading)
}

func TestServer_SearchPosts(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	cases := []struct {
		query    string
		expected int
	}{
		{"", 7},
		{"django", 1},
		{"DJANGO", 1},
		{"testjames", 1},
		{"nothing matches this", 0},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			var listing bloghub.Listing
			p := decodePage(t, do(srv, http.MethodGet, "/search/?q="+url.QueryEscape(tc.query), nil, ""), &listing)
			assert.Equal(t, "search_results", p.Page)
			assert.Equal(t, tc.expected, listing.Count)
			assert.Equal(t, tc.query, listing.Heading)
		})
	}
}

func TestServer_AuthorPosts(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	var listing bloghub.Listing
	decodePage(t, do(srv, http.MethodGet, "/author/chris-testchris/", nil, ""), &listing)
	assert.Equal(t, "Chris Testchris", listing.Heading)
	assert.Equal(t, []string{"The Power of Side Projects"}, listingTitles(listing))

	decodePage(t, do(srv, http.MethodGet, "/author/chris-chris/", nil, ""), &listing)
	assert.Equal(t, 0, listing.Count)
}

func TestServer_PostDetail(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	var listing bloghub.Listing
	decodePage(t, do(srv, http.MethodGet, "/posts/", nil, ""), &listing)
	target := listing.Posts[0]

	var detail struct {
		Post        bloghub.Post `json:"post"`
		ExcerptHTML string       `json:"excerptHtml"`
	}
	p := decodePage(t, do(srv, http.MethodGet, fmt.Sprintf("/posts/%d/", target.ID), nil, ""), &detail)
	assert.Equal(t, "post_detail", p.Page)
	assert.Equal(t, target.Title, detail.Post.Title)
	assert.Equal(t, target.Views+1, detail.Post.Views)
	assert.True(t, strings.HasPrefix(detail.ExcerptHTML, "<p>"))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().PostViews))

	for _, target := range []string{"/posts/999999/", "/posts/abc/", "/posts/0/"} {
		w := do(srv, http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestServer_Contact(t *testing.T) {
	cases := []struct {
		name     string
		form     url.Values
		status   int
		message  string
		accepted bool
	}{
		{
			name:     "Valid submission",
			form:     url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "subject": {"Hi"}, "message": {"Hello"}},
			status:   http.StatusOK,
			message:  "Thank you Ada! We received your message and will respond soon.",
			accepted: true,
		},
		{
			name:    "Missing field",
			form:    url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "subject": {"Hi"}},
			status:  http.StatusBadRequest,
			message: "Please fill in all fields.",
		},
		{
			name:    "Email without at sign",
			form:    url.Values{"name": {"Ada"}, "email": {"ada.example.com"}, "subject": {"Hi"}, "message": {"Hello"}},
			status:  http.StatusBadRequest,
			message: "Please enter a valid email address.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := setupTestServer(t, seededStore(t), web.Options{})

			w := do(srv, http.MethodPost, "/contact/", strings.NewReader(tc.form.Encode()), "application/x-www-form-urlencoded")
			require.Equal(t, tc.status, w.Code, w.Body.String())

			if tc.accepted {
				var contact web.ContactPage
				decodePage(t, w, &contact)
				assert.Equal(t, tc.message, contact.Message)
				assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().ContactSubmissions.WithLabelValues("accepted")))
				return
			}

			var resp web.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.message, resp.Error)
			assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().ContactSubmissions.WithLabelValues("invalid")))
		})
	}
}

// brokenStore fails every author lookup.
type brokenStore struct {
	bloghub.Store
}

func (brokenStore) ListAuthors(_ context.Context) ([]*bloghub.Author, error) {
	return nil, errors.New("database is locked")
}

func TestServer_Health(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{Version: "1.2.3"})

	w := do(srv, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var health web.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, "healthy", health.Services["store"])

	srv = setupTestServer(t, brokenStore{Store: seededStore(t)}, web.Options{})
	w = do(srv, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy", health.Services["store"])
}

func TestServer_InternalErrorsAreHidden(t *testing.T) {
	srv := setupTestServer(t, brokenStore{Store: seededStore(t)}, web.Options{})

	w := do(srv, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp web.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp.Error)
	assert.NotEmpty(t, resp.RequestID)
}

func TestServer_RequestID(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	req := httptest.NewRequest(http.MethodGet, "/about/", nil)
	req.Header.Set(web.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(web.RequestIDHeader))

	w = do(srv, http.MethodGet, "/about/", nil, "")
	_, err := uuid.Parse(w.Header().Get(web.RequestIDHeader))
	assert.NoError(t, err)
}

func TestServer_Metrics(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	do(srv, http.MethodGet, "/posts/", nil, "")
	do(srv, http.MethodGet, "/posts/", nil, "")
	do(srv, http.MethodGet, "/no-such-page", nil, "")

	m := srv.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/posts/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))

	w := do(srv, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bloghub_http_requests_total")
	assert.Contains(t, w.Body.String(), "bloghub_http_request_duration_seconds")
}

func TestServer_AdminBasicAuth(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{AdminUser: "admin", AdminPassword: "secret"})

	w := do(srv, http.MethodGet, "/admin/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Public pages stay open
	w = do(srv, http.MethodGet, "/posts/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_AdminPosts(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	cases := []struct {
		name      string
		query     string
		total     int
		pageCount int
	}{
		{"Everything", "", 9, 9},
		{"Drafts", "?published=false", 2, 2},
		{"Featured", "?featured=true", 4, 4},
		{"Search", "?q=django", 1, 1},
		{"Last page", "?page=3&size=4", 9, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(srv, http.MethodGet, "/admin/posts"+tc.query, nil, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var paginator bloghub.Paginator
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paginator))
			assert.Equal(t, tc.total, paginator.TotalPosts)
			assert.Len(t, paginator.Posts, tc.pageCount)
		})
	}

	w := do(srv, http.MethodGet, "/admin/posts?size=1000", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AdminPostLifecycle(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	w := do(srv, http.MethodGet, "/admin/authors", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var authors []bloghub.Author
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authors))
	require.NotEmpty(t, authors)

	w = doJSON(t, srv, http.MethodPost, "/admin/categories", map[string]string{"name": "Travel"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category bloghub.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &category))

	meta := bloghub.PostMeta{
		Title:      "Backpacking on a Budget",
		AuthorID:   authors[0].ID,
		CategoryID: category.ID,
		Excerpt:    "Cheap travel tips",
		Published:  true,
	}
	w = doJSON(t, srv, http.MethodPost, "/admin/posts", meta)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post bloghub.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, "backpacking-on-a-budget", post.Slug)

	w = doJSON(t, srv, http.MethodPost, "/admin/posts", meta)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/admin/posts", bloghub.PostMeta{AuthorID: authors[0].ID, Excerpt: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/admin/posts", bloghub.PostMeta{Title: "Ghost", AuthorID: 999999, Excerpt: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var listing bloghub.Listing
	decodePage(t, do(srv, http.MethodGet, "/category/travel/", nil, ""), &listing)
	assert.Equal(t, []string{"Backpacking on a Budget"}, listingTitles(listing))

	meta.Published = false
	w = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/admin/posts/%d", post.ID), meta)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	decodePage(t, do(srv, http.MethodGet, "/category/travel/", nil, ""), &listing)
	assert.Equal(t, 0, listing.Count)

	w = do(srv, http.MethodGet, fmt.Sprintf("/admin/posts/%d", post.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(srv, http.MethodDelete, fmt.Sprintf("/admin/posts/%d", post.ID), nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(srv, http.MethodGet, fmt.Sprintf("/admin/posts/%d", post.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AdminTaxonomies(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	w := do(srv, http.MethodGet, "/admin/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var categories web.TaxonomyPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	assert.Equal(t, 7, categories.Total)
	assert.Equal(t, bloghub.DefaultTaxonomyPageSize, categories.PageSize)
	assert.Len(t, categories.Items, 7)

	w = do(srv, http.MethodGet, "/admin/tags?page=2&size=10", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tags web.TaxonomyPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	assert.Equal(t, 16, tags.Total)
	assert.Equal(t, 2, tags.CurrentPage)
	assert.Len(t, tags.Items, 6)

	cases := []struct {
		name   string
		target string
		body   map[string]string
		status int
	}{
		{"New tag", "/admin/tags", map[string]string{"name": "Go"}, http.StatusCreated},
		{"Duplicate tag", "/admin/tags", map[string]string{"name": "Python"}, http.StatusConflict},
		{"Missing name", "/admin/tags", map[string]string{}, http.StatusBadRequest},
		{"Blank name", "/admin/categories", map[string]string{"name": "   "}, http.StatusBadRequest},
		{"Duplicate category", "/admin/categories", map[string]string{"name": "Technology"}, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodPost, tc.target, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	var technology bloghub.TaxonomyCount
	for _, item := range categories.Items {
		if item.Name == "Technology" {
			technology = item
		}
	}
	require.NotZero(t, technology.ID)

	w = do(srv, http.MethodDelete, fmt.Sprintf("/admin/categories/%d", technology.ID), nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(srv, http.MethodDelete, fmt.Sprintf("/admin/categories/%d", technology.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var listing bloghub.Listing
	decodePage(t, do(srv, http.MethodGet, "/posts/", nil, ""), &listing)
	assert.Equal(t, 7, listing.Count, "posts survive their category")

	w = do(srv, http.MethodDelete, "/admin/tags/999999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AdminCreateAuthor(t *testing.T) {
	srv := setupTestServer(t, seededStore(t), web.Options{})

	author := bloghub.Author{Username: "zoe", FirstName: "Zoe", LastName: "Park", Email: "zoe@example.com"}
	w := doJSON(t, srv, http.MethodPost, "/admin/authors", author)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/admin/authors", author)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/admin/authors", bloghub.Author{Username: "bad", Email: "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_OutOfRangeValues(t *testing.T) {
	stores := []struct {
		name  string
		store func(t *testing.T) bloghub.Store
	}{
		{"Memory", seededStore},
		{"SQLite", seededSQLiteStore},
	}

	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			srv := setupTestServer(t, st.store(t), web.Options{})

			for _, target := range []string{
				"/posts/9223372036854775808/",
				"/posts/18446744073709551615/",
				"/admin/posts/9223372036854775808",
			} {
				w := do(srv, http.MethodGet, target, nil, "")
				assert.Equal(t, http.StatusNotFound, w.Code, target)
			}

			w := do(srv, http.MethodDelete, "/admin/tags/9223372036854775808", nil, "")
			assert.Equal(t, http.StatusNotFound, w.Code)

			w = do(srv, http.MethodGet, "/admin/posts?category=9223372036854775808", nil, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			w = do(srv, http.MethodGet, "/admin/posts?page=9223372036854775807&size=100", nil, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var paginator bloghub.Paginator
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paginator))
			assert.Equal(t, 9, paginator.TotalPosts)
			assert.Empty(t, paginator.Posts)
			assert.Equal(t, 1, paginator.NextPage)
			assert.False(t, paginator.HasNext)

			for _, target := range []string{"/admin/categories", "/admin/tags"} {
				w = do(srv, http.MethodGet, target+"?page=9223372036854775807", nil, "")
				require.Equal(t, http.StatusOK, w.Code, target)
				var taxonomies web.TaxonomyPage
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &taxonomies))
				assert.Empty(t, taxonomies.Items, target)
				assert.Equal(t, math.MaxInt, taxonomies.CurrentPage, target)
			}
		})
	}
}
