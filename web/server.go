package web

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hypergopher/bloghub"
)

const DefaultSiteName = "BlogHub"

// Options configures the HTTP layer.
type Options struct {
	Logger        *slog.Logger         // Logger is used for request and handler logs. Default is a debug logger to stderr.
	SiteName      string               // SiteName is included in every page payload. Default is DefaultSiteName.
	Version       string               // Version is reported by the health endpoint.
	AdminUser     string               // AdminUser enables basic auth on /admin when set.
	AdminPassword string               // AdminPassword is the basic auth password for AdminUser.
	Registry      *prometheus.Registry // Registry receives the HTTP metrics. Default is a new registry with Go and process collectors.
}

// Server serves the public pages, the admin API, health and metrics.
type Server struct {
	blog     *bloghub.Blog
	logger   *slog.Logger
	metrics  *Metrics
	registry *prometheus.Registry
	opts     Options
	router   *gin.Engine
	now      func() time.Time
}

// NewServer builds the gin router for blog.
func NewServer(blog *bloghub.Blog, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if opts.SiteName == "" {
		opts.SiteName = DefaultSiteName
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	s := &Server{
		blog:     blog,
		logger:   opts.Logger,
		metrics:  NewMetrics(opts.Registry),
		registry: opts.Registry,
		opts:     opts,
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Metrics returns the collectors updated by the server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(s.metrics.Middleware())
	router.Use(Logger(s.logger))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})))
	router.GET("/health", s.health)

	router.GET("/", s.home)
	router.GET("/about/", s.about)
	router.GET("/contact/", s.contactInfo)
	router.POST("/contact/", s.submitContact)
	router.GET("/posts/", s.posts)
	router.GET("/posts/:id/", s.postDetail)
	router.GET("/category/:name/", s.categoryPosts)
	router.GET("/search/", s.searchPosts)
	router.GET("/author/:name/", s.authorPosts)

	admin := router.Group("/admin")
	if s.opts.AdminUser != "" {
		admin.Use(gin.BasicAuth(gin.Accounts{s.opts.AdminUser: s.opts.AdminPassword}))
	}
	{
		admin.GET("/posts", s.adminPosts)
		admin.POST("/posts", s.adminCreatePost)
		admin.GET("/posts/:id", s.adminGetPost)
		admin.PUT("/posts/:id", s.adminUpdatePost)
		admin.DELETE("/posts/:id", s.adminDeletePost)

		admin.GET("/categories", s.adminCategories)
		admin.POST("/categories", s.adminCreateCategory)
		admin.DELETE("/categories/:id", s.adminDeleteCategory)

		admin.GET("/tags", s.adminTags)
		admin.POST("/tags", s.adminCreateTag)
		admin.DELETE("/tags/:id", s.adminDeleteTag)

		admin.GET("/authors", s.adminAuthors)
		admin.POST("/authors", s.adminCreateAuthor)
	}

	return router
}
