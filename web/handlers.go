package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/hypergopher/bloghub"
)

const healthCheckTimeout = 2 * time.Second

// HomePage is the payload of the home page.
type HomePage struct {
	Tagline       string          `json:"tagline"`
	TotalPosts    int             `json:"totalPosts"`
	TotalAuthors  int             `json:"totalAuthors"`
	FeaturedPosts []*bloghub.Post `json:"featuredPosts"`
	Topics        []string        `json:"featuredTopics"`
	Features      []Feature       `json:"features"`
}

// Feature is one highlight on the home page.
type Feature struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AboutPage is the payload of the about page.
type AboutPage struct {
	CompanyName string   `json:"companyName"`
	FoundedYear int      `json:"foundedYear"`
	Mission     string   `json:"mission"`
	TeamSize    int      `json:"teamSize"`
	Values      []string `json:"values"`
}

// ContactPage is the payload of the contact page.
type ContactPage struct {
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	BusinessHours string    `json:"businessHours"`
	Departments   []Contact `json:"departments"`
	SocialMedia   []Contact `json:"socialMedia"`
	Message       string    `json:"message,omitempty"`
}

// Contact is a named e-mail address or link.
type Contact struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ContactForm is a contact form submission.
type ContactForm struct {
	Name    string `form:"name" json:"name" binding:"required,max=100"`
	Email   string `form:"email" json:"email" binding:"required,contains=@"`
	Subject string `form:"subject" json:"subject" binding:"required,max=200"`
	Message string `form:"message" json:"message" binding:"required"`
}

// HealthResponse reports the health of the service and its dependencies.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
}

var features = []Feature{
	{Icon: "✍️", Title: "Easy Publishing", Description: "Write and publish posts effortlessly"},
	{Icon: "🎨", Title: "Beautiful Design", Description: "Professional templates for your content"},
	{Icon: "👥", Title: "Engage Readers", Description: "Build your audience and community"},
	{Icon: "📊", Title: "Analytics", Description: "Track your post performance"},
}

var aboutPage = AboutPage{
	CompanyName: "BlogHub Team",
	FoundedYear: 2025,
	Mission:     "Empowering writers to share their stories with the world",
	TeamSize:    15,
	Values:      []string{"Creativity", "Community", "Quality Content", "Freedom of Expression"},
}

func contactPage() ContactPage {
	return ContactPage{
		Email:         "contact@bloghub.com",
		Phone:         "+1-800-BLOGHUB",
		Address:       "456 Writers Lane, Content City, CC 54321",
		BusinessHours: "Monday - Friday: 9AM - 6PM",
		Departments: []Contact{
			{Name: "IT", URL: "mailto:it@bloghub.com"},
			{Name: "HR", URL: "mailto:hr@bloghub.com"},
			{Name: "Finance", URL: "mailto:finance@bloghub.com"},
			{Name: "Marketing", URL: "mailto:marketing@bloghub.com"},
		},
		SocialMedia: []Contact{
			{Name: "Facebook", URL: "https://www.facebook.com"},
			{Name: "Reddit", URL: "https://www.reddit.com"},
			{Name: "Twitter", URL: "https://www.twitter.com"},
		},
	}
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Version:  s.opts.Version,
		Services: map[string]string{"store": "healthy"},
	}
	status := http.StatusOK

	if _, err := s.blog.Authors(ctx); err != nil {
		s.logger.WarnContext(ctx, "store health check failed", slog.String("error", err.Error()))
		response.Status = "unhealthy"
		response.Services["store"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response)
}

func (s *Server) home(c *gin.Context) {
	stats, err := s.blog.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.render(c, "home", HomePage{
		Tagline:       "Your Platform for Sharing Ideas",
		TotalPosts:    stats.TotalPosts,
		TotalAuthors:  stats.TotalAuthors,
		FeaturedPosts: stats.FeaturedPosts,
		Topics:        stats.Topics,
		Features:      features,
	})
}

func (s *Server) about(c *gin.Context) {
	s.render(c, "about", aboutPage)
}

func (s *Server) contactInfo(c *gin.Context) {
	s.render(c, "contact", contactPage())
}

func (s *Server) submitContact(c *gin.Context) {
	var form ContactForm
	if err := c.ShouldBind(&form); err != nil {
		s.metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		badRequest(c, contactError(err))
		return
	}

	s.logger.InfoContext(c.Request.Context(), "contact form submission",
		slog.String("request_id", GetRequestID(c)),
		slog.String("name", form.Name),
		slog.String("email", form.Email),
		slog.String("subject", form.Subject),
		slog.String("message", form.Message))
	s.metrics.ContactSubmissions.WithLabelValues("accepted").Inc()

	page := contactPage()
	page.Message = "Thank you " + form.Name + "! We received your message and will respond soon."
	s.render(c, "contact", page)
}

// contactError turns binding errors into the message shown to the visitor.
func contactError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Email" && fe.Tag() == "contains" {
				return "Please enter a valid email address."
			}
		}
	}
	return "Please fill in all fields."
}

func (s *Server) posts(c *gin.Context) {
	listing, err := s.blog.Posts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, "posts", listing)
}

func (s *Server) postDetail(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	post, err := s.blog.ViewPost(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.PostViews.Inc()

	excerpt, err := post.ExcerptHTML()
	if err != nil {
		s.fail(c, err)
		return
	}

	s.render(c, "post_detail", gin.H{
		"post":        post,
		"excerptHtml": excerpt,
	})
}

func (s *Server) categoryPosts(c *gin.Context) {
	result, err := s.blog.PostsByCategory(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}

	if result.IsRedirect() {
		s.metrics.CategoryRedirects.Inc()
		c.Redirect(http.StatusFound, "/category/"+url.PathEscape(result.RedirectTo)+"/")
		return
	}

	s.render(c, "category_posts", result.Listing)
}

func (s *Server) searchPosts(c *gin.Context) {
	listing, err := s.blog.SearchPosts(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, "search_results", listing)
}

func (s *Server) authorPosts(c *gin.Context) {
	listing, err := s.blog.PostsByAuthor(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, "author_posts", listing)
}
