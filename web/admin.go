package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hypergopher/bloghub"
)

// AdminPostsQuery holds the query parameters of the admin post listing.
type AdminPostsQuery struct {
	Page      int    `form:"page" binding:"min=0"`
	Size      int    `form:"size" binding:"min=0,max=100"`
	Published *bool  `form:"published"`
	Featured  *bool  `form:"featured"`
	Category  uint64 `form:"category" binding:"max=9223372036854775807"`
	Author    uint64 `form:"author" binding:"max=9223372036854775807"`
	Tag       uint64 `form:"tag" binding:"max=9223372036854775807"`
	Search    string `form:"q"`
}

// Filter converts the query into an admin filter.
func (q AdminPostsQuery) Filter() bloghub.AdminFilter {
	return bloghub.AdminFilter{
		PageNum:    q.Page,
		PageSize:   q.Size,
		Published:  q.Published,
		Featured:   q.Featured,
		CategoryID: q.Category,
		AuthorID:   q.Author,
		TagID:      q.Tag,
		Search:     q.Search,
	}
}

// TaxonomyPage is one page of categories or tags.
type TaxonomyPage struct {
	Items       []bloghub.TaxonomyCount `json:"items"`
	Total       int                     `json:"total"`
	CurrentPage int                     `json:"currentPage"`
	PageSize    int                     `json:"pageSize"`
}

type pageQuery struct {
	Page int `form:"page" binding:"min=0"`
	Size int `form:"size" binding:"min=0,max=100"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) adminPosts(c *gin.Context) {
	var query AdminPostsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err.Error())
		return
	}

	paginator, err := s.blog.AdminPosts(c.Request.Context(), query.Filter())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paginator)
}

func (s *Server) adminGetPost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	post, err := s.blog.GetPost(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) adminCreatePost(c *gin.Context) {
	var meta bloghub.PostMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		badRequest(c, err.Error())
		return
	}

	post, err := s.blog.CreatePost(c.Request.Context(), meta)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) adminUpdatePost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var meta bloghub.PostMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		badRequest(c, err.Error())
		return
	}

	post, err := s.blog.UpdatePost(c.Request.Context(), id, meta)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) adminDeletePost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := s.blog.DeletePost(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) adminCategories(c *gin.Context) {
	s.listTaxonomy(c, s.blog.Categories)
}

func (s *Server) adminTags(c *gin.Context) {
	s.listTaxonomy(c, s.blog.Tags)
}

func (s *Server) listTaxonomy(c *gin.Context, list func(ctx context.Context, pageNum, pageSize int) ([]bloghub.TaxonomyCount, int, error)) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err.Error())
		return
	}

	items, total, err := list(c.Request.Context(), query.Page, query.Size)
	if err != nil {
		s.fail(c, err)
		return
	}

	page := TaxonomyPage{Items: items, Total: total, CurrentPage: max(query.Page, 1), PageSize: query.Size}
	if page.PageSize < 1 {
		page.PageSize = bloghub.DefaultTaxonomyPageSize
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) adminCreateCategory(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	category, err := s.blog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) adminDeleteCategory(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := s.blog.DeleteCategory(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) adminCreateTag(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tag, err := s.blog.CreateTag(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (s *Server) adminDeleteTag(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := s.blog.DeleteTag(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) adminAuthors(c *gin.Context) {
	authors, err := s.blog.Authors(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (s *Server) adminCreateAuthor(c *gin.Context) {
	var author bloghub.Author
	if err := c.ShouldBindJSON(&author); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := s.blog.CreateAuthor(c.Request.Context(), author)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
