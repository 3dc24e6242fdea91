package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hypergopher/bloghub"
)

// Page is the envelope of every public response.
type Page struct {
	Page        string `json:"page"`
	SiteName    string `json:"siteName"`
	CurrentYear int    `json:"currentYear"`
	Data        any    `json:"data"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) render(c *gin.Context, name string, data any) {
	c.JSON(http.StatusOK, Page{
		Page:        name,
		SiteName:    s.opts.SiteName,
		CurrentYear: s.now().Year(),
		Data:        data,
	})
}

// statusFor maps store and validation errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bloghub.ErrPostNotFound),
		errors.Is(err, bloghub.ErrAuthorNotFound),
		errors.Is(err, bloghub.ErrCategoryNotFound),
		errors.Is(err, bloghub.ErrTagNotFound):
		return http.StatusNotFound
	case errors.Is(err, bloghub.ErrPostExists),
		errors.Is(err, bloghub.ErrAuthorExists),
		errors.Is(err, bloghub.ErrCategoryExists),
		errors.Is(err, bloghub.ErrTagExists):
		return http.StatusConflict
	case errors.Is(err, bloghub.ErrInvalidPostMeta),
		errors.Is(err, bloghub.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("request_id", GetRequestID(c)),
			slog.String("error", err.Error()))
		msg = http.StatusText(status)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, RequestID: GetRequestID(c)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, RequestID: GetRequestID(c)})
}

// paramID parses the :id path parameter. It responds with 404 and returns false when
// the parameter is not a positive integer that fits in an int64, the widest ID the
// stores hand out.
func paramID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found", RequestID: GetRequestID(c)})
		return 0, false
	}
	return id, true
}
