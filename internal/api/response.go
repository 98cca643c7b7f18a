package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// Response is the envelope of every resource endpoint
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

var notFoundMessages = map[string]string{
	"task": "Task not found",
	"user": "User not found",
}

// StatusCode maps an error to its HTTP status and envelope message
func StatusCode(err error) (int, string) {
	var validationErr *zerrors.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	var notFoundErr *zerrors.NotFoundError
	if errors.As(err, &notFoundErr) {
		if msg, ok := notFoundMessages[notFoundErr.Resource]; ok {
			return http.StatusNotFound, msg
		}
		return http.StatusNotFound, "Not found"
	}

	if zerrors.IsConflict(err) {
		return http.StatusBadRequest, "email must be unique"
	}

	return http.StatusInternalServerError, "Server error"
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Message: message, Data: data})
}

// fail writes the envelope for err; data is always null
func (h *Handlers) fail(c *gin.Context, err error) {
	status, message := StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	_ = c.Error(err)
	respond(c, status, message, nil)
}

// bindBody decodes the JSON body into obj. An empty body leaves obj at its
// zero value so the required-field checks report what is missing.
func bindBody(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return zerrors.NewValidationErrorWithCause("body", nil, "invalid request body", err)
	}
	return nil
}

// project renders items through p, or returns them unchanged without one
func project[T query.Documenter](items []T, p *query.Projection) any {
	if p == nil {
		return items
	}
	out := make([]query.Document, 0, len(items))
	for _, item := range items {
		out = append(out, p.Apply(item.Document()))
	}
	return out
}

func projectOne(item query.Documenter, p *query.Projection) any {
	if p == nil {
		return item
	}
	return p.Apply(item.Document())
}
