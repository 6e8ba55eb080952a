package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/pkg/logging"
)

// Error represents an API error with an explicit status and body
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// Bodies the host's ajax clients understand
const (
	bodyUnknownAction = "0"
	bodyBadNonce      = "-1"
)

var errUnknownAction = NewError(http.StatusBadRequest, bodyUnknownAction)

// statusFor maps domain errors to a status code and plain-text body
func statusFor(err error) (int, string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, bookmark.ErrInvalidNonce):
		return http.StatusForbidden, bodyBadNonce
	case errors.Is(err, bookmark.ErrInvalidPostID):
		return http.StatusBadRequest, "invalid post id"
	case errors.Is(err, bookmark.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, bookmark.ErrStorage):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError writes err as a plain-text response and aborts the chain
func respondError(c *gin.Context, err error) {
	status, body := statusFor(err)

	logger := logging.WithRequestID(requestID(c))
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}

	c.String(status, body)
	c.Abort()
}
