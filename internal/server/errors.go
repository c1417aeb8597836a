package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/operalab/commesse/internal/ledger/domain"
	storagedomain "github.com/operalab/commesse/internal/storage/domain"
)

// badRequestErrs are validation failures the caller can fix.
var badRequestErrs = []error{
	ledgerdomain.ErrInvalidID,
	ledgerdomain.ErrTitleRequired,
	ledgerdomain.ErrInvalidVoiceType,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrFileNameRequired,
	storagedomain.ErrMissingVoiceID,
	storagedomain.ErrMissingFile,
	storagedomain.ErrNotPDF,
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrFileTooLarge   = errors.New("file_too_large")
)

// ErrorHandlingMiddleware turns the last recorded error into the flat
// `{"error": "..."}` body the API contract uses.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		c.AbortWithStatusJSON(statusOf(lastErr.Err), gin.H{"error": lastErr.Err.Error()})
	}
}

func statusOf(err error) int {
	if errors.Is(err, ledgerdomain.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrFileTooLarge) {
		return http.StatusBadRequest
	}
	for _, sentinel := range badRequestErrs {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
