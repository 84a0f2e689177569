package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/nebula/internal/domain/session"
	"github.com/GriffinCanCode/nebula/internal/domain/tabs"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/storage"
	"github.com/gin-gonic/gin"
)

var (
	errDocumentNotFound = errors.New("tab has no document")
	errInvalidID        = errors.New("invalid id")
	errInvalidRequest   = errors.New("invalid request")
	errBodyTooLarge     = errors.New("request body too large")
)

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tabs.ErrTabNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, errDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, tabs.ErrOffline):
		return http.StatusConflict
	case errors.Is(err, tabs.ErrEmptyAddress),
		errors.Is(err, session.ErrInvalidShortcut),
		errors.Is(err, errInvalidID),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
