package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/services"
)

// currentProfile resolves the caller's profile once per request and writes
// 401 when there is none.
func currentProfile(c *gin.Context, identity *services.IdentityService) (*db.Profile, bool) {
	if v, ok := c.Get(ctxProfile); ok {
		if p, ok := v.(*db.Profile); ok && p != nil {
			return p, true
		}
	}
	p := identity.GetCurrentProfile(c.Request.Context(), sessionFrom(c))
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	c.Set(ctxProfile, p)
	return p, true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var storageErr *services.StorageError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, db.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.As(err, &storageErr):
		switch storageErr.Reason {
		case services.StoragePermission:
			return http.StatusForbidden
		case services.StorageIntegrity:
			return http.StatusConflict
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// wantsJSON reports whether the client asked for JSON rather than a page.
func wantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
