package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/services"
)

// ProfileHandler handles the caller's own profile.
type ProfileHandler struct {
	Identity *services.IdentityService
}

func NewProfileHandler(identity *services.IdentityService) *ProfileHandler {
	return &ProfileHandler{Identity: identity}
}

// GetMe handles GET /api/me
func (h *ProfileHandler) GetMe(c *gin.Context) {
	profile, ok := currentProfile(c, h.Identity)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}
