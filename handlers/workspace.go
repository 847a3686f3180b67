package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/services"
)

// WorkspaceHandler handles workspace requests
type WorkspaceHandler struct {
	Identity   *services.IdentityService
	Workspaces *services.WorkspaceService
}

func NewWorkspaceHandler(identity *services.IdentityService, workspaces *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{Identity: identity, Workspaces: workspaces}
}

type getOrCreateWorkspaceRequest struct {
	Kind db.WorkspaceKind `json:"kind" binding:"required"`
	Name string           `json:"name"`
}

// GetOrCreateWorkspace handles POST /api/workspaces
func (h *WorkspaceHandler) GetOrCreateWorkspace(c *gin.Context) {
	profile, ok := currentProfile(c, h.Identity)
	if !ok {
		return
	}

	var req getOrCreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws := h.Workspaces.GetOrCreateWorkspace(c.Request.Context(), sessionFrom(c), profile.OrgID, req.Kind, req.Name)
	if ws == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get or create workspace"})
		return
	}
	c.JSON(http.StatusOK, ws)
}

// ListWorkspaces handles GET /api/workspaces
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	profile, ok := currentProfile(c, h.Identity)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": h.Workspaces.ListWorkspaces(c.Request.Context(), profile.OrgID)})
}
