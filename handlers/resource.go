package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/services"
	"github.com/execdash/execdash/store"
)

// ResourceHandler handles resource requests. Every route checks the caller's
// permission on the resource before calling the service.
type ResourceHandler struct {
	Identity   *services.IdentityService
	Resources  *services.ResourceService
	Authorizer authz.Authorizer
}

func NewResourceHandler(identity *services.IdentityService, resources *services.ResourceService, authorizer authz.Authorizer) *ResourceHandler {
	return &ResourceHandler{Identity: identity, Resources: resources, Authorizer: authorizer}
}

// CreateResource handles POST /api/resources
func (h *ResourceHandler) CreateResource(c *gin.Context) {
	if _, ok := currentProfile(c, h.Identity); !ok {
		return
	}

	var input services.CreateResourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.Resources.CreateResource(c.Request.Context(), sessionFrom(c), input)
	if res == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create resource"})
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListResources handles GET /api/resources
func (h *ResourceHandler) ListResources(c *gin.Context) {
	if _, ok := currentProfile(c, h.Identity); !ok {
		return
	}

	filter, err := resourceFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resources := h.Resources.ListVisibleResources(c.Request.Context(), sessionFrom(c), filter)
	c.JSON(http.StatusOK, gin.H{"resources": resources, "count": len(resources)})
}

func resourceFilterFromQuery(c *gin.Context) (store.ResourceFilter, error) {
	filter := store.ResourceFilter{WorkspaceID: c.Query("workspace_id")}
	if v := c.Query("type"); v != "" {
		t, err := db.ParseResourceType(v)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	if v := c.Query("visibility"); v != "" {
		vis, err := db.ParseVisibility(v)
		if err != nil {
			return filter, err
		}
		filter.Visibility = vis
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	return filter, nil
}

// loadAuthorized loads the :id resource and checks action on it, writing
// the error response when it fails.
func (h *ResourceHandler) loadAuthorized(c *gin.Context, action authz.Action) (*db.Resource, bool) {
	profile, ok := currentProfile(c, h.Identity)
	if !ok {
		return nil, false
	}

	res := h.Resources.GetResource(c.Request.Context(), c.Param("id"))
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return nil, false
	}

	if !h.Authorizer.Check(c.Request.Context(), profile, action, res) {
		// Unreadable resources are reported as missing.
		if action == authz.ActionRead {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		}
		return nil, false
	}
	return res, true
}

// GetResource handles GET /api/resources/:id
func (h *ResourceHandler) GetResource(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionRead)
	if !ok {
		return
	}
	profile, _ := currentProfile(c, h.Identity)
	c.JSON(http.StatusOK, gin.H{
		"resource":   res,
		"permission": h.Authorizer.Permission(c.Request.Context(), profile, res),
	})
}

// UpdateResource handles PATCH /api/resources/:id
func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionWrite)
	if !ok {
		return
	}

	var input services.UpdateResourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := h.Resources.UpdateResource(c.Request.Context(), sessionFrom(c), res.ID, input)
	if updated == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to update resource"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

type updateVisibilityRequest struct {
	Visibility db.Visibility `json:"visibility" binding:"required"`
}

// UpdateVisibility handles PUT /api/resources/:id/visibility
func (h *ResourceHandler) UpdateVisibility(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionChangeVisibility)
	if !ok {
		return
	}

	var req updateVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.Resources.UpdateResourceVisibility(c.Request.Context(), sessionFrom(c), res.ID, req.Visibility) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update visibility"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": res.ID, "visibility": req.Visibility})
}
