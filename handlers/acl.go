package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/services"
)

// ACLHandler handles grant requests. Only the owner manages grants.
type ACLHandler struct {
	Resources *ResourceHandler
	ACL       *services.ACLService
}

func NewACLHandler(resources *ResourceHandler, acl *services.ACLService) *ACLHandler {
	return &ACLHandler{Resources: resources, ACL: acl}
}

// ListGrants handles GET /api/resources/:id/acl
func (h *ACLHandler) ListGrants(c *gin.Context) {
	res, ok := h.Resources.loadAuthorized(c, authz.ActionManageAccess)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"grants": h.ACL.GetResourceACL(c.Request.Context(), res.ID)})
}

type grantRequest struct {
	GranteeID string `json:"grantee_id" binding:"required"`
	CanRead   *bool  `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
}

// Grant handles POST /api/resources/:id/acl
func (h *ACLHandler) Grant(c *gin.Context) {
	res, ok := h.Resources.loadAuthorized(c, authz.ActionManageAccess)
	if !ok {
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	canRead := true
	if req.CanRead != nil {
		canRead = *req.CanRead
	}

	if !h.ACL.GrantResourceAccess(c.Request.Context(), sessionFrom(c), res.ID, req.GranteeID, canRead, req.CanWrite) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant access"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"resource_id": res.ID,
		"grantee_id":  req.GranteeID,
		"can_read":    canRead,
		"can_write":   req.CanWrite,
	})
}

// Revoke handles DELETE /api/resources/:id/acl/:grantee_id
func (h *ACLHandler) Revoke(c *gin.Context) {
	res, ok := h.Resources.loadAuthorized(c, authz.ActionManageAccess)
	if !ok {
		return
	}

	if !h.ACL.RevokeResourceAccess(c.Request.Context(), sessionFrom(c), res.ID, c.Param("grantee_id")) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access"})
		return
	}
	c.Status(http.StatusNoContent)
}
