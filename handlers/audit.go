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

// AuditHandler serves the audit trail of the caller's organization.
type AuditHandler struct {
	Resources *ResourceHandler
	Audit     *services.AuditService
}

func NewAuditHandler(resources *ResourceHandler, audit *services.AuditService) *AuditHandler {
	return &AuditHandler{Resources: resources, Audit: audit}
}

// orgWideAuditRoles may read the whole organization's trail. Others must
// name a resource they can read.
var orgWideAuditRoles = map[db.Role]bool{
	db.RoleAdmin: true,
	db.RoleCEO:   true,
	db.RoleCTO:   true,
}

// ListAuditLogs handles GET /api/audit-logs
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	profile, ok := currentProfile(c, h.Resources.Identity)
	if !ok {
		return
	}

	filter := store.AuditFilter{OrgID: profile.OrgID, ResourceID: c.Query("resource_id")}
	if v := c.Query("action"); v != "" {
		action, err := db.ParseAuditAction(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Action = action
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		filter.Limit = n
	}

	if filter.ResourceID != "" {
		res := h.Resources.Resources.GetResource(c.Request.Context(), filter.ResourceID)
		if res == nil || !h.Resources.Authorizer.Check(c.Request.Context(), profile, authz.ActionRead, res) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
			return
		}
	} else if !orgWideAuditRoles[profile.Role] {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	logs := h.Audit.GetAuditLogs(c.Request.Context(), filter)
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs, "count": len(logs)})
}
