package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/services"
	"github.com/execdash/execdash/store"
)

// PageHandler serves the shell descriptors of the dashboard areas. The
// frontend renders panels from the descriptor.
type PageHandler struct {
	Identity   *services.IdentityService
	Workspaces *services.WorkspaceService
	Resources  *services.ResourceService
}

func NewPageHandler(identity *services.IdentityService, workspaces *services.WorkspaceService, resources *services.ResourceService) *PageHandler {
	return &PageHandler{Identity: identity, Workspaces: workspaces, Resources: resources}
}

// areaPanels lists the panels of each dashboard area.
var areaPanels = map[db.WorkspaceKind][]string{
	db.WorkspaceCEO: {"kpis", "campaigns", "board_docs", "shared_with_me"},
	db.WorkspaceCTO: {"uptime", "tasks", "tech_docs", "shared_with_me"},
}

// Area handles GET /ceod/* and /ctod/* for the workspace kind of the area.
func (h *PageHandler) Area(kind db.WorkspaceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, h.Identity)
		if !ok {
			return
		}

		page := strings.Trim(c.Param("page"), "/")
		if page == "" {
			page = "home"
		}

		descriptor := gin.H{
			"area":    strings.ToLower(string(kind)) + "d",
			"page":    page,
			"state":   c.GetString(ctxGuardState),
			"profile": profile,
			"panels":  areaPanels[kind],
		}

		for _, ws := range h.Workspaces.ListWorkspaces(c.Request.Context(), profile.OrgID) {
			if ws.Kind == kind {
				descriptor["workspace"] = ws
				descriptor["resources"] = h.Resources.ListVisibleResources(c.Request.Context(), sessionFrom(c), store.ResourceFilter{
					WorkspaceID: ws.ID,
					Limit:       50,
				})
			}
		}

		c.JSON(http.StatusOK, descriptor)
	}
}
