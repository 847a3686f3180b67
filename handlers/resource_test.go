package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/store"
)

func TestAPI_RequiresToken(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/me", "unknown", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileHandler_GetMe(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)

	w := env.do(http.MethodGet, "/api/me", "cto-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p db.Profile
	decode(t, w, &p)
	assert.Equal(t, "cto-1", p.UserID)
	assert.Equal(t, db.RoleCTO, p.Role)
	assert.Equal(t, "org-1", p.OrgID)
}

func TestWorkspaceHandler_GetOrCreateIsIdempotent(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)

	var first, second db.Workspace
	decode(t, env.do(http.MethodPost, "/api/workspaces", "cto-1", gin.H{"kind": "CTO"}), &first)
	decode(t, env.do(http.MethodPost, "/api/workspaces", "cto-1", gin.H{"kind": "CTO", "name": "Other"}), &second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "CTO Workspace", first.Name)

	w := env.do(http.MethodPost, "/api/workspaces", "cto-1", gin.H{"kind": "cfo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResourceHandler_VisibilityScopesReads(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)
	env.tokens.add("ceo-1", db.RoleCEO)
	env.tokens.add("staff-1", db.RoleStaff)

	id := env.createDoc(t, "cto-1", db.WorkspaceCTO, db.VisibilityPrivate)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/resources/"+id, "ceo-1", nil).Code)

	// Only the owner may change visibility.
	w := env.do(http.MethodPut, "/api/resources/"+id+"/visibility", "ceo-1", gin.H{"visibility": "org_public"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, "/api/resources/"+id+"/visibility", "cto-1", gin.H{"visibility": "shared_to_ceo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/resources/"+id, "ceo-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Permission struct {
			Read  bool `json:"read"`
			Write bool `json:"write"`
		} `json:"permission"`
	}
	decode(t, w, &body)
	assert.True(t, body.Permission.Read)
	assert.False(t, body.Permission.Write)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/resources/"+id, "staff-1", nil).Code)

	var list struct {
		Count int `json:"count"`
	}
	decode(t, env.do(http.MethodGet, "/api/resources", "staff-1", nil), &list)
	assert.Equal(t, 0, list.Count)
	decode(t, env.do(http.MethodGet, "/api/resources?visibility=shared_to_ceo", "ceo-1", nil), &list)
	assert.Equal(t, 1, list.Count)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/resources?type=video", "ceo-1", nil).Code)
}

func TestResourceHandler_LimitCountsVisibleRows(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)
	env.tokens.add("staff-1", db.RoleStaff)

	public := env.createDoc(t, "cto-1", db.WorkspaceCTO, db.VisibilityOrgPublic)
	env.createDoc(t, "cto-1", db.WorkspaceCTO, db.VisibilityPrivate)

	var list struct {
		Resources []db.Resource `json:"resources"`
		Count     int           `json:"count"`
	}
	decode(t, env.do(http.MethodGet, "/api/resources?limit=1", "staff-1", nil), &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, public, list.Resources[0].ID)

	decode(t, env.do(http.MethodGet, "/api/resources?limit=1", "cto-1", nil), &list)
	require.Equal(t, 1, list.Count)
	assert.NotEqual(t, public, list.Resources[0].ID)
}

func TestResourceHandler_UpdateNeedsWrite(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)
	env.tokens.add("staff-1", db.RoleStaff)

	id := env.createDoc(t, "cto-1", db.WorkspaceCTO, db.VisibilityOrgPublic)

	w := env.do(http.MethodPatch, "/api/resources/"+id, "staff-1", gin.H{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/resources/"+id+"/acl", "cto-1", gin.H{"grantee_id": "staff-1", "can_write": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodPatch, "/api/resources/"+id, "staff-1", gin.H{"title": "Edited"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res db.Resource
	decode(t, w, &res)
	assert.Equal(t, "Edited", res.Title)
	assert.Equal(t, "cto-1", res.CreatedBy)

	// A write grant does not give ownership.
	w = env.do(http.MethodPut, "/api/resources/"+id+"/visibility", "staff-1", gin.H{"visibility": "private"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/resources/"+id+"/acl", "staff-1", nil).Code)
}

func TestACLHandler_GrantAndRevoke(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("ceo-1", db.RoleCEO)
	env.tokens.add("staff-1", db.RoleStaff)

	id := env.createDoc(t, "ceo-1", db.WorkspaceCEO, db.VisibilityPrivate)

	// Grantees must have a profile.
	assert.Equal(t, http.StatusInternalServerError, env.do(http.MethodPost, "/api/resources/"+id+"/acl", "ceo-1", gin.H{"grantee_id": "staff-1"}).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/me", "staff-1", nil).Code)

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/resources/"+id+"/acl", "ceo-1", gin.H{"grantee_id": "staff-1"}).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/resources/"+id, "staff-1", nil).Code)

	var grants struct {
		Grants []db.ResourceACL `json:"grants"`
	}
	decode(t, env.do(http.MethodGet, "/api/resources/"+id+"/acl", "ceo-1", nil), &grants)
	require.Len(t, grants.Grants, 1)
	assert.True(t, grants.Grants[0].CanRead)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/resources/"+id+"/acl/staff-1", "ceo-1", nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/resources/"+id+"/acl/staff-1", "ceo-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/resources/"+id, "staff-1", nil).Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/resources/"+id+"/acl", "ceo-1", gin.H{}).Code)
}

func TestAuditHandler_Policy(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("ceo-1", db.RoleCEO)
	env.tokens.add("staff-1", db.RoleStaff)

	id := env.createDoc(t, "ceo-1", db.WorkspaceCEO, db.VisibilityPrivate)

	var logs struct {
		AuditLogs []db.AuditLog `json:"audit_logs"`
	}
	w := env.do(http.MethodGet, "/api/audit-logs", "ceo-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &logs)
	require.Len(t, logs.AuditLogs, 1)
	assert.Equal(t, db.AuditCreate, logs.AuditLogs[0].Action)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/audit-logs", "staff-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/audit-logs?resource_id="+id, "staff-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/audit-logs?action=delete", "ceo-1", nil).Code)

	env.do(http.MethodPost, "/api/resources/"+id+"/acl", "ceo-1", gin.H{"grantee_id": "staff-1"})
	w = env.do(http.MethodGet, "/api/audit-logs?resource_id="+id, "staff-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &logs)
	assert.Len(t, logs.AuditLogs, 2)
}

func TestFileHandler_UploadAndDownload(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)
	env.tokens.add("ceo-1", db.RoleCEO)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("workspace_kind", "CTO"))
	require.NoError(t, mw.WriteField("visibility", "shared_to_ceo"))
	part, err := mw.CreateFormFile("file", "roadmap.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer cto-1")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Resource db.Resource `json:"resource"`
		File     db.File     `json:"file"`
	}
	decode(t, w, &result)
	assert.Equal(t, db.ResourceFile, result.Resource.Type)
	assert.Equal(t, "roadmap.pdf", result.Resource.Title)
	assert.Equal(t, 1, env.objects.Len())

	w = env.do(http.MethodGet, "/api/resources/"+result.Resource.ID+"/download", "ceo-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dl map[string]string
	decode(t, w, &dl)
	assert.Contains(t, dl["url"], result.File.StorageKey)

	logs, err := env.store.Audit.List(context.Background(), store.AuditFilter{Action: db.AuditDownload})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestFileHandler_UploadWithoutFile(t *testing.T) {
	env := newHandlerEnv(t)
	env.tokens.add("cto-1", db.RoleCTO)

	w := env.do(http.MethodPost, "/api/files", "cto-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
