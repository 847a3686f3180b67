package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/services"
	"github.com/execdash/execdash/storage"
	"github.com/execdash/execdash/store"
)

// fakeTokens accepts "Bearer <user id>" for users registered with add.
type fakeTokens struct {
	users map[string]*services.SupabaseClaims
}

func (f *fakeTokens) add(userID string, role db.Role) {
	f.users[userID] = &services.SupabaseClaims{
		Email:            userID + "@example.com",
		AppMeta:          map[string]interface{}{"role": string(role), "org_id": "org-1"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
}

func (f *fakeTokens) ExtractTokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", services.ErrMissingAuthHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", services.ErrInvalidAuthHeader
	}
	return token, nil
}

func (f *fakeTokens) ValidateSupabaseToken(_ context.Context, token string) (*services.SupabaseClaims, error) {
	claims, ok := f.users[token]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return claims, nil
}

type handlerEnv struct {
	engine  *gin.Engine
	tokens  *fakeTokens
	store   *store.Store
	objects *storage.MemoryStore
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	s := store.NewMemoryStore().Store()
	objects := storage.NewMemoryStore()
	tokens := &fakeTokens{users: map[string]*services.SupabaseClaims{}}

	identity := services.NewIdentityService(s.Profiles, logger)
	audit := services.NewAuditService(identity, s.Audit, nil, logger)
	authorizer := authz.NewStoreAuthorizer(s.ACL, logger)
	workspaces := services.NewWorkspaceService(identity, s.Workspaces, nil, logger)
	resources := services.NewResourceService(identity, s.Workspaces, s.Resources, authorizer, audit, 0, logger)
	acl := services.NewACLService(s.ACL, audit, logger)
	files := services.NewFileService(identity, workspaces, resources, s.Files, objects, authorizer, audit, 0, logger)

	auth := NewSupabaseAuthMiddleware(tokens, logger)
	guard := NewGuardMiddleware(identity, logger)
	pages := NewPageHandler(identity, workspaces, resources)
	resourceHandler := NewResourceHandler(identity, resources, authorizer)
	aclHandler := NewACLHandler(resourceHandler, acl)
	auditHandler := NewAuditHandler(resourceHandler, audit)
	fileHandler := NewFileHandler(files, 1<<20)

	r := gin.New()
	r.GET("/ceod/*page", auth.OptionalSupabaseAuth(), guard.Require(authz.CEOOnly), pages.Area(db.WorkspaceCEO))
	r.GET("/ctod/*page", auth.OptionalSupabaseAuth(), guard.Require(authz.CTOOnly), pages.Area(db.WorkspaceCTO))

	api := r.Group("/api", auth.SupabaseAuthMiddleware())
	api.GET("/me", NewProfileHandler(identity).GetMe)
	wsHandler := NewWorkspaceHandler(identity, workspaces)
	api.POST("/workspaces", wsHandler.GetOrCreateWorkspace)
	api.GET("/workspaces", wsHandler.ListWorkspaces)
	api.POST("/resources", resourceHandler.CreateResource)
	api.GET("/resources", resourceHandler.ListResources)
	api.GET("/resources/:id", resourceHandler.GetResource)
	api.PATCH("/resources/:id", resourceHandler.UpdateResource)
	api.PUT("/resources/:id/visibility", resourceHandler.UpdateVisibility)
	api.GET("/resources/:id/acl", aclHandler.ListGrants)
	api.POST("/resources/:id/acl", aclHandler.Grant)
	api.DELETE("/resources/:id/acl/:grantee_id", aclHandler.Revoke)
	api.GET("/resources/:id/download", fileHandler.Download)
	api.POST("/files", fileHandler.Upload)
	api.GET("/audit-logs", auditHandler.ListAuditLogs)

	return &handlerEnv{engine: r, tokens: tokens, store: s, objects: objects}
}

func (e *handlerEnv) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+userID)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// createDoc creates a doc through the API and returns its id.
func (e *handlerEnv) createDoc(t *testing.T, userID string, kind db.WorkspaceKind, vis db.Visibility) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/workspaces", userID, gin.H{"kind": kind})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ws db.Workspace
	decode(t, w, &ws)

	w = e.do(http.MethodPost, "/api/resources", userID, gin.H{
		"workspace_id": ws.ID,
		"type":         "doc",
		"title":        "Plan",
		"visibility":   vis,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res db.Resource
	decode(t, w, &res)
	return res.ID
}
