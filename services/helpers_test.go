package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/storage"
	"github.com/execdash/execdash/store"
)

type testEnv struct {
	mem      *store.MemoryStore
	store    *store.Store
	objects  *storage.MemoryStore
	logHook  *test.Hook
	identity *IdentityService
	audit    *AuditService
	ws       *WorkspaceService
	res      *ResourceService
	acl      *ACLService
	files    *FileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	mem := store.NewMemoryStore()
	s := mem.Store()
	objects := storage.NewMemoryStore()

	identity := NewIdentityService(s.Profiles, logger)
	audit := NewAuditService(identity, s.Audit, nil, logger)
	authorizer := authz.NewStoreAuthorizer(s.ACL, logger)
	ws := NewWorkspaceService(identity, s.Workspaces, nil, logger)
	res := NewResourceService(identity, s.Workspaces, s.Resources, authorizer, audit, 0, logger)
	acl := NewACLService(s.ACL, audit, logger)
	files := NewFileService(identity, ws, res, s.Files, objects, authorizer, audit, 0, logger)

	return &testEnv{
		mem: mem, store: s, objects: objects, logHook: hook,
		identity: identity, audit: audit, ws: ws, res: res, acl: acl, files: files,
	}
}

// login provisions a profile with the given role and returns its session.
func (e *testEnv) login(t *testing.T, userID string, role db.Role) *Session {
	t.Helper()
	sess := &Session{
		UserID:  userID,
		Email:   userID + "@example.com",
		AppMeta: map[string]interface{}{"role": string(role), "org_id": "org-1"},
	}
	require.NotNil(t, e.identity.GetCurrentProfile(context.Background(), sess))
	return sess
}

func (e *testEnv) workspace(t *testing.T, sess *Session, kind db.WorkspaceKind) *db.Workspace {
	t.Helper()
	ws := e.ws.GetOrCreateWorkspace(context.Background(), sess, "org-1", kind, "")
	require.NotNil(t, ws)
	return ws
}

func (e *testEnv) auditActions(t *testing.T) []db.AuditAction {
	t.Helper()
	logs := e.audit.GetAuditLogs(context.Background(), store.AuditFilter{Limit: MaxAuditLimit})
	actions := make([]db.AuditAction, len(logs))
	for i, l := range logs {
		actions[len(logs)-1-i] = l.Action
	}
	return actions
}
