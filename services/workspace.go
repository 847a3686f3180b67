package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/internal/metrics"
	"github.com/execdash/execdash/store"
)

// WorkspaceService is the workspace registry: at most one workspace per
// (org, kind), created on first use.
type WorkspaceService struct {
	identity *IdentityService
	repo     store.WorkspaceRepository
	locker   Locker
	log      logrus.FieldLogger
}

// NewWorkspaceService creates a WorkspaceService. locker may be nil; the
// unique (org_id, kind) constraint alone then settles concurrent creates.
func NewWorkspaceService(identity *IdentityService, repo store.WorkspaceRepository, locker Locker, log logrus.FieldLogger) *WorkspaceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WorkspaceService{
		identity: identity,
		repo:     repo,
		locker:   locker,
		log:      log.WithField("component", "workspace"),
	}
}

// GetOrCreateWorkspace returns the workspace for (orgID, kind), creating it
// owned by the caller if there is none. An existing workspace is returned
// unchanged; name only applies to a new one. It returns nil when creation is
// needed but the caller has no profile, or on storage failure.
func (s *WorkspaceService) GetOrCreateWorkspace(ctx context.Context, sess *Session, orgID string, kind db.WorkspaceKind, name string) *db.Workspace {
	if orgID == "" || !kind.Valid() {
		return nil
	}

	if ws := s.lookup(ctx, orgID, kind); ws != nil || ctx.Err() != nil {
		return ws
	}

	profile := s.identity.GetCurrentProfile(ctx, sess)
	if profile == nil {
		return nil
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, fmt.Sprintf("workspace:%s:%s", orgID, kind))
		if err != nil {
			s.log.WithError(err).Warn("Workspace lock unavailable, relying on unique constraint")
		} else {
			defer release()
			if ws := s.lookup(ctx, orgID, kind); ws != nil {
				return ws
			}
		}
	}

	if strings.TrimSpace(name) == "" {
		name = db.DefaultWorkspaceName(kind)
	}
	ws := &db.Workspace{
		OrgID:          orgID,
		Kind:           kind,
		Name:           name,
		OwnerProfileID: profile.UserID,
	}

	err := s.repo.Create(ctx, ws)
	switch {
	case err == nil:
		s.log.WithFields(logrus.Fields{"org_id": orgID, "kind": kind, "workspace_id": ws.ID}).Info("Created workspace")
		return ws
	case errors.Is(err, store.ErrConflict):
		metrics.WorkspaceConflicts.Inc()
		return s.lookup(ctx, orgID, kind)
	default:
		s.log.WithError(err).WithFields(logrus.Fields{"org_id": orgID, "kind": kind}).Error("Failed to create workspace")
		return nil
	}
}

func (s *WorkspaceService) lookup(ctx context.Context, orgID string, kind db.WorkspaceKind) *db.Workspace {
	ws, err := s.repo.GetByOrgKind(ctx, orgID, kind)
	if err != nil {
		if !isNotFound(err) {
			s.log.WithError(err).WithFields(logrus.Fields{"org_id": orgID, "kind": kind}).Error("Failed to look up workspace")
		}
		return nil
	}
	return ws
}

// ListWorkspaces returns the organization's workspaces, or an empty slice on error.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, orgID string) []db.Workspace {
	workspaces, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		s.log.WithError(err).WithField("org_id", orgID).Error("Failed to list workspaces")
		return []db.Workspace{}
	}
	return workspaces
}
