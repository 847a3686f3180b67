package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/store"
)

// DefaultReadTimeout bounds list reads when no timeout is configured.
const DefaultReadTimeout = 10 * time.Second

// CreateResourceInput carries the caller-supplied fields of a new resource.
type CreateResourceInput struct {
	WorkspaceID string                 `json:"workspace_id" binding:"required"`
	Type        db.ResourceType        `json:"type" binding:"required"`
	Title       string                 `json:"title" binding:"required"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	Visibility  db.Visibility          `json:"visibility,omitempty"`
}

// UpdateResourceInput edits title and meta. nil fields are left alone.
type UpdateResourceInput struct {
	Title *string                `json:"title,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// ResourceService is the resource store.
type ResourceService struct {
	identity    *IdentityService
	workspaces  store.WorkspaceRepository
	repo        store.ResourceRepository
	authorizer  authz.Authorizer
	audit       *AuditService
	readTimeout time.Duration
	log         logrus.FieldLogger
}

func NewResourceService(identity *IdentityService, workspaces store.WorkspaceRepository, repo store.ResourceRepository, authorizer authz.Authorizer, audit *AuditService, readTimeout time.Duration, log logrus.FieldLogger) *ResourceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &ResourceService{
		identity:    identity,
		workspaces:  workspaces,
		repo:        repo,
		authorizer:  authorizer,
		audit:       audit,
		readTimeout: readTimeout,
		log:         log.WithField("component", "resource"),
	}
}

// CreateResource inserts a resource owned by the caller in the caller's
// organization and audits "create". Visibility defaults to private. It
// returns nil when the caller has no profile, the input is invalid, the
// workspace is not one of the caller's organization, or the insert fails.
func (s *ResourceService) CreateResource(ctx context.Context, sess *Session, input CreateResourceInput) *db.Resource {
	profile := s.identity.GetCurrentProfile(ctx, sess)
	if profile == nil {
		return nil
	}
	return s.create(ctx, profile, input)
}

func (s *ResourceService) create(ctx context.Context, profile *db.Profile, input CreateResourceInput) *db.Resource {
	if input.Visibility == "" {
		input.Visibility = db.VisibilityPrivate
	}
	title := strings.TrimSpace(input.Title)
	if input.WorkspaceID == "" || title == "" || !input.Type.Valid() || !input.Visibility.Valid() {
		s.log.WithField("user_id", profile.UserID).Warn("Rejected resource with invalid fields")
		return nil
	}

	ws, err := s.workspaces.Get(ctx, input.WorkspaceID)
	if err != nil || ws.OrgID != profile.OrgID {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":      profile.UserID,
			"workspace_id": input.WorkspaceID,
		}).Warn("Rejected resource outside the caller's organization")
		return nil
	}

	res := &db.Resource{
		OrgID:       profile.OrgID,
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Title:       title,
		Meta:        input.Meta,
		Visibility:  input.Visibility,
		CreatedBy:   profile.UserID,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":      profile.UserID,
			"workspace_id": input.WorkspaceID,
		}).Error("Failed to create resource")
		return nil
	}

	s.audit.record(ctx, profile, AuditEntry{
		Action:     db.AuditCreate,
		ResourceID: res.ID,
		Details: map[string]interface{}{
			"type":       res.Type,
			"title":      res.Title,
			"visibility": res.Visibility,
		},
	})
	return res
}

// ListResources returns resources matching filter, most recent first. The
// read is bounded by the service's read timeout; a timeout or an error gives
// an empty slice.
func (s *ResourceService) ListResources(ctx context.Context, filter store.ResourceFilter) []db.Resource {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	resources, err := s.repo.List(ctx, filter)
	if err != nil {
		s.log.WithError(err).Warn("Failed to list resources")
		return []db.Resource{}
	}
	if resources == nil {
		return []db.Resource{}
	}
	return resources
}

// ListVisibleResources lists the resources of the caller's organization
// that the caller may read. filter.Limit caps the readable rows returned.
func (s *ResourceService) ListVisibleResources(ctx context.Context, sess *Session, filter store.ResourceFilter) []db.Resource {
	profile := s.identity.GetCurrentProfile(ctx, sess)
	if profile == nil {
		return []db.Resource{}
	}
	limit := filter.Limit
	filter.OrgID = profile.OrgID
	filter.Limit = 0

	visible := s.authorizer.FilterReadable(ctx, profile, s.ListResources(ctx, filter))
	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}
	return visible
}

// GetResource returns the resource or nil.
func (s *ResourceService) GetResource(ctx context.Context, id string) *db.Resource {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		if !isNotFound(err) {
			s.log.WithError(err).WithField("resource_id", id).Error("Failed to get resource")
		}
		return nil
	}
	return res
}

// UpdateResourceVisibility sets the visibility tag and audits
// "update_visibility". Permission is not checked here.
func (s *ResourceService) UpdateResourceVisibility(ctx context.Context, sess *Session, resourceID string, visibility db.Visibility) bool {
	if !visibility.Valid() {
		return false
	}

	details := map[string]interface{}{"visibility": visibility}
	if before, err := s.repo.Get(ctx, resourceID); err == nil {
		details["previous"] = before.Visibility
	}

	if err := s.repo.UpdateVisibility(ctx, resourceID, visibility); err != nil {
		s.log.WithError(err).WithField("resource_id", resourceID).Error("Failed to update visibility")
		return false
	}

	s.audit.LogAudit(ctx, sess, AuditEntry{
		Action:     db.AuditUpdateVisibility,
		ResourceID: resourceID,
		Details:    details,
	})
	return true
}

// UpdateResource edits title and meta and audits "update". Permission is
// not checked here.
func (s *ResourceService) UpdateResource(ctx context.Context, sess *Session, resourceID string, input UpdateResourceInput) *db.Resource {
	res, err := s.repo.Get(ctx, resourceID)
	if err != nil {
		if !isNotFound(err) {
			s.log.WithError(err).WithField("resource_id", resourceID).Error("Failed to load resource for update")
		}
		return nil
	}

	changed := []string{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil
		}
		res.Title = title
		changed = append(changed, "title")
	}
	if input.Meta != nil {
		res.Meta = input.Meta
		changed = append(changed, "meta")
	}
	if len(changed) == 0 {
		return res
	}

	if err := s.repo.Update(ctx, res); err != nil {
		s.log.WithError(err).WithField("resource_id", resourceID).Error("Failed to update resource")
		return nil
	}

	s.audit.LogAudit(ctx, sess, AuditEntry{
		Action:     db.AuditUpdate,
		ResourceID: resourceID,
		Details:    map[string]interface{}{"fields": changed},
	})
	return res
}

// deleteResource removes a resource row. Used to compensate a failed upload.
func (s *ResourceService) deleteResource(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
