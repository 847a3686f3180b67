package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/storage"
	"github.com/execdash/execdash/store"
)

// DefaultSignedURLTTL is the lifetime of a download link.
const DefaultSignedURLTTL = time.Hour

// UploadInput describes one file upload. WorkspaceID, when set, must name a
// workspace of the caller's organization; otherwise the workspace of
// WorkspaceKind is used, created on first upload.
type UploadInput struct {
	WorkspaceKind db.WorkspaceKind
	WorkspaceID   string
	Filename      string
	MIME          string
	Size          int64
	Body          io.Reader
	Visibility    db.Visibility
	Title         string
}

// UploadResult is what a successful upload produced.
type UploadResult struct {
	Resource *db.Resource `json:"resource"`
	File     *db.File     `json:"file"`
}

// FileService stores file bodies and ties them to resources.
type FileService struct {
	identity   *IdentityService
	workspaces *WorkspaceService
	resources  *ResourceService
	files      store.FileRepository
	objects    storage.ObjectStore
	authorizer authz.Authorizer
	audit      *AuditService
	signTTL    time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

func NewFileService(
	identity *IdentityService,
	workspaces *WorkspaceService,
	resources *ResourceService,
	files store.FileRepository,
	objects storage.ObjectStore,
	authorizer authz.Authorizer,
	audit *AuditService,
	signTTL time.Duration,
	log logrus.FieldLogger,
) *FileService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if signTTL <= 0 {
		signTTL = DefaultSignedURLTTL
	}
	return &FileService{
		identity:   identity,
		workspaces: workspaces,
		resources:  resources,
		files:      files,
		objects:    objects,
		authorizer: authorizer,
		audit:      audit,
		signTTL:    signTTL,
		now:        time.Now,
		log:        log.WithField("component", "files"),
	}
}

// Upload writes the body to the workspace bucket, then records the resource
// and the file row, then audits "upload". Steps run in that order; a later
// failure undoes the earlier steps. A storage failure returns *StorageError
// and leaves no resource behind.
func (s *FileService) Upload(ctx context.Context, sess *Session, in UploadInput) (*UploadResult, error) {
	profile := s.identity.GetCurrentProfile(ctx, sess)
	if profile == nil {
		return nil, ErrUnauthenticated
	}
	if in.Body == nil || strings.TrimSpace(in.Filename) == "" {
		return nil, fmt.Errorf("%w: a file is required", ErrInvalidInput)
	}
	if in.Visibility != "" && !in.Visibility.Valid() {
		return nil, fmt.Errorf("%w: visibility %q", ErrInvalidInput, in.Visibility)
	}

	ws, err := s.targetWorkspace(ctx, sess, profile, in)
	if err != nil {
		return nil, err
	}

	bucket := db.BucketForKind(ws.Kind)
	key := storage.ObjectKey(s.now(), in.Filename)
	logger := s.log.WithFields(logrus.Fields{"bucket": bucket, "key": key, "user_id": profile.UserID})

	if err := s.objects.Put(ctx, bucket, key, in.Body, in.Size, in.MIME); err != nil {
		logger.WithError(err).Warn("Upload rejected by storage")
		return nil, newStorageError(err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Filename
	}
	res := s.resources.create(ctx, profile, CreateResourceInput{
		WorkspaceID: ws.ID,
		Type:        db.ResourceFile,
		Title:       title,
		Meta:        map[string]interface{}{"bucket": bucket, "key": key},
		Visibility:  in.Visibility,
	})
	if res == nil {
		s.removeObject(ctx, logger, bucket, key)
		return nil, ErrCreateFailed
	}

	file := &db.File{
		ResourceID: res.ID,
		Bucket:     bucket,
		StorageKey: key,
		SizeBytes:  in.Size,
		MIME:       in.MIME,
	}
	if err := s.files.Create(ctx, file); err != nil {
		logger.WithError(err).Error("Failed to record file metadata, rolling back")
		if err := s.resources.deleteResource(ctx, res.ID); err != nil {
			logger.WithError(err).WithField("resource_id", res.ID).Error("Failed to roll back resource")
		}
		s.removeObject(ctx, logger, bucket, key)
		return nil, ErrCreateFailed
	}

	s.audit.record(ctx, profile, AuditEntry{
		Action:     db.AuditUpload,
		ResourceID: res.ID,
		Details: map[string]interface{}{
			"bucket": bucket,
			"key":    key,
			"size":   in.Size,
			"mime":   in.MIME,
		},
	})
	return &UploadResult{Resource: res, File: file}, nil
}

func (s *FileService) targetWorkspace(ctx context.Context, sess *Session, profile *db.Profile, in UploadInput) (*db.Workspace, error) {
	if in.WorkspaceID != "" {
		for _, ws := range s.workspaces.ListWorkspaces(ctx, profile.OrgID) {
			if ws.ID == in.WorkspaceID {
				return &ws, nil
			}
		}
		return nil, fmt.Errorf("%w: workspace %s", ErrNotFound, in.WorkspaceID)
	}

	if !in.WorkspaceKind.Valid() {
		return nil, fmt.Errorf("%w: workspace kind %q", ErrInvalidInput, in.WorkspaceKind)
	}
	ws := s.workspaces.GetOrCreateWorkspace(ctx, sess, profile.OrgID, in.WorkspaceKind, db.DefaultWorkspaceName(in.WorkspaceKind))
	if ws == nil {
		return nil, ErrCreateFailed
	}
	return ws, nil
}

func (s *FileService) removeObject(ctx context.Context, logger logrus.FieldLogger, bucket, key string) {
	if err := s.objects.Remove(ctx, bucket, key); err != nil {
		logger.WithError(err).Error("Failed to remove orphaned object")
	}
}

// SignedDownloadURL returns a time-limited link to the file body of a
// resource the caller may read, and audits "download".
func (s *FileService) SignedDownloadURL(ctx context.Context, sess *Session, resourceID string) (string, error) {
	profile := s.identity.GetCurrentProfile(ctx, sess)
	if profile == nil {
		return "", ErrUnauthenticated
	}

	res := s.resources.GetResource(ctx, resourceID)
	if res == nil {
		return "", ErrNotFound
	}
	if !s.authorizer.Check(ctx, profile, authz.ActionRead, res) {
		return "", ErrForbidden
	}

	file, err := s.files.GetByResource(ctx, resourceID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		s.log.WithError(err).WithField("resource_id", resourceID).Error("Failed to load file metadata")
		return "", err
	}

	url, err := s.objects.SignedURL(ctx, file.Bucket, file.StorageKey, s.signTTL)
	if err != nil {
		return "", newStorageError(err)
	}

	s.audit.record(ctx, profile, AuditEntry{
		Action:     db.AuditDownload,
		ResourceID: resourceID,
		Details:    map[string]interface{}{"expires_in": int(s.signTTL.Seconds())},
	})
	return url, nil
}
