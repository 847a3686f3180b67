package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/internal/metrics"
	"github.com/execdash/execdash/store"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditSink accepts audit rows. Submit must not block the caller for long
// and never reports failure: auditing is best effort.
type AuditSink interface {
	Submit(ctx context.Context, entry db.AuditLog)
}

// RepositorySink writes each row synchronously.
type RepositorySink struct {
	repo store.AuditRepository
	log  logrus.FieldLogger
}

func NewRepositorySink(repo store.AuditRepository, log logrus.FieldLogger) *RepositorySink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RepositorySink{repo: repo, log: log}
}

func (s *RepositorySink) Submit(ctx context.Context, entry db.AuditLog) {
	if err := s.repo.Insert(ctx, &entry); err != nil {
		metrics.AuditWrites.WithLabelValues("failed").Inc()
		s.log.WithError(err).WithField("action", entry.Action).Warn("Failed to write audit log")
		return
	}
	metrics.AuditWrites.WithLabelValues("written").Inc()
}

// AuditEntry is what callers supply; the actor and org come from the session.
type AuditEntry struct {
	Action     db.AuditAction
	ResourceID string
	Details    map[string]interface{}
}

// AuditService records and lists audit rows.
type AuditService struct {
	identity *IdentityService
	repo     store.AuditRepository
	sink     AuditSink
	log      logrus.FieldLogger
}

// NewAuditService creates an AuditService. A nil sink writes through repo.
func NewAuditService(identity *IdentityService, repo store.AuditRepository, sink AuditSink, log logrus.FieldLogger) *AuditService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sink == nil {
		sink = NewRepositorySink(repo, log)
	}
	return &AuditService{identity: identity, repo: repo, sink: sink, log: log}
}

// LogAudit records an action by the session's profile. It does nothing when
// the profile cannot be resolved.
func (s *AuditService) LogAudit(ctx context.Context, sess *Session, entry AuditEntry) {
	profile := s.identity.GetCurrentProfile(ctx, sess)
	if profile == nil {
		return
	}
	s.record(ctx, profile, entry)
}

// record submits an entry for an already-resolved actor.
func (s *AuditService) record(ctx context.Context, actor *db.Profile, entry AuditEntry) {
	if actor == nil || !entry.Action.Valid() {
		return
	}
	s.sink.Submit(ctx, db.AuditLog{
		OrgID:          actor.OrgID,
		ActorProfileID: actor.UserID,
		Action:         entry.Action,
		ResourceID:     entry.ResourceID,
		Details:        entry.Details,
	})
}

// GetAuditLogs lists entries most recent first. filter.Limit defaults to 50
// and is capped at 500. An error yields an empty slice.
func (s *AuditService) GetAuditLogs(ctx context.Context, filter store.AuditFilter) []db.AuditLog {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultAuditLimit
	case filter.Limit > MaxAuditLimit:
		filter.Limit = MaxAuditLimit
	}

	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		s.log.WithError(err).Error("Failed to list audit logs")
		return []db.AuditLog{}
	}
	return logs
}
