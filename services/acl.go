package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/store"
)

// ACLService is the access grant ledger. Grants only add access.
type ACLService struct {
	repo  store.ACLRepository
	audit *AuditService
	log   logrus.FieldLogger
}

func NewACLService(repo store.ACLRepository, audit *AuditService, log logrus.FieldLogger) *ACLService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ACLService{repo: repo, audit: audit, log: log.WithField("component", "acl")}
}

// GrantResourceAccess adds a grant row and audits "grant_access". Repeated
// grants add more rows; evaluation ORs them.
func (s *ACLService) GrantResourceAccess(ctx context.Context, sess *Session, resourceID, granteeID string, canRead, canWrite bool) bool {
	if resourceID == "" || granteeID == "" {
		return false
	}

	grant := &db.ResourceACL{
		ResourceID:       resourceID,
		GranteeProfileID: granteeID,
		CanRead:          canRead,
		CanWrite:         canWrite,
	}
	if err := s.repo.Create(ctx, grant); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"resource_id": resourceID,
			"grantee_id":  granteeID,
		}).Error("Failed to grant access")
		return false
	}

	s.audit.LogAudit(ctx, sess, AuditEntry{
		Action:     db.AuditGrantAccess,
		ResourceID: resourceID,
		Details: map[string]interface{}{
			"grantee":   granteeID,
			"can_read":  canRead,
			"can_write": canWrite,
		},
	})
	return true
}

// RevokeResourceAccess removes every grant of granteeID on the resource and
// audits "revoke_access". Revoking a grant that does not exist succeeds.
func (s *ACLService) RevokeResourceAccess(ctx context.Context, sess *Session, resourceID, granteeID string) bool {
	if resourceID == "" || granteeID == "" {
		return false
	}

	removed, err := s.repo.DeleteByGrantee(ctx, resourceID, granteeID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"resource_id": resourceID,
			"grantee_id":  granteeID,
		}).Error("Failed to revoke access")
		return false
	}

	s.audit.LogAudit(ctx, sess, AuditEntry{
		Action:     db.AuditRevokeAccess,
		ResourceID: resourceID,
		Details: map[string]interface{}{
			"grantee": granteeID,
			"removed": removed,
		},
	})
	return true
}

// GetResourceACL lists the grants on a resource, or an empty slice on error.
func (s *ACLService) GetResourceACL(ctx context.Context, resourceID string) []db.ResourceACL {
	grants, err := s.repo.ListByResource(ctx, resourceID)
	if err != nil {
		s.log.WithError(err).WithField("resource_id", resourceID).Error("Failed to list grants")
		return []db.ResourceACL{}
	}
	return grants
}
