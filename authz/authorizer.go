package authz

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/internal/metrics"
	"github.com/execdash/execdash/store"
)

// Authorizer answers permission questions for already-loaded resources.
// Implementations fetch whatever grants they need.
type Authorizer interface {
	// Permission returns the caller's effective permission on res.
	Permission(ctx context.Context, caller *db.Profile, res *db.Resource) Permission

	// Check reports whether the caller may perform action on res.
	Check(ctx context.Context, caller *db.Profile, action Action, res *db.Resource) bool

	// FilterReadable keeps the resources the caller may read.
	FilterReadable(ctx context.Context, caller *db.Profile, resources []db.Resource) []db.Resource
}

// StoreAuthorizer implements Authorizer on top of the grant ledger.
// A grant lookup failure counts as "no grants": the caller keeps what
// ownership and visibility give them and nothing more.
type StoreAuthorizer struct {
	grants store.ACLRepository
	log    logrus.FieldLogger
}

// NewStoreAuthorizer creates a StoreAuthorizer. log may be nil.
func NewStoreAuthorizer(grants store.ACLRepository, log logrus.FieldLogger) *StoreAuthorizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoreAuthorizer{grants: grants, log: log}
}

var _ Authorizer = (*StoreAuthorizer)(nil)

func (a *StoreAuthorizer) Permission(ctx context.Context, caller *db.Profile, res *db.Resource) Permission {
	if caller == nil || res == nil {
		return Permission{}
	}
	if caller.UserID == res.CreatedBy {
		return Evaluate(caller, res, nil)
	}

	grants, err := a.grants.ListByResource(ctx, res.ID)
	if err != nil {
		a.log.WithError(err).WithField("resource_id", res.ID).Warn("Error loading grants")
		grants = nil
	}
	return Evaluate(caller, res, grants)
}

func (a *StoreAuthorizer) Check(ctx context.Context, caller *db.Profile, action Action, res *db.Resource) bool {
	allowed := a.Permission(ctx, caller, res).Allows(action)

	result := "allow"
	if !allowed {
		result = "deny"
		userID, resourceID := "", ""
		if caller != nil {
			userID = caller.UserID
		}
		if res != nil {
			resourceID = res.ID
		}
		a.log.Infof("AUTHZ DENIED - User %s cannot %s resource %s", userID, action, resourceID)
	}
	metrics.AuthzDecisions.WithLabelValues(string(action), result).Inc()
	return allowed
}

func (a *StoreAuthorizer) FilterReadable(ctx context.Context, caller *db.Profile, resources []db.Resource) []db.Resource {
	if caller == nil {
		return []db.Resource{}
	}
	grants, err := a.grants.ListByGrantee(ctx, caller.UserID)
	if err != nil {
		a.log.WithError(err).WithField("user_id", caller.UserID).Warn("Error loading grants for listing")
		grants = nil
	}
	return FilterReadable(caller, resources, grants)
}
