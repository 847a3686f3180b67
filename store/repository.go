// Package store is the data access layer of the core. Repositories only move
// rows; they make no authorization decisions and write no audit entries.
package store

import (
	"context"

	"github.com/execdash/execdash/db"
)

// ProfileRepository handles the profiles table.
type ProfileRepository interface {
	// Get returns ErrNotFound when the user has no profile yet.
	Get(ctx context.Context, userID string) (*db.Profile, error)

	// Create inserts the profile. An existing row for the same user is left
	// untouched and is not an error.
	Create(ctx context.Context, profile *db.Profile) error
}

// WorkspaceRepository handles the workspaces table.
type WorkspaceRepository interface {
	// GetByOrgKind returns the oldest workspace for the pair, or ErrNotFound.
	GetByOrgKind(ctx context.Context, orgID string, kind db.WorkspaceKind) (*db.Workspace, error)

	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*db.Workspace, error)

	// Create returns ErrConflict when a workspace for (org, kind) already exists.
	Create(ctx context.Context, ws *db.Workspace) error

	ListByOrg(ctx context.Context, orgID string) ([]db.Workspace, error)
}

// ResourceFilter narrows a resource listing. Zero-valued fields add no constraint.
type ResourceFilter struct {
	OrgID       string
	WorkspaceID string
	Type        db.ResourceType
	Visibility  db.Visibility
	Limit       int
}

// ResourceRepository handles the resources table.
type ResourceRepository interface {
	Create(ctx context.Context, res *db.Resource) error
	Get(ctx context.Context, id string) (*db.Resource, error)

	// List returns matching resources, most recent first.
	List(ctx context.Context, filter ResourceFilter) ([]db.Resource, error)

	UpdateVisibility(ctx context.Context, id string, visibility db.Visibility) error

	// Update persists Title and Meta. OrgID, WorkspaceID and CreatedBy are never written.
	Update(ctx context.Context, res *db.Resource) error

	Delete(ctx context.Context, id string) error
}

// ACLRepository handles the resource_acl table.
type ACLRepository interface {
	Create(ctx context.Context, grant *db.ResourceACL) error

	// DeleteByGrantee removes every grant of the grantee on the resource and
	// reports how many rows went away. Zero is not an error.
	DeleteByGrantee(ctx context.Context, resourceID, granteeID string) (int64, error)

	ListByResource(ctx context.Context, resourceID string) ([]db.ResourceACL, error)
	ListByGrantee(ctx context.Context, granteeID string) ([]db.ResourceACL, error)
}

// FileRepository handles the files table.
type FileRepository interface {
	Create(ctx context.Context, file *db.File) error
	GetByResource(ctx context.Context, resourceID string) (*db.File, error)
}

// AuditFilter narrows an audit listing. Zero-valued fields add no constraint.
type AuditFilter struct {
	OrgID      string
	ResourceID string
	Action     db.AuditAction
	Limit      int
}

// AuditRepository handles the append-only audit_logs table. It has no update
// or delete.
type AuditRepository interface {
	Insert(ctx context.Context, entry *db.AuditLog) error

	// List returns matching entries, most recent first.
	List(ctx context.Context, filter AuditFilter) ([]db.AuditLog, error)
}

// Store bundles every repository the core needs.
type Store struct {
	Profiles   ProfileRepository
	Workspaces WorkspaceRepository
	Resources  ResourceRepository
	ACL        ACLRepository
	Files      FileRepository
	Audit      AuditRepository
}
