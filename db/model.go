package db

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidValue is returned when a string does not name a member of one of
// the closed enumerations below.
var ErrInvalidValue = errors.New("invalid value")

// ===========================
// ENUMERATIONS
// ===========================

// Role is the caller's role inside the organization.
type Role string

const (
	RoleCTO   Role = "cto"
	RoleCEO   Role = "ceo"
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Roles lists every valid role.
var Roles = []Role{RoleCTO, RoleCEO, RoleAdmin, RoleStaff}

func (r Role) Valid() bool {
	switch r {
	case RoleCTO, RoleCEO, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) { return parseEnum("role", s, Role.Valid) }

func (r *Role) UnmarshalText(b []byte) error { return unmarshalEnum(r, "role", b, Role.Valid) }

// Visibility is the audience tag of a resource. Values are mutually exclusive;
// each one widens the audience of the previous one.
type Visibility string

const (
	VisibilityPrivate     Visibility = "private"       // creator only
	VisibilitySharedToCTO Visibility = "shared_to_cto" // cto, admin
	VisibilitySharedToCEO Visibility = "shared_to_ceo" // ceo, admin
	VisibilityOrgPublic   Visibility = "org_public"    // everyone in the org
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilitySharedToCTO, VisibilitySharedToCEO, VisibilityOrgPublic:
		return true
	}
	return false
}

func ParseVisibility(s string) (Visibility, error) {
	return parseEnum("visibility", s, Visibility.Valid)
}

func (v *Visibility) UnmarshalText(b []byte) error {
	return unmarshalEnum(v, "visibility", b, Visibility.Valid)
}

// WorkspaceKind is the role-oriented kind of a workspace.
type WorkspaceKind string

const (
	WorkspaceCTO    WorkspaceKind = "CTO"
	WorkspaceCEO    WorkspaceKind = "CEO"
	WorkspaceShared WorkspaceKind = "SHARED"
)

func (k WorkspaceKind) Valid() bool {
	switch k {
	case WorkspaceCTO, WorkspaceCEO, WorkspaceShared:
		return true
	}
	return false
}

func ParseWorkspaceKind(s string) (WorkspaceKind, error) {
	return parseEnum("workspace kind", s, WorkspaceKind.Valid)
}

func (k *WorkspaceKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(k, "workspace kind", b, WorkspaceKind.Valid)
}

// ResourceType is the kind of content a resource holds.
type ResourceType string

const (
	ResourceFile      ResourceType = "file"
	ResourceDoc       ResourceType = "doc"
	ResourceKPI       ResourceType = "kpi"
	ResourceCampaign  ResourceType = "campaign"
	ResourceNote      ResourceType = "note"
	ResourceTask      ResourceType = "task"
	ResourceDashboard ResourceType = "dashboard"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceFile, ResourceDoc, ResourceKPI, ResourceCampaign, ResourceNote, ResourceTask, ResourceDashboard:
		return true
	}
	return false
}

func ParseResourceType(s string) (ResourceType, error) {
	return parseEnum("resource type", s, ResourceType.Valid)
}

func (t *ResourceType) UnmarshalText(b []byte) error {
	return unmarshalEnum(t, "resource type", b, ResourceType.Valid)
}

// AuditAction is the closed vocabulary of audit_logs.action.
type AuditAction string

const (
	AuditCreate           AuditAction = "create"
	AuditUpdate           AuditAction = "update"
	AuditUpdateVisibility AuditAction = "update_visibility"
	AuditGrantAccess      AuditAction = "grant_access"
	AuditRevokeAccess     AuditAction = "revoke_access"
	AuditUpload           AuditAction = "upload"
	AuditDownload         AuditAction = "download"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditUpdate, AuditUpdateVisibility, AuditGrantAccess, AuditRevokeAccess, AuditUpload, AuditDownload:
		return true
	}
	return false
}

func ParseAuditAction(s string) (AuditAction, error) {
	return parseEnum("audit action", s, AuditAction.Valid)
}

func (a *AuditAction) UnmarshalText(b []byte) error {
	return unmarshalEnum(a, "audit action", b, AuditAction.Valid)
}

func parseEnum[T ~string](name, s string, valid func(T) bool) (T, error) {
	v := T(s)
	if !valid(v) {
		return "", fmt.Errorf("%w: unknown %s %q", ErrInvalidValue, name, s)
	}
	return v, nil
}

func unmarshalEnum[T ~string](dst *T, name string, b []byte, valid func(T) bool) error {
	v, err := parseEnum(name, string(b), valid)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// ===========================
// IDENTITY & WORKSPACES
// ===========================

// Profile is the application identity of an authenticated user.
type Profile struct {
	UserID      string    `json:"user_id"`
	OrgID       string    `json:"org_id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Workspace is a container of resources for one (org, kind) pair.
type Workspace struct {
	ID             string        `json:"id"`
	OrgID          string        `json:"org_id"`
	Kind           WorkspaceKind `json:"kind"`
	Name           string        `json:"name"`
	OwnerProfileID string        `json:"owner_profile_id"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ===========================
// RESOURCES & ACCESS
// ===========================

// Resource is the shareable unit. WorkspaceID never changes after creation.
type Resource struct {
	ID          string                 `json:"id"`
	OrgID       string                 `json:"org_id"`
	WorkspaceID string                 `json:"workspace_id"`
	Type        ResourceType           `json:"type"`
	Title       string                 `json:"title"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	Visibility  Visibility             `json:"visibility"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ResourceACL is an explicit, additive grant on one resource for one profile.
type ResourceACL struct {
	ID               string    `json:"id"`
	ResourceID       string    `json:"resource_id"`
	GranteeProfileID string    `json:"grantee_profile_id"`
	CanRead          bool      `json:"can_read"`
	CanWrite         bool      `json:"can_write"`
	CreatedAt        time.Time `json:"created_at"`
}

// File is the storage metadata of a resource of type file.
type File struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Bucket     string `json:"bucket"`
	StorageKey string `json:"storage_key"`
	SizeBytes  int64  `json:"size_bytes"`
	MIME       string `json:"mime"`
}

// ===========================
// AUDIT
// ===========================

// AuditLog is one append-only audit row. ResourceID is empty when the action
// is not bound to a resource.
type AuditLog struct {
	ID             string                 `json:"id"`
	OrgID          string                 `json:"org_id"`
	ActorProfileID string                 `json:"actor_profile_id"`
	Action         AuditAction            `json:"action"`
	ResourceID     string                 `json:"resource_id,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
