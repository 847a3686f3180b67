// Package authz decides what a profile may do with a resource and which
// pages a role may open. Evaluate is pure; Authorizer adds the grant lookup.
package authz

import (
	"github.com/execdash/execdash/db"
)

// Action is an operation checked against a resource.
type Action string

const (
	ActionRead             Action = "read"
	ActionWrite            Action = "write"
	ActionChangeVisibility Action = "change_visibility"
	ActionManageAccess     Action = "manage_access"
)

// Permission is the effective access of one profile on one resource.
type Permission struct {
	Owner bool `json:"owner"`
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// Allows reports whether the permission covers the action. Changing
// visibility and managing grants stay with the owner; a write grant never
// carries them.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	case ActionChangeVisibility, ActionManageAccess:
		return p.Owner
	default:
		return false
	}
}

// VisibilityAudience maps the role-targeted visibilities to the roles that
// may read them. VisibilityPrivate has no audience and VisibilityOrgPublic
// is decided by organization, not role.
var VisibilityAudience = map[db.Visibility]map[db.Role]bool{
	db.VisibilityPrivate: {},
	db.VisibilitySharedToCTO: {
		db.RoleCTO:   true,
		db.RoleAdmin: true,
	},
	db.VisibilitySharedToCEO: {
		db.RoleCEO:   true,
		db.RoleAdmin: true,
	},
}

// visibleTo reports whether the visibility tag alone lets the caller read.
func visibleTo(caller *db.Profile, res *db.Resource) bool {
	if res.Visibility == db.VisibilityOrgPublic {
		return caller.OrgID != "" && caller.OrgID == res.OrgID
	}
	return VisibilityAudience[res.Visibility][caller.Role]
}

// Evaluate computes the caller's permission on res from ownership, the
// visibility tag and the explicit grants. Grants are additive: rows for
// other resources or other grantees are ignored, matching rows are OR-ed.
// Write comes only from ownership or a can_write grant.
func Evaluate(caller *db.Profile, res *db.Resource, acl []db.ResourceACL) Permission {
	if caller == nil || res == nil || caller.UserID == "" {
		return Permission{}
	}

	if caller.UserID == res.CreatedBy {
		return Permission{Owner: true, Read: true, Write: true}
	}

	var perm Permission
	perm.Read = visibleTo(caller, res)

	for _, grant := range acl {
		if grant.ResourceID != res.ID || grant.GranteeProfileID != caller.UserID {
			continue
		}
		perm.Read = perm.Read || grant.CanRead
		perm.Write = perm.Write || grant.CanWrite
	}
	return perm
}

// CanRead is Evaluate(...).Read.
func CanRead(caller *db.Profile, res *db.Resource, acl []db.ResourceACL) bool {
	return Evaluate(caller, res, acl).Read
}

func CanWrite(caller *db.Profile, res *db.Resource, acl []db.ResourceACL) bool {
	return Evaluate(caller, res, acl).Write
}

// CanChangeVisibility requires ownership.
func CanChangeVisibility(caller *db.Profile, res *db.Resource) bool {
	return Evaluate(caller, res, nil).Owner
}

// CanManageAccess requires ownership.
func CanManageAccess(caller *db.Profile, res *db.Resource) bool {
	return Evaluate(caller, res, nil).Owner
}

// FilterReadable keeps the resources the caller may read, preserving order.
// grants may hold rows for any resource; only the caller's rows count.
func FilterReadable(caller *db.Profile, resources []db.Resource, grants []db.ResourceACL) []db.Resource {
	byResource := make(map[string][]db.ResourceACL)
	for _, g := range grants {
		byResource[g.ResourceID] = append(byResource[g.ResourceID], g)
	}

	out := make([]db.Resource, 0, len(resources))
	for i := range resources {
		if CanRead(caller, &resources[i], byResource[resources[i].ID]) {
			out = append(out, resources[i])
		}
	}
	return out
}
