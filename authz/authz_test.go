package authz

import (
	"testing"

	"github.com/execdash/execdash/db"
)

func profile(id, org string, role db.Role) *db.Profile {
	return &db.Profile{UserID: id, OrgID: org, Role: role}
}

func resource(id, org, owner string, v db.Visibility) *db.Resource {
	return &db.Resource{ID: id, OrgID: org, CreatedBy: owner, Visibility: v}
}

func TestEvaluate_Visibility(t *testing.T) {
	const org = "org-1"

	tests := []struct {
		name      string
		caller    *db.Profile
		res       *db.Resource
		wantRead  bool
		wantWrite bool
	}{
		// Owner
		{"owner reads own private", profile("u1", org, db.RoleStaff), resource("r", org, "u1", db.VisibilityPrivate), true, true},
		{"owner reads own shared_to_ceo", profile("u1", org, db.RoleCTO), resource("r", org, "u1", db.VisibilitySharedToCEO), true, true},

		// Private
		{"admin cannot read private", profile("u2", org, db.RoleAdmin), resource("r", org, "u1", db.VisibilityPrivate), false, false},
		{"ceo cannot read private", profile("u2", org, db.RoleCEO), resource("r", org, "u1", db.VisibilityPrivate), false, false},

		// Shared to CTO
		{"cto reads shared_to_cto", profile("u2", org, db.RoleCTO), resource("r", org, "u1", db.VisibilitySharedToCTO), true, false},
		{"admin reads shared_to_cto", profile("u2", org, db.RoleAdmin), resource("r", org, "u1", db.VisibilitySharedToCTO), true, false},
		{"ceo cannot read shared_to_cto", profile("u2", org, db.RoleCEO), resource("r", org, "u1", db.VisibilitySharedToCTO), false, false},
		{"staff cannot read shared_to_cto", profile("u2", org, db.RoleStaff), resource("r", org, "u1", db.VisibilitySharedToCTO), false, false},

		// Shared to CEO
		{"ceo reads shared_to_ceo", profile("u2", org, db.RoleCEO), resource("r", org, "u1", db.VisibilitySharedToCEO), true, false},
		{"admin reads shared_to_ceo", profile("u2", org, db.RoleAdmin), resource("r", org, "u1", db.VisibilitySharedToCEO), true, false},
		{"cto cannot read shared_to_ceo", profile("u2", org, db.RoleCTO), resource("r", org, "u1", db.VisibilitySharedToCEO), false, false},

		// Org public
		{"staff in org reads org_public", profile("u2", org, db.RoleStaff), resource("r", org, "u1", db.VisibilityOrgPublic), true, false},
		{"other org cannot read org_public", profile("u2", "org-2", db.RoleAdmin), resource("r", org, "u1", db.VisibilityOrgPublic), false, false},

		// Missing inputs
		{"nil caller", nil, resource("r", org, "u1", db.VisibilityOrgPublic), false, false},
		{"nil resource", profile("u1", org, db.RoleAdmin), nil, false, false},
		{"empty caller id is not the owner", profile("", org, db.RoleCEO), resource("r", org, "", db.VisibilityPrivate), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.caller, tt.res, nil)
			if got.Read != tt.wantRead {
				t.Errorf("Evaluate().Read = %v, want %v", got.Read, tt.wantRead)
			}
			if got.Write != tt.wantWrite {
				t.Errorf("Evaluate().Write = %v, want %v", got.Write, tt.wantWrite)
			}
		})
	}
}

func TestEvaluate_GrantsAreAdditive(t *testing.T) {
	res := resource("r1", "org-1", "owner", db.VisibilityPrivate)
	cto := profile("cto", "org-1", db.RoleCTO)

	tests := []struct {
		name      string
		acl       []db.ResourceACL
		wantRead  bool
		wantWrite bool
	}{
		{"no grants", nil, false, false},
		{"read grant", []db.ResourceACL{{ResourceID: "r1", GranteeProfileID: "cto", CanRead: true}}, true, false},
		{"write-only grant", []db.ResourceACL{{ResourceID: "r1", GranteeProfileID: "cto", CanWrite: true}}, false, true},
		{
			"duplicate rows are OR-ed",
			[]db.ResourceACL{
				{ResourceID: "r1", GranteeProfileID: "cto", CanRead: true},
				{ResourceID: "r1", GranteeProfileID: "cto", CanWrite: true},
			},
			true, true,
		},
		{"grant for someone else", []db.ResourceACL{{ResourceID: "r1", GranteeProfileID: "ceo", CanRead: true, CanWrite: true}}, false, false},
		{"grant on another resource", []db.ResourceACL{{ResourceID: "r2", GranteeProfileID: "cto", CanRead: true}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(cto, res, tt.acl)
			if got.Read != tt.wantRead || got.Write != tt.wantWrite {
				t.Errorf("Evaluate() = %+v, want read=%v write=%v", got, tt.wantRead, tt.wantWrite)
			}
		})
	}
}

func TestEvaluate_GrantNeverTakesAwayVisibility(t *testing.T) {
	res := resource("r1", "org-1", "owner", db.VisibilityOrgPublic)
	staff := profile("s", "org-1", db.RoleStaff)
	acl := []db.ResourceACL{{ResourceID: "r1", GranteeProfileID: "s", CanRead: false, CanWrite: false}}

	if !CanRead(staff, res, acl) {
		t.Error("CanRead() = false, want true: a grant row must not reduce access")
	}
}

func TestWriteGrantDoesNotTransferOwnership(t *testing.T) {
	res := resource("r1", "org-1", "ceo", db.VisibilityPrivate)
	cto := profile("cto", "org-1", db.RoleCTO)
	acl := []db.ResourceACL{{ResourceID: "r1", GranteeProfileID: "cto", CanWrite: true}}

	if !CanWrite(cto, res, acl) {
		t.Error("CanWrite() = false, want true")
	}
	if CanChangeVisibility(cto, res) {
		t.Error("CanChangeVisibility() = true, want false")
	}
	if CanManageAccess(cto, res) {
		t.Error("CanManageAccess() = true, want false")
	}
	if !CanChangeVisibility(profile("ceo", "org-1", db.RoleCEO), res) {
		t.Error("owner should be able to change visibility")
	}
}

func TestPermission_Allows(t *testing.T) {
	tests := []struct {
		name   string
		perm   Permission
		action Action
		want   bool
	}{
		{"owner can manage", Permission{Owner: true, Read: true, Write: true}, ActionManageAccess, true},
		{"writer can write", Permission{Read: true, Write: true}, ActionWrite, true},
		{"writer cannot change visibility", Permission{Read: true, Write: true}, ActionChangeVisibility, false},
		{"reader cannot write", Permission{Read: true}, ActionWrite, false},
		{"unknown action", Permission{Owner: true, Read: true, Write: true}, Action("delete"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.perm.Allows(tt.action); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterReadable(t *testing.T) {
	ceo := profile("ceo", "org-1", db.RoleCEO)
	resources := []db.Resource{
		*resource("a", "org-1", "ceo", db.VisibilityPrivate),
		*resource("b", "org-1", "cto", db.VisibilityPrivate),
		*resource("c", "org-1", "cto", db.VisibilitySharedToCEO),
		*resource("d", "org-1", "cto", db.VisibilitySharedToCTO),
		*resource("e", "org-1", "cto", db.VisibilityPrivate),
	}
	grants := []db.ResourceACL{{ResourceID: "e", GranteeProfileID: "ceo", CanRead: true}}

	got := FilterReadable(ceo, resources, grants)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	want := []string{"a", "c", "e"}
	if len(ids) != len(want) {
		t.Fatalf("FilterReadable() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("FilterReadable()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}
