package authz

import (
	"net/url"
	"sync"

	"github.com/execdash/execdash/db"
)

// GuardState is the state of one guarded navigation.
type GuardState string

const (
	GuardLoading     GuardState = "loading"
	GuardAuthorized  GuardState = "authorized"
	GuardRedirecting GuardState = "redirecting"
)

// UnauthenticatedRedirect is where a caller with no resolved role is sent,
// whatever the guard.
const UnauthenticatedRedirect = "/ctod/home"

// Guard restricts a page area to a set of roles.
type Guard struct {
	Name            string
	AllowedRoles    []db.Role
	DefaultRedirect string
}

var (
	// CEOOnly guards the /ceod area.
	CEOOnly = Guard{
		Name:            "ceo_only",
		AllowedRoles:    []db.Role{db.RoleCEO, db.RoleAdmin},
		DefaultRedirect: "/ctod/home",
	}

	// CTOOnly guards the /ctod area.
	CTOOnly = Guard{
		Name:            "cto_only",
		AllowedRoles:    []db.Role{db.RoleCTO, db.RoleAdmin, db.RoleStaff},
		DefaultRedirect: "/ceod/home",
	}
)

// GuardDecision is the settled outcome of a guard.
type GuardDecision struct {
	State      GuardState `json:"state"`
	RedirectTo string     `json:"redirect_to,omitempty"`
	From       string     `json:"from,omitempty"`
}

// Allows reports whether role is in the guard's allowed set.
func (g Guard) Allows(role db.Role) bool {
	for _, r := range g.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Resolve settles the guard for a caller. role is nil when the caller has no
// resolved profile. from is the path that was requested.
func (g Guard) Resolve(role *db.Role, from string) GuardDecision {
	switch {
	case role == nil:
		return GuardDecision{State: GuardRedirecting, RedirectTo: UnauthenticatedRedirect, From: from}
	case g.Allows(*role):
		return GuardDecision{State: GuardAuthorized}
	default:
		return GuardDecision{State: GuardRedirecting, RedirectTo: g.DefaultRedirect, From: from}
	}
}

// Location is the redirect target with the original path carried in ?from=.
func (d GuardDecision) Location() string {
	if d.State != GuardRedirecting {
		return ""
	}
	if d.From == "" {
		return d.RedirectTo
	}
	return d.RedirectTo + "?" + url.Values{"from": {d.From}}.Encode()
}

// GuardRun tracks one navigation through the guard. It starts in loading
// and settles once; later Settle calls return the first decision.
type GuardRun struct {
	guard Guard
	from  string

	mu       sync.Mutex
	decision *GuardDecision
}

// Start begins a guarded navigation to from.
func (g Guard) Start(from string) *GuardRun {
	return &GuardRun{guard: g, from: from}
}

// State is loading until Settle has been called.
func (r *GuardRun) State() GuardState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decision == nil {
		return GuardLoading
	}
	return r.decision.State
}

// Settle records the outcome for the resolved role.
func (r *GuardRun) Settle(role *db.Role) GuardDecision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decision == nil {
		d := r.guard.Resolve(role, r.from)
		r.decision = &d
	}
	return *r.decision
}
