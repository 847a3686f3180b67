package db

import "fmt"

// DefaultOrgID is assigned to profiles whose identity token carries no
// organization. It corresponds to the seed row in the organizations table.
const DefaultOrgID = "00000000-0000-0000-0000-000000000001"

// Object storage buckets, one per workspace kind.
const (
	BucketCTO    = "ctod"
	BucketCEO    = "ceod"
	BucketShared = "shared"
)

// BucketForKind returns the storage bucket that holds files of a workspace kind.
func BucketForKind(kind WorkspaceKind) string {
	switch kind {
	case WorkspaceCTO:
		return BucketCTO
	case WorkspaceCEO:
		return BucketCEO
	default:
		return BucketShared
	}
}

// DefaultWorkspaceName is the name given to a workspace created implicitly,
// e.g. by the first upload into it.
func DefaultWorkspaceName(kind WorkspaceKind) string {
	switch kind {
	case WorkspaceCTO:
		return "CTO Workspace"
	case WorkspaceCEO:
		return "CEO Workspace"
	case WorkspaceShared:
		return "Shared Workspace"
	default:
		return fmt.Sprintf("%s Workspace", kind)
	}
}
