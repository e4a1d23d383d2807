// Package remote defines the hosting-provider surface the pipeline depends
// on. Implementations exist for GitHub and GitLab.
package remote

import (
	"gitbridge/pkg/util/context"
)

// ProjectInfo describes a hosted repository.
type ProjectInfo struct {
	ID            string
	Path          string
	DefaultBranch string
	CloneURL      string
}

// Branch is a remote branch head.
type Branch struct {
	Name string
	SHA  string
}

// MergeRequestSpec are the inputs for opening a merge/pull request.
type MergeRequestSpec struct {
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
}

// MergeRequestInfo identifies a created merge/pull request.
type MergeRequestInfo struct {
	ID  int
	URL string
}

// Provider exposes the hosting-provider operations used by the pipeline.
// Errors map onto the gitbridge error taxonomy: authentication,
// authorization, not-found, or integration, each carrying the provider's
// message.
type Provider interface {
	// Name identifies the provider in logs and error messages.
	Name() string

	// GetProject resolves a project reference ("owner/repo" style).
	GetProject(ctx context.Context, ref string) (ProjectInfo, error)

	// ListBranches returns the project's branches.
	ListBranches(ctx context.Context, ref string) ([]Branch, error)

	// CreateBranch creates a branch from baseRef. Creation is idempotent: a
	// branch that already exists, including one created concurrently between
	// the existence check and the create call, is returned as success.
	CreateBranch(ctx context.Context, ref, name, baseRef string) (Branch, error)

	// CreateMergeRequest opens a merge/pull request.
	CreateMergeRequest(ctx context.Context, ref string, spec MergeRequestSpec) (MergeRequestInfo, error)

	// SupportsForceWithLease reports whether force pushes against this
	// provider can be lease-conditioned. Providers that opt out get the
	// plain force fallback, which is logged as destructive.
	SupportsForceWithLease() bool
}
