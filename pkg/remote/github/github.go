// Package github implements remote.Provider on top of the GitHub REST API.
package github

import (
	"fmt"
	"net/http"
	"strings"

	"gitbridge/pkg/api"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/util/context"

	gogithub "github.com/google/go-github/v55/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const providerName = "github"

// Provider is the GitHub implementation of remote.Provider.
type Provider struct {
	client *gogithub.Client
}

var _ remote.Provider = (*Provider)(nil)

// New returns a Provider authenticated with the given token. baseURL targets
// a GitHub Enterprise instance; pass empty string for github.com.
func New(ctx context.Context, token, baseURL string) (*Provider, error) {
	if token == "" {
		return nil, api.AuthenticationError{Provider: providerName, Message: "token is required"}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	client := gogithub.NewClient(tc)
	if baseURL != "" {
		var err error
		client, err = gogithub.NewClient(tc).WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, errors.Wrap(err, "cannot construct enterprise github client")
		}
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string { return providerName }

// SupportsForceWithLease is true: the lease is enforced locally by git
// against the tracked remote ref.
func (p *Provider) SupportsForceWithLease() bool { return true }

func splitRef(ref string) (string, string, error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", api.ValidationError{Field: "project", Reason: fmt.Sprintf("%q is not owner/repo", ref)}
	}
	return parts[0], parts[1], nil
}

func (p *Provider) GetProject(ctx context.Context, ref string) (remote.ProjectInfo, error) {
	owner, repo, err := splitRef(ref)
	if err != nil {
		return remote.ProjectInfo{}, err
	}
	r, _, err := p.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return remote.ProjectInfo{}, mapError(err, fmt.Sprintf("project %s", ref))
	}
	return remote.ProjectInfo{
		ID:            fmt.Sprintf("%d", r.GetID()),
		Path:          r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		CloneURL:      r.GetCloneURL(),
	}, nil
}

func (p *Provider) ListBranches(ctx context.Context, ref string) ([]remote.Branch, error) {
	owner, repo, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	var all []remote.Branch
	opt := &gogithub.BranchListOptions{ListOptions: gogithub.ListOptions{PerPage: 100}}
	for {
		branches, resp, err := p.client.Repositories.ListBranches(ctx, owner, repo, opt)
		if err != nil {
			return nil, mapError(err, fmt.Sprintf("branches of %s", ref))
		}
		for _, b := range branches {
			all = append(all, remote.Branch{Name: b.GetName(), SHA: b.GetCommit().GetSHA()})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return all, nil
}

func (p *Provider) CreateBranch(ctx context.Context, ref, name, baseRef string) (remote.Branch, error) {
	owner, repo, err := splitRef(ref)
	if err != nil {
		return remote.Branch{}, err
	}

	base, _, err := p.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+baseRef)
	if err != nil {
		return remote.Branch{}, mapError(err, fmt.Sprintf("branch %s of %s", baseRef, ref))
	}

	created, _, err := p.client.Git.CreateRef(ctx, owner, repo, &gogithub.Reference{
		Ref:    gogithub.String("refs/heads/" + name),
		Object: &gogithub.GitObject{SHA: base.Object.SHA},
	})
	if err == nil {
		return remote.Branch{Name: name, SHA: created.GetObject().GetSHA()}, nil
	}

	// Created concurrently by another run or a manual action: fetch the
	// existing head and report success.
	if isAlreadyExists(err) {
		ctx.Logger().Infof("branch %s already exists on %s, reusing it", name, ref)
		existing, _, getErr := p.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+name)
		if getErr != nil {
			return remote.Branch{}, mapError(getErr, fmt.Sprintf("branch %s of %s", name, ref))
		}
		return remote.Branch{Name: name, SHA: existing.GetObject().GetSHA()}, nil
	}
	return remote.Branch{}, mapError(err, fmt.Sprintf("branch %s of %s", name, ref))
}

func (p *Provider) CreateMergeRequest(ctx context.Context, ref string, spec remote.MergeRequestSpec) (remote.MergeRequestInfo, error) {
	owner, repo, err := splitRef(ref)
	if err != nil {
		return remote.MergeRequestInfo{}, err
	}
	pr, _, err := p.client.PullRequests.Create(ctx, owner, repo, &gogithub.NewPullRequest{
		Title: gogithub.String(spec.Title),
		Body:  gogithub.String(spec.Description),
		Head:  gogithub.String(spec.SourceBranch),
		Base:  gogithub.String(spec.TargetBranch),
	})
	if err != nil {
		return remote.MergeRequestInfo{}, mapError(err, fmt.Sprintf("pull request on %s", ref))
	}
	return remote.MergeRequestInfo{ID: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

func isAlreadyExists(err error) bool {
	var ghErr *gogithub.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnprocessableEntity {
		return strings.Contains(strings.ToLower(ghErr.Message), "already exists")
	}
	return false
}

func mapError(err error, what string) error {
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return api.AuthenticationError{Provider: providerName, Message: ghErr.Message}
		case http.StatusForbidden:
			return api.AuthorizationError{Provider: providerName, Message: ghErr.Message}
		case http.StatusNotFound:
			return api.NotFoundError{What: what}
		}
		return api.IntegrationError{Provider: providerName, Message: ghErr.Message}
	}
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return api.AuthorizationError{Provider: providerName, Message: rateErr.Message}
	}
	return api.IntegrationError{Provider: providerName, Message: err.Error()}
}
