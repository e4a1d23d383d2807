// Package gitlab implements remote.Provider on top of the GitLab v4 REST API.
package gitlab

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gitbridge/pkg/api"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/util/context"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	providerName   = "gitlab"
	defaultBaseURL = "https://gitlab.com"
)

// Provider is the GitLab implementation of remote.Provider.
type Provider struct {
	token   string
	baseURL string
	client  *retryablehttp.Client
}

var _ remote.Provider = (*Provider)(nil)

// New returns a Provider authenticated with the given token. baseURL can be
// a self-hosted instance URL; pass empty string for gitlab.com.
func New(token, baseURL string) (*Provider, error) {
	if token == "" {
		return nil, api.AuthenticationError{Provider: providerName, Message: "token is required"}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := retryablehttp.NewClient()
	client.Logger = nil
	return &Provider{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

func (p *Provider) Name() string { return providerName }

// SupportsForceWithLease is true: the lease is enforced locally by git
// against the tracked remote ref.
func (p *Provider) SupportsForceWithLease() bool { return true }

type gitlabProject struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
	HTTPURLToRepo     string `json:"http_url_to_repo"`
}

type gitlabBranch struct {
	Name   string `json:"name"`
	Commit struct {
		ID string `json:"id"`
	} `json:"commit"`
}

type gitlabMergeRequest struct {
	IID    int    `json:"iid"`
	WebURL string `json:"web_url"`
}

type gitlabError struct {
	Message interface{} `json:"message"`
	Error   string      `json:"error"`
}

func (p *Provider) projectURL(ref string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s", p.baseURL, url.PathEscape(ref))
}

func (p *Provider) GetProject(ctx context.Context, ref string) (remote.ProjectInfo, error) {
	var proj gitlabProject
	if err := p.do(ctx, http.MethodGet, p.projectURL(ref), nil, &proj, fmt.Sprintf("project %s", ref)); err != nil {
		return remote.ProjectInfo{}, err
	}
	return remote.ProjectInfo{
		ID:            strconv.Itoa(proj.ID),
		Path:          proj.PathWithNamespace,
		DefaultBranch: proj.DefaultBranch,
		CloneURL:      proj.HTTPURLToRepo,
	}, nil
}

func (p *Provider) ListBranches(ctx context.Context, ref string) ([]remote.Branch, error) {
	apiURL := p.projectURL(ref) + "/repository/branches?per_page=100"
	var raw []gitlabBranch
	if err := p.do(ctx, http.MethodGet, apiURL, nil, &raw, fmt.Sprintf("branches of %s", ref)); err != nil {
		return nil, err
	}
	branches := make([]remote.Branch, len(raw))
	for i, b := range raw {
		branches[i] = remote.Branch{Name: b.Name, SHA: b.Commit.ID}
	}
	return branches, nil
}

func (p *Provider) CreateBranch(ctx context.Context, ref, name, baseRef string) (remote.Branch, error) {
	apiURL := fmt.Sprintf("%s/repository/branches?branch=%s&ref=%s",
		p.projectURL(ref), url.QueryEscape(name), url.QueryEscape(baseRef))
	var created gitlabBranch
	err := p.do(ctx, http.MethodPost, apiURL, nil, &created, fmt.Sprintf("branch %s of %s", name, ref))
	if err == nil {
		return remote.Branch{Name: created.Name, SHA: created.Commit.ID}, nil
	}

	// Created concurrently by another run or a manual action: fetch the
	// existing head and report success.
	if isAlreadyExists(err) {
		ctx.Logger().Infof("branch %s already exists on %s, reusing it", name, ref)
		getURL := fmt.Sprintf("%s/repository/branches/%s", p.projectURL(ref), url.PathEscape(name))
		var existing gitlabBranch
		if getErr := p.do(ctx, http.MethodGet, getURL, nil, &existing, fmt.Sprintf("branch %s of %s", name, ref)); getErr != nil {
			return remote.Branch{}, getErr
		}
		return remote.Branch{Name: existing.Name, SHA: existing.Commit.ID}, nil
	}
	return remote.Branch{}, err
}

func (p *Provider) CreateMergeRequest(ctx context.Context, ref string, spec remote.MergeRequestSpec) (remote.MergeRequestInfo, error) {
	body, err := json.Marshal(map[string]string{
		"source_branch": spec.SourceBranch,
		"target_branch": spec.TargetBranch,
		"title":         spec.Title,
		"description":   spec.Description,
	})
	if err != nil {
		return remote.MergeRequestInfo{}, errors.Wrap(err, "cannot marshal merge request")
	}
	var mr gitlabMergeRequest
	apiURL := p.projectURL(ref) + "/merge_requests"
	if err := p.do(ctx, http.MethodPost, apiURL, body, &mr, fmt.Sprintf("merge request on %s", ref)); err != nil {
		return remote.MergeRequestInfo{}, err
	}
	return remote.MergeRequestInfo{ID: mr.IID, URL: mr.WebURL}, nil
}

func (p *Provider) do(ctx context.Context, method, apiURL string, body []byte, target interface{}, what string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return errors.Wrap(err, "cannot create request")
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return api.IntegrationError{Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatus(resp, what)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return api.IntegrationError{Provider: providerName, Message: fmt.Sprintf("cannot decode response: %v", err)}
	}
	return nil
}

func mapStatus(resp *http.Response, what string) error {
	msg := readErrorMessage(resp)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return api.AuthenticationError{Provider: providerName, Message: msg}
	case http.StatusForbidden, http.StatusTooManyRequests:
		return api.AuthorizationError{Provider: providerName, Message: msg}
	case http.StatusNotFound:
		return api.NotFoundError{What: what}
	}
	return api.IntegrationError{Provider: providerName, Message: msg}
}

func readErrorMessage(resp *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(b) == 0 {
		return resp.Status
	}
	var glErr gitlabError
	if err := json.Unmarshal(b, &glErr); err == nil {
		if glErr.Error != "" {
			return glErr.Error
		}
		if glErr.Message != nil {
			return fmt.Sprintf("%v", glErr.Message)
		}
	}
	return strings.TrimSpace(string(b))
}

func isAlreadyExists(err error) bool {
	var intErr api.IntegrationError
	if !errors.As(err, &intErr) {
		return false
	}
	return strings.Contains(strings.ToLower(intErr.Message), "already exists")
}
