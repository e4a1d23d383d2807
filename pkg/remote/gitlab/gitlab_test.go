package gitlab

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitbridge/pkg/api"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/util/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := New("secret", srv.URL)
	require.NoError(t, err)
	// Remote errors must surface immediately in tests.
	p.client.RetryMax = 0
	return p, srv
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("", "")
	require.Error(t, err)
	assert.IsType(t, api.AuthenticationError{}, err)
}

func TestGetProject(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Fapp", r.URL.EscapedPath())
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(gitlabProject{
			ID:                42,
			PathWithNamespace: "group/app",
			DefaultBranch:     "main",
			HTTPURLToRepo:     "https://gitlab.example.com/group/app.git",
		})
	}))

	proj, err := p.GetProject(context.Background(), "group/app")
	require.NoError(t, err)
	assert.Equal(t, "42", proj.ID)
	assert.Equal(t, "main", proj.DefaultBranch)
	assert.Equal(t, "https://gitlab.example.com/group/app.git", proj.CloneURL)
}

func TestListBranches(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Fapp/repository/branches", r.URL.EscapedPath())
		w.Write([]byte(`[{"name":"main","commit":{"id":"abc"}},{"name":"dev","commit":{"id":"def"}}]`))
	}))

	branches, err := p.ListBranches(context.Background(), "group/app")
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, remote.Branch{Name: "main", SHA: "abc"}, branches[0])
	assert.Equal(t, remote.Branch{Name: "dev", SHA: "def"}, branches[1])
}

func TestCreateBranch(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "feature", r.URL.Query().Get("branch"))
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		w.Write([]byte(`{"name":"feature","commit":{"id":"abc"}}`))
	}))

	b, err := p.CreateBranch(context.Background(), "group/app", "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, remote.Branch{Name: "feature", SHA: "abc"}, b)
}

func TestCreateBranchAlreadyExists(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Branch already exists"}`))
			return
		}
		assert.Equal(t, "/api/v4/projects/group%2Fapp/repository/branches/feature", r.URL.EscapedPath())
		w.Write([]byte(`{"name":"feature","commit":{"id":"existing"}}`))
	}))

	b, err := p.CreateBranch(context.Background(), "group/app", "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, "existing", b.SHA)
}

func TestCreateMergeRequest(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Fapp/merge_requests", r.URL.EscapedPath())
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "feature", payload["source_branch"])
		assert.Equal(t, "main", payload["target_branch"])
		assert.Equal(t, "My change", payload["title"])
		w.Write([]byte(`{"iid":7,"web_url":"https://gitlab.example.com/group/app/-/merge_requests/7"}`))
	}))

	mr, err := p.CreateMergeRequest(context.Background(), "group/app", remote.MergeRequestSpec{
		SourceBranch: "feature",
		TargetBranch: "main",
		Title:        "My change",
		Description:  "details",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, mr.ID)
	assert.Equal(t, "https://gitlab.example.com/group/app/-/merge_requests/7", mr.URL)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, api.AuthenticationError{}},
		{http.StatusForbidden, api.AuthorizationError{}},
		{http.StatusNotFound, api.NotFoundError{}},
		{http.StatusInternalServerError, api.IntegrationError{}},
	}
	for _, c := range cases {
		p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			w.Write([]byte(`{"message":"nope"}`))
		}))
		_, err := p.GetProject(context.Background(), "group/app")
		require.Error(t, err)
		assert.IsType(t, c.want, err, "status %d", c.status)
	}
}
