package scheduler

import (
	gocontext "context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/git"
	"gitbridge/pkg/progress"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/store"
	"gitbridge/pkg/util/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	outputs map[string]string
	fail    map[string]error

	// gate, when set, blocks every Run call until it is closed.
	gate chan struct{}
}

func (f *fakeRunner) Run(ctx gocontext.Context, dir string, args ...string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	key := strings.Join(args, " ")
	for prefix, err := range f.fail {
		if strings.HasPrefix(key, prefix) {
			return "", err
		}
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(key, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeRunner) RunStream(ctx gocontext.Context, dir string, onLine func(string), args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	return nil
}

type fakeProvider struct {
	mu            sync.Mutex
	getProjectErr error
	branches      []remote.Branch
	createdBranch string
	mrSpec        remote.MergeRequestSpec
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) SupportsForceWithLease() bool { return true }

func (p *fakeProvider) GetProject(ctx context.Context, ref string) (remote.ProjectInfo, error) {
	if p.getProjectErr != nil {
		return remote.ProjectInfo{}, p.getProjectErr
	}
	return remote.ProjectInfo{
		ID:            "1",
		Path:          ref,
		DefaultBranch: "main",
		CloneURL:      "https://gitlab.example.com/" + ref + ".git",
	}, nil
}

func (p *fakeProvider) ListBranches(ctx context.Context, ref string) ([]remote.Branch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.branches != nil {
		return p.branches, nil
	}
	return []remote.Branch{{Name: "main", SHA: "abc"}}, nil
}

func (p *fakeProvider) CreateBranch(ctx context.Context, ref, name, baseRef string) (remote.Branch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createdBranch = name
	return remote.Branch{Name: name, SHA: "abc"}, nil
}

func (p *fakeProvider) CreateMergeRequest(ctx context.Context, ref string, spec remote.MergeRequestSpec) (remote.MergeRequestInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mrSpec = spec
	return remote.MergeRequestInfo{ID: 7, URL: "https://gitlab.example.com/" + ref + "/-/merge_requests/7"}, nil
}

// gitDir makes dir look like an existing clone so no real fetch is attempted.
func gitDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
}

func validConfig(t *testing.T) api.RunConfig {
	t.Helper()
	src, dst := t.TempDir(), t.TempDir()
	gitDir(t, src)
	gitDir(t, dst)
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("A"), 0o644))
	return api.RunConfig{
		SourceRepoURL: "https://github.com/acme/app",
		SourceToken:   "src-token",
		SourceDir:     src,
		TargetProject: "acme/app",
		TargetToken:   "dst-token",
		TargetDir:     dst,
		BaseBranch:    "main",
		NewBranch:     "migration",
		CopyMode:      api.CopyModeMixed,
		CommitMessage: "migrate app",
		MRTitle:       "Migrate app",
	}
}

func newTestScheduler(t *testing.T, runner *fakeRunner, provider *fakeProvider) (Scheduler, store.Store, *progress.Registry) {
	t.Helper()
	s := store.NewInMemoryStore()
	reg := progress.NewRegistry()
	factory := func(ctx context.Context, token string) (remote.Provider, error) {
		return provider, nil
	}
	sched, err := NewScheduler(Config{
		Store:    s,
		Sync:     git.NewSync(runner, reg),
		Registry: reg,
		Source:   factory,
		Target:   factory,
	})
	require.NoError(t, err)
	return sched, s, reg
}

func waitForRun(t *testing.T, s store.Store, runID string) api.PipelineRun {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		run, err := s.GetRun(context.Background(), runID)
		require.NoError(t, err)
		if run.Status.Finished() {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", runID)
	return api.PipelineRun{}
}

func TestSubmitRunsPipelineToSuccess(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"status --porcelain": " M a.txt"}}
	provider := &fakeProvider{}
	sched, s, _ := newTestScheduler(t, runner, provider)

	runID, err := sched.Submit(context.Background(), "owner-1", validConfig(t))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run := waitForRun(t, s, runID)
	assert.Equal(t, api.StatusSuccess, run.Status)
	for _, step := range run.Steps {
		assert.Equal(t, api.StatusSuccess, step.Status, "step %s", step.Name)
	}
	require.NotNil(t, run.Result)
	assert.Equal(t, 7, run.Result.MergeRequestID)
	assert.Equal(t, 1, run.Result.FilesCopied)
	assert.Equal(t, "migration", run.Result.SourceBranch)
	assert.Equal(t, "main", run.Result.TargetBranch)
	assert.Nil(t, run.ErrorDetail)

	assert.Equal(t, "migration", provider.createdBranch)
	assert.Equal(t, "Migrate app", provider.mrSpec.Title)
}

func TestSubmitRejectsInvalidConfig(t *testing.T) {
	sched, _, _ := newTestScheduler(t, &fakeRunner{}, &fakeProvider{})

	cfg := validConfig(t)
	cfg.MRTitle = ""
	_, err := sched.Submit(context.Background(), "owner-1", cfg)
	require.Error(t, err)
	assert.IsType(t, api.ValidationError{}, err)
}

func TestSubmitRequiresOwner(t *testing.T) {
	sched, _, _ := newTestScheduler(t, &fakeRunner{}, &fakeProvider{})

	_, err := sched.Submit(context.Background(), "", validConfig(t))
	require.Error(t, err)
	assert.IsType(t, api.ValidationError{}, err)
}

func TestFailedStepStopsPipeline(t *testing.T) {
	runner := &fakeRunner{}
	provider := &fakeProvider{getProjectErr: api.AuthenticationError{Provider: "fake", Message: "bad token"}}
	sched, s, _ := newTestScheduler(t, runner, provider)

	runID, err := sched.Submit(context.Background(), "owner-1", validConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, s, runID)
	assert.Equal(t, api.StatusFailed, run.Status)
	require.NotNil(t, run.ErrorDetail)
	assert.Equal(t, api.StepCreateTargetBranch, run.ErrorDetail.Step)

	assert.Equal(t, api.StatusSuccess, run.Step(api.StepCloneSource).Status)
	assert.Equal(t, api.StatusFailed, run.Step(api.StepCreateTargetBranch).Status)
	// Stages after the failed one are never started.
	assert.Equal(t, api.StatusIdle, run.Step(api.StepCopyFiles).Status)
	assert.Equal(t, api.StatusIdle, run.Step(api.StepCommitChanges).Status)
	assert.Equal(t, api.StatusIdle, run.Step(api.StepCreateMergeRequest).Status)
}

func TestCleanTreeSkipsPush(t *testing.T) {
	// No porcelain output: the working tree is clean after the copy.
	runner := &fakeRunner{}
	provider := &fakeProvider{}
	sched, s, _ := newTestScheduler(t, runner, provider)

	runID, err := sched.Submit(context.Background(), "owner-1", validConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, s, runID)
	assert.Equal(t, api.StatusSuccess, run.Status)
	assert.Contains(t, run.Step(api.StepCommitChanges).Message, "nothing to commit")

	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, call := range runner.calls {
		assert.NotEqual(t, "push", call[0])
	}
}

func TestExistingBranchIsReused(t *testing.T) {
	runner := &fakeRunner{}
	provider := &fakeProvider{branches: []remote.Branch{
		{Name: "main", SHA: "abc"},
		{Name: "migration", SHA: "def"},
	}}
	sched, s, _ := newTestScheduler(t, runner, provider)

	runID, err := sched.Submit(context.Background(), "owner-1", validConfig(t))
	require.NoError(t, err)

	run := waitForRun(t, s, runID)
	assert.Equal(t, api.StatusSuccess, run.Status)
	assert.Empty(t, provider.createdBranch)
	assert.Contains(t, run.Step(api.StepCreateTargetBranch).Message, "reusing")
}

func TestReusedCloneStillTerminatesProgressStream(t *testing.T) {
	// Gate the runner so the subscription is attached while the source
	// refresh is still in flight.
	runner := &fakeRunner{gate: make(chan struct{})}
	sched, s, reg := newTestScheduler(t, runner, &fakeProvider{})

	runID, err := sched.Submit(context.Background(), "owner-1", validConfig(t))
	require.NoError(t, err)

	ch, detach := reg.Subscribe(runID)
	defer detach()
	close(runner.gate)

	// The source directory already holds a clone, so no transfer is streamed;
	// subscribers must still see the stream reach a terminal event.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case evt, open := <-ch:
			require.True(t, open, "stream ended without a terminal event")
			if evt.Type == api.ProgressTypeComplete {
				waitForRun(t, s, runID)
				return
			}
		case <-deadline:
			t.Fatal("no terminal progress event for reused clone")
		}
	}
}

func TestCancelFetchUnknownOperation(t *testing.T) {
	sched, _, _ := newTestScheduler(t, &fakeRunner{}, &fakeProvider{})
	assert.False(t, sched.CancelFetch(context.Background(), "no-such-operation"))
}
