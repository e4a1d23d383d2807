package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"gitbridge/pkg/api"
	"gitbridge/pkg/copy"
	"gitbridge/pkg/git"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/util/context"

	"github.com/pkg/errors"
)

// tokenUser is the username paired with a token in authenticated clone URLs.
// Both hosts accept any non-empty user when the password is a token.
const tokenUser = "oauth2"

// runState carries intermediate artifacts between pipeline stages of one run.
type runState struct {
	runID string
	cfg   api.RunConfig

	target  remote.Provider
	project remote.ProjectInfo

	committed bool
	result    api.RunResult
}

// cloneSource fetches the source repository into the configured source
// directory, streaming live progress under the run id. An existing clone is
// refreshed without streamed progress, but subscribers still receive a
// terminal event so the stream ends.
func (sc *scheduler) cloneSource(ctx context.Context, st *runState) (string, error) {
	url := git.AuthenticatedURL(st.cfg.SourceRepoURL, tokenUser, st.cfg.SourceToken)

	ctx = context.WithOperationID(ctx, st.runID)
	if _, err := os.Stat(filepath.Join(st.cfg.SourceDir, ".git")); err == nil {
		if _, err := sc.cfg.Sync.EnsureClone(ctx, url, st.cfg.SourceDir); err != nil {
			sc.cfg.Sync.NotifyError(ctx, st.runID, err)
			return "", err
		}
		// No transfer was streamed, but progress subscribers still need to
		// see the stream terminate.
		sc.cfg.Sync.NotifyComplete(ctx, st.runID, "source clone up to date")
		return "reused existing source clone", nil
	}

	if err := sc.cfg.Sync.CloneWithProgress(ctx, url, st.cfg.SourceDir, st.runID); err != nil {
		return "", err
	}
	return "source repository cloned", nil
}

// createTargetBranch resolves the target project, creates the new branch from
// the base branch through the provider API and prepares a local checkout of it.
func (sc *scheduler) createTargetBranch(ctx context.Context, st *runState) (string, error) {
	target, err := sc.cfg.Target(ctx, st.cfg.TargetToken)
	if err != nil {
		return "", err
	}
	st.target = target

	project, err := target.GetProject(ctx, st.cfg.TargetProject)
	if err != nil {
		return "", err
	}
	st.project = project

	// Creation is race-safe on the provider side, but an existence check
	// first avoids a pointless create round trip on reruns.
	branch, created, err := ensureBranch(ctx, target, st.cfg.TargetProject, st.cfg.NewBranch, st.cfg.BaseBranch)
	if err != nil {
		return "", err
	}

	url := git.AuthenticatedURL(project.CloneURL, tokenUser, st.cfg.TargetToken)
	if _, err := sc.cfg.Sync.EnsureClone(ctx, url, st.cfg.TargetDir); err != nil {
		return "", err
	}
	if err := sc.cfg.Sync.CheckoutBranch(ctx, st.cfg.TargetDir, st.cfg.NewBranch); err != nil {
		return "", err
	}
	if !created {
		return fmt.Sprintf("branch %s already exists at %s, reusing it", branch.Name, branch.SHA), nil
	}
	return fmt.Sprintf("branch %s created from %s at %s", branch.Name, st.cfg.BaseBranch, branch.SHA), nil
}

// ensureBranch returns the branch named name, creating it from baseRef when it
// does not exist yet. created reports whether a create call was issued.
func ensureBranch(ctx context.Context, target remote.Provider, project, name, baseRef string) (remote.Branch, bool, error) {
	branches, err := target.ListBranches(ctx, project)
	if err != nil {
		return remote.Branch{}, false, err
	}
	for _, b := range branches {
		if b.Name == name {
			return b, false, nil
		}
	}
	branch, err := target.CreateBranch(ctx, project, name, baseRef)
	if err != nil {
		return remote.Branch{}, false, err
	}
	return branch, true, nil
}

// copyFiles places the selected subset of the source tree into the target
// working directory.
func (sc *scheduler) copyFiles(ctx context.Context, st *runState) (string, error) {
	dst := st.cfg.TargetDir
	if st.cfg.DestinationPath != "" {
		dst = filepath.Join(dst, st.cfg.DestinationPath)
	}
	res, err := copy.Copy(ctx, st.cfg.SourceDir, dst, copy.Options{
		Mode:              st.cfg.CopyMode,
		Files:             st.cfg.Files,
		Folders:           st.cfg.Folders,
		PreserveStructure: st.cfg.PreserveFolderStructure,
	})
	if err != nil {
		return "", err
	}
	st.result.FilesCopied = res.FilesCopied
	st.result.FoldersCopied = res.FoldersCopied
	return fmt.Sprintf("copied %d files and %d folders", res.FilesCopied, res.FoldersCopied), nil
}

// commitChanges commits the copied content and pushes the branch, resolving
// conflicting remote edits through the push recovery sequence.
func (sc *scheduler) commitChanges(ctx context.Context, st *runState) (string, error) {
	committed, err := sc.cfg.Sync.CommitAll(ctx, st.cfg.TargetDir, st.cfg.CommitMessage)
	if err != nil {
		return "", err
	}
	st.committed = committed
	if !committed {
		return "working tree clean, nothing to commit", nil
	}

	forced, err := sc.cfg.Sync.Push(ctx, st.cfg.TargetDir, st.cfg.NewBranch, st.target.SupportsForceWithLease())
	if err != nil {
		return "", err
	}
	if forced {
		return "changes committed and force pushed", nil
	}
	return "changes committed and pushed", nil
}

// createMergeRequest opens the merge request from the new branch onto the
// base branch.
func (sc *scheduler) createMergeRequest(ctx context.Context, st *runState) (string, error) {
	if st.target == nil {
		return "", errors.New("target provider not initialized")
	}
	mr, err := st.target.CreateMergeRequest(ctx, st.cfg.TargetProject, remote.MergeRequestSpec{
		SourceBranch: st.cfg.NewBranch,
		TargetBranch: st.cfg.BaseBranch,
		Title:        st.cfg.MRTitle,
		Description:  st.cfg.MRDescription,
	})
	if err != nil {
		return "", err
	}
	st.result.MergeRequestID = mr.ID
	st.result.MergeRequestURL = mr.URL
	st.result.SourceBranch = st.cfg.NewBranch
	st.result.TargetBranch = st.cfg.BaseBranch
	return fmt.Sprintf("merge request !%d created", mr.ID), nil
}
