package git

import (
	gocontext "context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/progress"
	"gitbridge/pkg/util/context"

	"github.com/pkg/errors"
)

const (
	// FetchTimeout is the upper bound on a progress-streamed clone before the
	// cancellation path triggers automatically.
	FetchTimeout = 5 * time.Minute

	// teardownGrace lets the final progress event flush to subscribers
	// before their channels close.
	teardownGrace = 2 * time.Second

	remoteName = "origin"
)

// Sync implements the local side of the migration: clone, branch checkout,
// commit, and the conflict-resolving push sequence.
type Sync struct {
	runner   CommandRunner
	registry *progress.Registry

	// FetchTimeout overrides the default clone bound when positive.
	FetchTimeout time.Duration
}

// NewSync returns a synchronizer using the given subprocess runner and
// progress registry.
func NewSync(runner CommandRunner, registry *progress.Registry) *Sync {
	return &Sync{runner: runner, registry: registry}
}

func (s *Sync) fetchTimeout() time.Duration {
	if s.FetchTimeout > 0 {
		return s.FetchTimeout
	}
	return FetchTimeout
}

// CloneWithProgress clones remoteURL into dir, streaming normalized progress
// events to all subscribers of operationID. The operation can be cancelled
// out-of-band through the registry and is bounded by the fetch timeout;
// either path surfaces to subscribers as an error event before teardown.
func (s *Sync) CloneWithProgress(ctx context.Context, remoteURL, dir, operationID string) error {
	cctx, cancel := gocontext.WithTimeout(ctx, s.fetchTimeout())
	defer cancel()

	var cancelled atomic.Bool
	s.registry.SetCanceller(operationID, func() {
		cancelled.Store(true)
		cancel()
	})

	s.publish(api.ProgressEvent{
		OperationID: operationID,
		Type:        api.ProgressTypeStatus,
		Message:     "starting clone",
	})

	lastPct := -1
	onLine := func(line string) {
		phase, pct, ok := ParseProgressLine(line)
		if !ok || pct == lastPct {
			return
		}
		lastPct = pct
		p := pct
		s.publish(api.ProgressEvent{
			OperationID: operationID,
			Type:        api.ProgressTypeProgress,
			Message:     line,
			Percentage:  &p,
			Phase:       string(phase),
		})
	}

	err := s.runner.RunStream(cctx, "", onLine, "clone", "--progress", remoteURL, dir)
	if err != nil {
		switch {
		case cancelled.Load():
			err = api.CancelledError{Operation: "fetch"}
		case errors.Is(err, gocontext.DeadlineExceeded):
			err = api.TimeoutError{Operation: "fetch"}
		}
		s.publish(api.ProgressEvent{
			OperationID: operationID,
			Type:        api.ProgressTypeError,
			Message:     err.Error(),
		})
		s.registry.Teardown(ctx, operationID, teardownGrace)
		return err
	}

	done := 100
	s.publish(api.ProgressEvent{
		OperationID: operationID,
		Type:        api.ProgressTypeComplete,
		Message:     "clone complete",
		Percentage:  &done,
	})
	s.registry.Teardown(ctx, operationID, teardownGrace)
	return nil
}

func (s *Sync) publish(evt api.ProgressEvent) {
	if s.registry != nil {
		s.registry.Publish(evt)
	}
}

// NotifyComplete publishes a terminal complete event for an operation that
// finished without a streamed transfer, then tears the channel down.
// Subscribers must always see the stream terminate, even when no fetch ran.
func (s *Sync) NotifyComplete(ctx context.Context, operationID, message string) {
	done := 100
	s.publish(api.ProgressEvent{
		OperationID: operationID,
		Type:        api.ProgressTypeComplete,
		Message:     message,
		Percentage:  &done,
	})
	s.registry.Teardown(ctx, operationID, teardownGrace)
}

// NotifyError publishes a terminal error event for an operation that failed
// without a streamed transfer, then tears the channel down.
func (s *Sync) NotifyError(ctx context.Context, operationID string, err error) {
	s.publish(api.ProgressEvent{
		OperationID: operationID,
		Type:        api.ProgressTypeError,
		Message:     err.Error(),
	})
	s.registry.Teardown(ctx, operationID, teardownGrace)
}

// EnsureClone makes dir a checkout of remoteURL. An existing clone, detected
// by the presence of the .git metadata directory, is fetched instead of
// cloned again. Reports whether a fresh clone was performed.
func (s *Sync) EnsureClone(ctx context.Context, remoteURL, dir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		ctx.Logger().Infof("reusing existing clone at %s", dir)
		if _, err := s.runner.Run(ctx, dir, "fetch", remoteName); err != nil {
			return false, errors.Wrap(err, "cannot update existing clone")
		}
		return false, nil
	}
	if _, err := s.runner.Run(ctx, "", "clone", remoteURL, dir); err != nil {
		return false, errors.Wrap(err, "cannot clone repository")
	}
	return true, nil
}

// CheckoutBranch checks out the given branch in dir, tracking its remote
// counterpart when one exists.
func (s *Sync) CheckoutBranch(ctx context.Context, dir, branch string) error {
	if err := ValidateBranchName(branch); err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, dir, "fetch", remoteName, branch); err != nil {
		// The remote branch may have been created an instant ago; fall back
		// to a local branch in that case.
		ctx.Logger().Warnf("cannot fetch branch %s: %v", branch, err)
		if _, err := s.runner.Run(ctx, dir, "checkout", "-B", branch); err != nil {
			return errors.Wrapf(err, "cannot checkout branch %s", branch)
		}
		return nil
	}
	if _, err := s.runner.Run(ctx, dir, "checkout", "-B", branch, remoteName+"/"+branch); err != nil {
		return errors.Wrapf(err, "cannot checkout branch %s", branch)
	}
	return nil
}

// CommitAll stages every change in dir and commits it with a sanitized
// message. A clean working tree is not an error: the commit is skipped and
// committed is false.
func (s *Sync) CommitAll(ctx context.Context, dir, message string) (bool, error) {
	if _, err := s.runner.Run(ctx, dir, "add", "-A"); err != nil {
		return false, errors.Wrap(err, "cannot stage changes")
	}
	status, err := s.runner.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, errors.Wrap(err, "cannot read working tree status")
	}
	if strings.TrimSpace(status) == "" {
		ctx.Logger().Info("working tree clean, nothing to commit")
		return false, nil
	}
	if _, err := s.runner.Run(ctx, dir, "commit", "-m", SanitizeCommitMessage(message)); err != nil {
		return false, errors.Wrap(err, "cannot commit changes")
	}
	return true, nil
}

// Push pushes branch to the remote, resolving non-fast-forward rejections:
// first a fetch plus merge-based pull and one retry, then a force push. The
// force is lease-conditioned when the provider supports it, plain otherwise.
// forced reports whether the fallback was used; both fallbacks are logged as
// destructive since they prioritize pipeline completion over concurrent
// remote edits.
func (s *Sync) Push(ctx context.Context, dir, branch string, leaseSupported bool) (bool, error) {
	logger := ctx.Logger()

	_, err := s.runner.Run(ctx, dir, "push", remoteName, branch)
	if err == nil {
		return false, nil
	}
	if !isNonFastForward(err) {
		return false, errors.Wrap(err, "cannot push branch")
	}

	logger.Warnf("push of %s rejected as non-fast-forward, attempting merge-based pull", branch)
	if _, err := s.runner.Run(ctx, dir, "fetch", remoteName, branch); err != nil {
		return false, errors.Wrap(err, "cannot fetch before pull")
	}

	_, pullErr := s.runner.Run(ctx, dir, "pull", "--no-rebase", "--no-edit", remoteName, branch)
	if pullErr == nil {
		_, err = s.runner.Run(ctx, dir, "push", remoteName, branch)
		if err == nil {
			return false, nil
		}
		if !isNonFastForward(err) {
			return false, errors.Wrap(err, "cannot push branch after merge")
		}
		logger.Warnf("retried push of %s still rejected", branch)
	} else {
		logger.Warnf("merge-based pull of %s failed, remote changes conflict: %v", branch, pullErr)
		// Leave no half-finished merge behind before forcing.
		if _, err := s.runner.Run(ctx, dir, "merge", "--abort"); err != nil {
			logger.Debugf("merge abort: %v", err)
		}
	}

	if leaseSupported {
		logger.Warnf("destructive: force-with-lease pushing %s, unmerged remote changes will be discarded", branch)
		if _, err := s.runner.Run(ctx, dir, "push", "--force-with-lease", remoteName, branch); err != nil {
			return false, errors.Wrap(err, "cannot force push branch with lease")
		}
		return true, nil
	}

	logger.Warnf("destructive: plain force pushing %s, provider reports no lease support", branch)
	if _, err := s.runner.Run(ctx, dir, "push", "--force", remoteName, branch); err != nil {
		return false, errors.Wrap(err, "cannot force push branch")
	}
	return true, nil
}

// isNonFastForward reports whether the error is a push rejected because the
// remote holds commits the local branch lacks.
func isNonFastForward(err error) bool {
	var gitErr *GitError
	if !errors.As(err, &gitErr) {
		return false
	}
	out := strings.ToLower(gitErr.Output)
	return strings.Contains(out, "non-fast-forward") ||
		strings.Contains(out, "fetch first") ||
		strings.Contains(out, "[rejected]")
}

// AuthenticatedURL embeds a token into an HTTPS remote URL.
func AuthenticatedURL(rawURL, user, token string) string {
	if token == "" || !strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + user + ":" + token + "@" + strings.TrimPrefix(rawURL, "https://")
}
