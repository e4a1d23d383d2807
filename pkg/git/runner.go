// Package git shells out to the system git binary. Commands are always built
// as argument arrays, never as shell strings.
package git

import (
	"bufio"
	"bytes"
	gocontext "context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single git invocation that would otherwise inherit
// an unbounded context.
const DefaultTimeout = 2 * time.Minute

// GitError carries the command arguments and the raw combined output of a
// failed git invocation.
type GitError struct {
	Args   []string
	Output string
	Err    error
}

func (e *GitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, out)
}

func (e *GitError) Unwrap() error { return e.Err }

// CommandRunner is the subprocess surface the synchronizer depends on.
// Tests substitute a fake.
type CommandRunner interface {
	// Run executes git with the given arguments in dir and returns the
	// combined output.
	Run(ctx gocontext.Context, dir string, args ...string) (string, error)

	// RunStream executes git and calls onLine for every line of output as it
	// is produced. Progress lines separated by carriage returns are split
	// like regular lines.
	RunStream(ctx gocontext.Context, dir string, onLine func(string), args ...string) error
}

// Runner invokes the git binary.
type Runner struct {
	// Git is the binary to execute. Defaults to "git" when empty.
	Git string

	// Timeout bounds each invocation. Defaults to DefaultTimeout when zero.
	Timeout time.Duration
}

// NewRunner returns a Runner with default binary and timeout.
func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) binary() string {
	if r.Git == "" {
		return "git"
	}
	return r.Git
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func (r *Runner) Run(ctx gocontext.Context, dir string, args ...string) (string, error) {
	ctx, cancel := gocontext.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &GitError{Args: args, Output: string(output), Err: err}
	}
	return string(output), nil
}

func (r *Runner) RunStream(ctx gocontext.Context, dir string, onLine func(string), args ...string) error {
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return &GitError{Args: args, Err: err}
	}

	var tail []string
	scanner := bufio.NewScanner(stdout)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > 10 {
			tail = tail[1:]
		}
		if onLine != nil {
			onLine(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &GitError{Args: args, Output: strings.Join(tail, "\n"), Err: err}
	}
	return nil
}

// scanProgressLines splits on both newlines and carriage returns, so that
// in-place progress updates ("Receiving objects:  42%\r") surface as
// individual lines.
func scanProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ CommandRunner = (*Runner)(nil)
