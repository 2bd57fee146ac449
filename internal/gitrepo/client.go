package gitrepo

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Client wraps the git CLI for a single repository. Every call is
// synchronous and bounded by the configured timeout.
type Client struct {
	repoPath string
	timeout  time.Duration
	executor Executor
}

func NewClient(repoPath string, timeout time.Duration) *Client {
	return &Client{
		repoPath: repoPath,
		timeout:  timeout,
		executor: execExecutor{},
	}
}

// NewClientWithExecutor is used by tests to substitute the git binary.
func NewClientWithExecutor(repoPath string, timeout time.Duration, executor Executor) *Client {
	return &Client{
		repoPath: repoPath,
		timeout:  timeout,
		executor: executor,
	}
}

func (c *Client) run(ctx context.Context, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stdout, stderr, err := c.executor.Run(ctx, c.repoPath, args...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout, stderr, newGitError(args[0], args, ErrTimeout, stderr)
	}

	return stdout, stderr, err
}

// Available reports whether a git binary can be found on PATH.
func (c *Client) Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Status returns the paths with uncommitted changes, possibly empty.
func (c *Client) Status(ctx context.Context) ([]string, error) {
	stdout, stderr, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			return nil, gitErr
		}
		return nil, newGitError("status", nil, ErrVcsUnavailable, stderr)
	}

	var paths []string
	for _, line := range strings.Split(stdout, "\n") {
		if len(line) > 3 {
			paths = append(paths, strings.TrimSpace(line[3:]))
		}
	}

	return paths, nil
}

func (c *Client) StageAll(ctx context.Context) error {
	_, stderr, err := c.run(ctx, "add", "-A")
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			return gitErr
		}
		return newGitError("add", []string{"add", "-A"}, ErrStageFailed, stderr)
	}

	return nil
}

func (c *Client) Commit(ctx context.Context, message string) error {
	stdout, stderr, err := c.run(ctx, "commit", "-m", message)
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			return gitErr
		}

		// A race between status and commit can leave nothing staged;
		// git reports this on stdout with a non-zero exit.
		if strings.Contains(stdout, "nothing to commit") ||
			strings.Contains(stderr, "nothing to commit") {
			return newGitError("commit", nil, ErrNothingToCommit, "")
		}

		return newGitError("commit", []string{"commit", "-m", message}, ErrCommitFailed, stderr)
	}

	return nil
}

func (c *Client) Push(ctx context.Context) error {
	_, stderr, err := c.run(ctx, "push")
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			return gitErr
		}

		pushErr := newGitError("push", []string{"push"}, ErrPushFailed, stderr)
		pushErr.Detail = classifyPush(stderr)
		return pushErr
	}

	return nil
}

// CheckRemote is a non-fatal probe; any failure collapses to false.
func (c *Client) CheckRemote(ctx context.Context) bool {
	_, _, err := c.run(ctx, "ls-remote", "--exit-code", "origin", "HEAD")
	return err == nil
}

// GitDir resolves the repository's metadata directory, which is not
// <repoPath>/.git when watching a subdirectory of the work tree.
func (c *Client) GitDir(ctx context.Context) (string, error) {
	stdout, stderr, err := c.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			return "", gitErr
		}
		return "", newGitError("rev-parse", nil, ErrVcsUnavailable, stderr)
	}

	return strings.TrimSpace(stdout), nil
}

// CheckRepository reports whether repoPath is inside a git work tree.
func (c *Client) CheckRepository(ctx context.Context) bool {
	stdout, _, err := c.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(stdout) == "true"
}
