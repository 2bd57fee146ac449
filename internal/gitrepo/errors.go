package gitrepo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrVcsUnavailable  = errors.New("git unavailable")
	ErrStageFailed     = errors.New("stage failed")
	ErrCommitFailed    = errors.New("commit failed")
	ErrNothingToCommit = errors.New("nothing to commit")
	ErrPushFailed      = errors.New("push failed")
	ErrTimeout         = errors.New("git command timed out")
)

// PushDetail classifies why a push was refused.
type PushDetail string

const (
	PushRejected PushDetail = "rejected"
	PushNetwork  PushDetail = "network"
	PushAuth     PushDetail = "auth"
	PushUnknown  PushDetail = "unknown"
)

// GitError carries the failing operation and captured stderr alongside
// the sentinel it wraps, so callers can match with errors.Is and still
// log the underlying git output.
type GitError struct {
	Op     string
	Args   []string
	Stderr string
	Detail PushDetail
	Err    error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s: %v", e.Op, e.Err)
	if e.Detail != "" && e.Detail != PushUnknown {
		msg += " (" + string(e.Detail) + ")"
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

func newGitError(op string, args []string, err error, stderr string) *GitError {
	return &GitError{Op: op, Args: args, Err: err, Stderr: stderr}
}

func classifyPush(stderr string) PushDetail {
	s := strings.ToLower(stderr)

	switch {
	case strings.Contains(s, "rejected"),
		strings.Contains(s, "non-fast-forward"),
		strings.Contains(s, "fetch first"):
		return PushRejected
	case strings.Contains(s, "authentication failed"),
		strings.Contains(s, "permission denied"),
		strings.Contains(s, "could not read username"),
		strings.Contains(s, "403"):
		return PushAuth
	case strings.Contains(s, "could not resolve host"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection timed out"),
		strings.Contains(s, "could not read from remote repository"),
		strings.Contains(s, "network is unreachable"):
		return PushNetwork
	default:
		return PushUnknown
	}
}
