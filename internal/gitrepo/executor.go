package gitrepo

import (
	"bytes"
	"context"
	"os/exec"
)

// Executor runs a git command in a working directory and returns its
// stdout and stderr. Swapped out for a fake in tests.
type Executor interface {
	Run(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)
}

type execExecutor struct{}

func (execExecutor) Run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
