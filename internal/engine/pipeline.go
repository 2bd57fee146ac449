package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitpulse/internal/gitrepo"
	"gitpulse/internal/logger"
	"gitpulse/internal/model"
)

// GitClient is the slice of the repository client the engine needs.
type GitClient interface {
	Available() bool
	Status(ctx context.Context) ([]string, error)
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
	CheckRemote(ctx context.Context) bool
	CheckRepository(ctx context.Context) bool
	GitDir(ctx context.Context) (string, error)
}

var errNoChanges = errors.New("no changes to sync")

// Pipeline runs one stage-commit-push cycle per request with bounded
// retry. The mutex enforces the single-flight invariant: the working
// tree and index tolerate only one writer at a time.
type Pipeline struct {
	mu         sync.Mutex
	client     GitClient
	maxRetries int
	backoff    time.Duration
}

func NewPipeline(client GitClient, maxRetries int, backoff time.Duration) *Pipeline {
	return &Pipeline{
		client:     client,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Attempt consumes one request and returns its terminal result. A
// caller that loses the single-flight race gets OutcomeDeferred and is
// expected to re-queue.
func (p *Pipeline) Attempt(ctx context.Context, req model.SyncRequest) model.SyncResult {
	if !p.mu.TryLock() {
		return model.SyncResult{
			Outcome:    model.OutcomeDeferred,
			Reason:     req.Reason,
			FinishedAt: time.Now(),
		}
	}
	defer p.mu.Unlock()

	for attempt := 1; ; attempt++ {
		err := p.trySync(ctx, req)
		if err == nil {
			return model.SyncResult{
				Outcome:    model.OutcomeSuccess,
				Attempts:   attempt,
				Reason:     req.Reason,
				FinishedAt: time.Now(),
			}
		}

		if errors.Is(err, errNoChanges) {
			return model.SyncResult{
				Outcome:    model.OutcomeNoChanges,
				Attempts:   attempt,
				Reason:     req.Reason,
				FinishedAt: time.Now(),
			}
		}

		logger.Log.Warn("sync attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.maxRetries),
			zap.Error(err))

		if attempt >= p.maxRetries {
			return model.SyncResult{
				Outcome:    model.OutcomeFailed,
				Attempts:   attempt,
				LastError:  err.Error(),
				Reason:     req.Reason,
				FinishedAt: time.Now(),
			}
		}

		// Linear backoff, observable by the shutdown signal.
		if serr := sleep(ctx, p.backoff*time.Duration(attempt)); serr != nil {
			return model.SyncResult{
				Outcome:    model.OutcomeFailed,
				Attempts:   attempt,
				LastError:  fmt.Sprintf("interrupted during backoff: %v", serr),
				Reason:     req.Reason,
				FinishedAt: time.Now(),
			}
		}
	}
}

func (p *Pipeline) trySync(ctx context.Context, req model.SyncRequest) error {
	paths, err := p.client.Status(ctx)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		return errNoChanges
	}

	if err := p.client.StageAll(ctx); err != nil {
		return err
	}

	if err := p.client.Commit(ctx, commitMessage(req)); err != nil {
		if errors.Is(err, gitrepo.ErrNothingToCommit) {
			return errNoChanges
		}
		return err
	}

	return p.client.Push(ctx)
}

func commitMessage(req model.SyncRequest) string {
	reason := req.Reason
	if reason == "" {
		reason = "sync"
	}
	return "auto: " + reason
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
