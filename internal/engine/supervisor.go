package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"gitpulse/internal/config"
	"gitpulse/internal/logger"
	"gitpulse/internal/model"
	"gitpulse/internal/notify"
	"gitpulse/internal/pipeline"
	"gitpulse/internal/watcher"
)

type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
)

// HistorySink persists terminal sync results.
type HistorySink interface {
	Save(result model.SyncResult) error
}

// Stats is a snapshot of the supervisor's counters.
type Stats struct {
	State     State      `json:"state"`
	Synced    int        `json:"synced"`
	Failed    int        `json:"failed"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	StartedAt time.Time  `json:"started_at"`
}

// Supervisor owns the engine lifecycle: it wires watcher, filter, and
// debouncer into the sync pipeline, drives the health monitor on its
// interval, and serializes every state transition.
type Supervisor struct {
	cfg      *config.Config
	client   GitClient
	pipeline *Pipeline
	monitor  *Monitor
	notifier notify.Notifier
	history  HistorySink

	mu         sync.RWMutex
	state      State
	stats      Stats
	lastHealth model.HealthStatus

	w        *watcher.Watcher
	lock     *flock.Flock
	manualCh chan model.SyncRequest
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

func NewSupervisor(cfg *config.Config, client GitClient, notifier notify.Notifier, history HistorySink) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		client:   client,
		pipeline: NewPipeline(client, cfg.MaxRetries, cfg.RetryBackoff),
		monitor:  NewMonitor(client),
		notifier: notifier,
		history:  history,
		state:    StateStopped,
		manualCh: make(chan model.SyncRequest, 1),
	}
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Supervisor) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// Start validates config, verifies the repository once, and launches
// the watch loop. Any failure rolls the state back to Stopped.
func (s *Supervisor) Start() error {
	if !s.transition(StateStopped, StateStarting) {
		return fmt.Errorf("cannot start from state %s", s.State())
	}

	if err := s.startUp(); err != nil {
		s.setState(StateStopped)
		return err
	}

	s.setState(StateRunning)
	s.notifier.Notify("gitpulse started", "watching "+s.cfg.WatchRoot, notify.SeverityInfo)
	logger.Log.Info("supervisor running",
		zap.String("root", s.cfg.WatchRoot),
		zap.Duration("debounce_window", s.cfg.DebounceWindow))

	return nil
}

func (s *Supervisor) startUp() error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	health := s.monitor.Check(ctx)
	s.setHealth(health)
	if !health.VcsAvailable {
		cancel()
		return fmt.Errorf("git is not available on PATH")
	}
	if !health.RepoValid {
		cancel()
		return fmt.Errorf("%s is not a git repository", s.cfg.WatchRoot)
	}
	if !health.RemoteReachable {
		logger.Log.Warn("remote unreachable at startup, pushes will be retried",
			zap.String("root", s.cfg.WatchRoot))
	}

	gitDir, err := s.client.GitDir(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to locate git dir: %w", err)
	}

	lock := flock.New(filepath.Join(gitDir, "gitpulse.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to acquire repo lock: %w", err)
	}
	if !locked {
		cancel()
		return fmt.Errorf("another gitpulse instance is watching %s", s.cfg.WatchRoot)
	}

	w, err := watcher.New(s.cfg.BufferSize, s.cfg.IgnorePatterns)
	if err != nil {
		_ = lock.Unlock()
		cancel()
		return err
	}
	if err := w.Watch(s.cfg.WatchRoot); err != nil {
		w.Stop()
		_ = lock.Unlock()
		cancel()
		return err
	}

	s.mu.Lock()
	s.w = w
	s.lock = lock
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	s.stats = Stats{StartedAt: time.Now()}
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.doneCh)

	filtered := pipeline.Filter(s.w.Events(), s.cfg.IgnorePatterns)
	requests := pipeline.Debounce(filtered, s.cfg.DebounceWindow)

	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()

	// Attempts run off the loop so health checks and watcher failures
	// are never starved behind a slow sync. busy and pending preserve
	// single-flight and coalescing: one attempt in flight, at most one
	// follow-up request held.
	resultCh := make(chan model.SyncResult, 1)
	var busy bool
	var pending *model.SyncRequest

	dispatch := func(req model.SyncRequest) {
		if busy {
			pending = &req
			return
		}
		busy = true
		go func() {
			resultCh <- s.pipeline.Attempt(ctx, req)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if busy {
				// Let the in-flight attempt unwind; Stop bounds this
				// wait with the grace period.
				s.finishSync(<-resultCh)
			}
			return

		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			dispatch(req)

		case req := <-s.manualCh:
			dispatch(req)

		case result := <-resultCh:
			busy = false
			s.finishSync(result)
			if pending != nil {
				req := *pending
				pending = nil
				dispatch(req)
			}

		case <-ticker.C:
			s.runHealthCheck(ctx)

		case err := <-s.w.Errors():
			logger.Log.Error("watch capability lost, shutting down",
				zap.Error(err))
			s.notifier.Notify("gitpulse watch failure", err.Error(), notify.SeverityError)
			go func() { _ = s.Stop() }()
			return
		}
	}
}

func (s *Supervisor) finishSync(result model.SyncResult) {
	switch result.Outcome {
	case model.OutcomeDeferred:
		// Lost the single-flight race; hold the request for the next
		// loop iteration instead of dropping it.
		select {
		case s.manualCh <- model.SyncRequest{Reason: result.Reason, RequestedAt: time.Now()}:
		default:
		}
		return

	case model.OutcomeNoChanges:
		logger.Log.Info("nothing to sync",
			zap.String("reason", result.Reason))
		return

	case model.OutcomeSuccess:
		s.recordResult(result)
		logger.Log.Info("sync complete",
			zap.String("reason", result.Reason),
			zap.Int("attempts", result.Attempts))
		s.notifier.Notify("gitpulse sync complete",
			fmt.Sprintf("committed and pushed (%s)", result.Reason),
			notify.SeveritySuccess)

	case model.OutcomeFailed:
		s.recordResult(result)
		logger.Log.Error("sync failed",
			zap.String("reason", result.Reason),
			zap.Int("attempts", result.Attempts),
			zap.String("last_error", result.LastError))
		s.notifier.Notify("gitpulse sync failed", result.LastError, notify.SeverityError)
	}
}

func (s *Supervisor) recordResult(result model.SyncResult) {
	s.mu.Lock()
	if result.Outcome == model.OutcomeSuccess {
		s.stats.Synced++
	} else {
		s.stats.Failed++
	}
	now := result.FinishedAt
	s.stats.LastSync = &now
	s.mu.Unlock()

	if s.history == nil {
		return
	}
	if err := s.history.Save(result); err != nil {
		logger.Log.Warn("failed to save history",
			zap.Error(err))
	}
}

func (s *Supervisor) runHealthCheck(ctx context.Context) {
	health := s.monitor.Check(ctx)

	s.mu.Lock()
	wasHealthy := s.lastHealth.Healthy()
	s.lastHealth = health
	s.mu.Unlock()

	if health.Healthy() {
		logger.Log.Debug("health check passed")
		return
	}

	logger.Log.Warn("health degraded",
		zap.Bool("vcs_available", health.VcsAvailable),
		zap.Bool("repo_valid", health.RepoValid),
		zap.Bool("remote_reachable", health.RemoteReachable))

	if wasHealthy {
		s.notifier.Notify("gitpulse health degraded",
			healthSummary(health), notify.SeverityWarning)
	}
}

func (s *Supervisor) setHealth(health model.HealthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHealth = health
}

// Health returns the result of the most recent health check.
func (s *Supervisor) Health() model.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHealth
}

func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.State = s.state
	return stats
}

// TriggerSync requests one immediate sync attempt, bypassing the
// debouncer. Triggers arriving while one is pending coalesce.
func (s *Supervisor) TriggerSync(reason string) error {
	if s.State() != StateRunning {
		return fmt.Errorf("engine is not running")
	}

	req := model.SyncRequest{Reason: reason, RequestedAt: time.Now()}
	select {
	case s.manualCh <- req:
	default:
	}

	return nil
}

// Stop cancels the run loop and waits up to the grace period for an
// in-flight attempt to finish. An attempt still running after that is
// abandoned and logged as interrupted.
func (s *Supervisor) Stop() error {
	if !s.transition(StateRunning, StateStopping) {
		return fmt.Errorf("cannot stop from state %s", s.State())
	}

	s.cancel()

	select {
	case <-s.doneCh:
	case <-time.After(s.cfg.GracePeriod):
		logger.Log.Warn("in-flight sync did not finish within grace period, abandoning")
	}

	s.w.Stop()
	_ = s.lock.Unlock()

	s.setState(StateStopped)
	s.notifier.Notify("gitpulse stopped", "no longer watching "+s.cfg.WatchRoot, notify.SeverityInfo)
	logger.Log.Info("supervisor stopped")

	return nil
}

func healthSummary(h model.HealthStatus) string {
	switch {
	case !h.VcsAvailable:
		return "git binary not found"
	case !h.RepoValid:
		return "watch root is not a valid repository"
	case !h.RemoteReachable:
		return "remote is unreachable"
	default:
		return "healthy"
	}
}
