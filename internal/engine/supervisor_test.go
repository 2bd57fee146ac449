package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitpulse/internal/config"
	"gitpulse/internal/gitrepo"
	"gitpulse/internal/notify"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))

	return &config.Config{
		WatchRoot:           root,
		DebounceWindow:      50 * time.Millisecond,
		MaxRetries:          2,
		RetryBackoff:        10 * time.Millisecond,
		HealthCheckInterval: time.Hour,
		CommandTimeout:      time.Second,
		GracePeriod:         3 * time.Second,
		IgnorePatterns:      []string{".git", "*.log", "*.tmp"},
		BufferSize:          16,
	}
}

func newTestSupervisor(t *testing.T, client *fakeClient) *Supervisor {
	t.Helper()

	cfg := testConfig(t)
	client.gitDir = filepath.Join(cfg.WatchRoot, ".git")
	return NewSupervisor(cfg, client, notify.NopNotifier{}, nil)
}

func TestSupervisorStartupFailsWhenRepoInvalid(t *testing.T) {
	client := newFakeClient()
	client.repoValid = false

	sup := newTestSupervisor(t, client)
	err := sup.Start()

	require.Error(t, err)
	assert.Equal(t, StateStopped, sup.State())
}

func TestSupervisorStartupFailsWhenVcsMissing(t *testing.T) {
	client := newFakeClient()
	client.available = false

	sup := newTestSupervisor(t, client)
	err := sup.Start()

	require.Error(t, err)
	assert.Equal(t, StateStopped, sup.State())
}

func TestSupervisorStartStop(t *testing.T) {
	client := newFakeClient()
	sup := newTestSupervisor(t, client)

	require.NoError(t, sup.Start())
	assert.Equal(t, StateRunning, sup.State())

	assert.Error(t, sup.Start(), "double start must be rejected")

	require.NoError(t, sup.Stop())
	assert.Equal(t, StateStopped, sup.State())
}

func TestSupervisorSyncsOnFileChange(t *testing.T) {
	client := newFakeClient()
	client.statusPaths = []string{"a.go"}

	sup := newTestSupervisor(t, client)
	require.NoError(t, sup.Start())
	defer func() { _ = sup.Stop() }()

	path := filepath.Join(sup.cfg.WatchRoot, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0644))

	require.Eventually(t, func() bool {
		return sup.Stats().Synced == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, 1, client.callCount("commit"))
	assert.Equal(t, 1, client.callCount("push"))
}

func TestSupervisorManualTrigger(t *testing.T) {
	client := newFakeClient()
	client.statusPaths = []string{"a.go"}

	sup := newTestSupervisor(t, client)
	require.NoError(t, sup.Start())
	defer func() { _ = sup.Stop() }()

	require.NoError(t, sup.TriggerSync("manual"))

	require.Eventually(t, func() bool {
		return sup.Stats().Synced == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSupervisorTriggerRejectedWhenStopped(t *testing.T) {
	client := newFakeClient()
	sup := newTestSupervisor(t, client)

	assert.Error(t, sup.TriggerSync("manual"))
}

func TestSupervisorDegradedHealthDoesNotSync(t *testing.T) {
	client := newFakeClient()
	sup := newTestSupervisor(t, client)
	sup.cfg.HealthCheckInterval = 50 * time.Millisecond

	require.NoError(t, sup.Start())
	defer func() { _ = sup.Stop() }()

	client.setRemoteReachable(false)

	require.Eventually(t, func() bool {
		return !sup.Health().RemoteReachable
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, StateRunning, sup.State())
	assert.Zero(t, client.callCount("push"))
}

func TestSupervisorHealthCheckRunsDuringSyncAttempt(t *testing.T) {
	client := newFakeClient()
	client.statusPaths = []string{"a.go"}
	client.statusDelay = 2 * time.Second

	cfg := testConfig(t)
	cfg.HealthCheckInterval = 50 * time.Millisecond
	client.gitDir = filepath.Join(cfg.WatchRoot, ".git")
	sup := NewSupervisor(cfg, client, notify.NopNotifier{}, nil)

	require.NoError(t, sup.Start())
	defer func() { _ = sup.Stop() }()

	require.NoError(t, sup.TriggerSync("manual"))
	require.Eventually(t, func() bool {
		return client.callCount("status") >= 1
	}, time.Second, 10*time.Millisecond)

	// The attempt is parked in its slow status call; the health ticker
	// must keep firing and observe the flipped remote in the meantime.
	client.setRemoteReachable(false)
	require.Eventually(t, func() bool {
		return !sup.Health().RemoteReachable
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return sup.Stats().Synced == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSupervisorWatchRootInRepoSubdirectory(t *testing.T) {
	repoRoot := t.TempDir()
	gitDir := filepath.Join(repoRoot, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))
	watchRoot := filepath.Join(repoRoot, "pkg")
	require.NoError(t, os.MkdirAll(watchRoot, 0755))

	client := newFakeClient()
	client.gitDir = gitDir

	cfg := testConfig(t)
	cfg.WatchRoot = watchRoot
	sup := NewSupervisor(cfg, client, notify.NopNotifier{}, nil)

	require.NoError(t, sup.Start())

	_, err := os.Stat(filepath.Join(gitDir, "gitpulse.lock"))
	assert.NoError(t, err, "lock file must live in the resolved git dir")

	require.NoError(t, sup.Stop())
}

func TestSupervisorStopDuringBackoff(t *testing.T) {
	client := newFakeClient()
	client.statusPaths = []string{"a.go"}
	pushErr := &gitrepo.GitError{Op: "push", Err: gitrepo.ErrPushFailed}
	client.pushErrs = []error{pushErr, pushErr, pushErr}

	cfg := testConfig(t)
	cfg.RetryBackoff = 10 * time.Second
	client.gitDir = filepath.Join(cfg.WatchRoot, ".git")
	sup := NewSupervisor(cfg, client, notify.NopNotifier{}, nil)

	require.NoError(t, sup.Start())
	require.NoError(t, sup.TriggerSync("manual"))

	// Wait until the attempt is parked in its backoff sleep.
	require.Eventually(t, func() bool {
		return client.callCount("push") == 1
	}, 3*time.Second, 10*time.Millisecond)

	start := time.Now()
	require.NoError(t, sup.Stop())

	assert.Less(t, time.Since(start), sup.cfg.GracePeriod)
	assert.Equal(t, StateStopped, sup.State())
	assert.Equal(t, 1, client.callCount("push"), "pending retry must be abandoned")
}
