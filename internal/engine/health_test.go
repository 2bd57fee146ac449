package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAllHealthy(t *testing.T) {
	client := newFakeClient()
	monitor := NewMonitor(client)

	status := monitor.Check(context.Background())

	assert.True(t, status.VcsAvailable)
	assert.True(t, status.RepoValid)
	assert.True(t, status.RemoteReachable)
	assert.True(t, status.Healthy())
	assert.False(t, status.CheckedAt.IsZero())
}

func TestCheckRemoteUnreachable(t *testing.T) {
	client := newFakeClient()
	client.remoteReachable = false
	monitor := NewMonitor(client)

	status := monitor.Check(context.Background())

	assert.True(t, status.VcsAvailable)
	assert.True(t, status.RepoValid)
	assert.False(t, status.RemoteReachable)
	assert.False(t, status.Healthy())

	// A health check must never touch the working tree.
	assert.Zero(t, client.callCount("stage"))
	assert.Zero(t, client.callCount("commit"))
	assert.Zero(t, client.callCount("push"))
}

func TestCheckVcsMissingShortCircuits(t *testing.T) {
	client := newFakeClient()
	client.available = false
	monitor := NewMonitor(client)

	status := monitor.Check(context.Background())

	assert.False(t, status.VcsAvailable)
	assert.False(t, status.RepoValid)
	assert.False(t, status.RemoteReachable)
}
