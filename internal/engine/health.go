package engine

import (
	"context"
	"time"

	"gitpulse/internal/model"
)

// Monitor recomputes repository health from scratch on every check.
// All probes are read-only, so checks may overlap a sync attempt.
type Monitor struct {
	client GitClient
}

func NewMonitor(client GitClient) *Monitor {
	return &Monitor{client: client}
}

func (m *Monitor) Check(ctx context.Context) model.HealthStatus {
	status := model.HealthStatus{CheckedAt: time.Now()}

	status.VcsAvailable = m.client.Available()
	if !status.VcsAvailable {
		return status
	}

	status.RepoValid = m.client.CheckRepository(ctx)
	status.RemoteReachable = m.client.CheckRemote(ctx)

	return status
}
