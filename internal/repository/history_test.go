package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitpulse/internal/db"
	"gitpulse/internal/model"
)

func setupDB(t *testing.T) *HistoryRepository {
	t.Helper()
	require.NoError(t, db.Init(filepath.Join(t.TempDir(), "test.db")))
	return NewHistoryRepository()
}

func result(outcome model.Outcome, attempts int, errMsg string, at time.Time) model.SyncResult {
	return model.SyncResult{
		Outcome:    outcome,
		Attempts:   attempts,
		LastError:  errMsg,
		Reason:     "write a.go",
		FinishedAt: at,
	}
}

func TestHistorySaveAndGetRecent(t *testing.T) {
	repo := setupDB(t)
	now := time.Now()

	require.NoError(t, repo.Save(result(model.OutcomeSuccess, 1, "", now.Add(-2*time.Minute))))
	require.NoError(t, repo.Save(result(model.OutcomeFailed, 3, "push failed", now.Add(-time.Minute))))
	require.NoError(t, repo.Save(result(model.OutcomeSuccess, 2, "", now)))

	recent, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, model.OutcomeSuccess, recent[0].Outcome)
	assert.Equal(t, 2, recent[0].Attempts)
	assert.Equal(t, model.OutcomeFailed, recent[1].Outcome)
	assert.Equal(t, "push failed", recent[1].ErrMsg)
}

func TestHistoryStats(t *testing.T) {
	repo := setupDB(t)
	now := time.Now()

	require.NoError(t, repo.Save(result(model.OutcomeSuccess, 1, "", now)))
	require.NoError(t, repo.Save(result(model.OutcomeSuccess, 1, "", now)))
	require.NoError(t, repo.Save(result(model.OutcomeFailed, 3, "push failed", now)))

	stats, err := repo.GetStats()
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Success)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestHistoryGetFailed(t *testing.T) {
	repo := setupDB(t)
	now := time.Now()

	require.NoError(t, repo.Save(result(model.OutcomeSuccess, 1, "", now)))
	require.NoError(t, repo.Save(result(model.OutcomeFailed, 3, "remote unreachable", now)))

	failed, err := repo.GetFailed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "remote unreachable", failed[0].ErrMsg)
}
