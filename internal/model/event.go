package model

import "time"

type EventType string

const (
	EventCreate EventType = "CREATE"
	EventWrite  EventType = "WRITE"
	EventRemove EventType = "REMOVE"
	EventRename EventType = "RENAME"
)

// ChangeEvent is a single filesystem notification as seen by the watcher.
type ChangeEvent struct {
	Type       EventType
	Path       string
	ObservedAt time.Time
}

// SyncRequest is emitted once a burst of change events has settled.
// It is one-shot: consumed by exactly one pipeline attempt.
type SyncRequest struct {
	Reason      string
	RequestedAt time.Time
}

type Outcome string

const (
	OutcomeNoChanges Outcome = "NO_CHANGES"
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailed    Outcome = "FAILED"

	// OutcomeDeferred means another attempt held the single-flight lock;
	// the caller is expected to re-queue the request.
	OutcomeDeferred Outcome = "DEFERRED"
)

// SyncResult is the terminal record of one pipeline invocation.
// Never mutated after creation.
type SyncResult struct {
	Outcome    Outcome
	Attempts   int
	LastError  string
	Reason     string
	FinishedAt time.Time
}

// HealthStatus is recomputed wholesale on every check; no history is kept.
type HealthStatus struct {
	VcsAvailable    bool      `json:"vcs_available"`
	RepoValid       bool      `json:"repo_valid"`
	RemoteReachable bool      `json:"remote_reachable"`
	CheckedAt       time.Time `json:"checked_at"`
}

func (h HealthStatus) Healthy() bool {
	return h.VcsAvailable && h.RepoValid && h.RemoteReachable
}
