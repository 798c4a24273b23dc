package model

import "time"

// RunStatus represents the lifecycle state of a batch run.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCanceled  RunStatus = "canceled"

	// StatusFailed is the terminal state for a run stopped by a backend
	// contract violation, such as a chunk resolving to the wrong number
	// of results. Per-image failures never put a run here.
	StatusFailed RunStatus = "failed"
)

// FailureStage distinguishes where a per-image failure happened: caption
// generation or caption persistence. A persistence failure must never be
// reported as a generation success.
type FailureStage string

const (
	StageGenerate FailureStage = "generate"
	StagePersist  FailureStage = "persist"
)

// FailureRecord is one per-image failure captured during a run.
type FailureRecord struct {
	Path  string       `json:"path"`
	Stage FailureStage `json:"stage"`
	Error string       `json:"error"`
}

// RunSnapshot is a read-only view of a batch run, safe to hand to callers
// while the run is still mutating its own state.
type RunSnapshot struct {
	ID        string          `json:"id"`
	Provider  string          `json:"provider"`
	Status    RunStatus       `json:"status"`
	Current   int             `json:"current"`
	Total     int             `json:"total"`
	Running   bool            `json:"running"`
	Canceled  bool            `json:"canceled"`
	Applied   int             `json:"applied"`
	Failures  []FailureRecord `json:"failures,omitempty"`
	Notices   []string        `json:"notices,omitempty"`
	Revision  int64           `json:"revision"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}
