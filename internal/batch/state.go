package batch

import (
	"sync"
	"time"

	"captionstudio/internal/model"
)

// RunState tracks the live progress of one batch run. The runner is the
// sole mutator; any number of concurrent readers may take snapshots or
// request cancellation at any time, including after the run has ended.
type RunState struct {
	mu sync.Mutex

	id       string
	provider string
	status   model.RunStatus
	current  int
	total    int
	canceled bool
	running  bool
	applied  int
	failures []model.FailureRecord
	notices  []string

	// revision bumps on every applied caption and once at run end. Callers
	// treat a change as a view-invalidation signal.
	revision int64

	startedAt time.Time
	endedAt   *time.Time
}

func NewRunState(id, provider string, total int) *RunState {
	return &RunState{
		id:       id,
		provider: provider,
		status:   model.StatusIdle,
		total:    total,
	}
}

func (s *RunState) ID() string { return s.id }

// Snapshot returns a read-only copy of the current state.
func (s *RunState) Snapshot() model.RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.RunSnapshot{
		ID:        s.id,
		Provider:  s.provider,
		Status:    s.status,
		Current:   s.current,
		Total:     s.total,
		Running:   s.running,
		Canceled:  s.canceled,
		Applied:   s.applied,
		Failures:  append([]model.FailureRecord(nil), s.failures...),
		Notices:   append([]string(nil), s.notices...),
		Revision:  s.revision,
		StartedAt: s.startedAt,
	}
	if s.endedAt != nil {
		ended := *s.endedAt
		snap.EndedAt = &ended
	}
	return snap
}

// RequestCancel sets the cancellation flag. Safe to call at any time; after
// the run has ended it is a no-op. In-flight work is never interrupted, the
// flag is only honored at chunk boundaries.
func (s *RunState) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == model.StatusCompleted || s.status == model.StatusFailed {
		return
	}
	s.canceled = true
}

func (s *RunState) IsCanceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

func (s *RunState) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = model.StatusRunning
	s.running = true
	s.current = 0
	s.startedAt = time.Now()
}

// advance moves the progress cursor forward, clamped to total. current is
// monotone within a run.
func (s *RunState) advance(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current += n
	if s.current > s.total {
		s.current = s.total
	}
}

func (s *RunState) recordApplied() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied++
	s.revision++
}

func (s *RunState) recordFailure(rec model.FailureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, rec)
}

func (s *RunState) addNotice(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
}

// failuresSince returns the failures recorded at or after index from.
func (s *RunState) failuresSince(from int) []model.FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from >= len(s.failures) {
		return nil
	}
	return append([]model.FailureRecord(nil), s.failures[from:]...)
}

func (s *RunState) failureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

func (s *RunState) finish(status model.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.running = false
	now := time.Now()
	s.endedAt = &now
	s.revision++
}
