// Package controller coordinates batch runs: one active run per process,
// snapshots for polling, and a bounded history of finished runs.
package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/batch"
	"captionstudio/internal/model"
)

// historyLimit bounds how many finished runs are kept for late polling.
// Nothing survives a process restart.
const historyLimit = 20

// ErrRunActive is returned when a new run is requested while one is running.
var ErrRunActive = fmt.Errorf("a batch run is already active")

// RunController owns the lifecycle of batch runs.
type RunController struct {
	mu      sync.Mutex
	active  *batch.Runner
	history map[string]model.RunSnapshot
	order   []string
}

func NewRunController() *RunController {
	return &RunController{history: map[string]model.RunSnapshot{}}
}

// Start launches a validated job in the background and returns the initial
// snapshot. Fails with ErrRunActive while another run is in progress.
func (c *RunController) Start(ctx context.Context, job *batch.Job, store batch.CaptionWriter) (model.RunSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return model.RunSnapshot{}, ErrRunActive
	}

	runner := batch.NewRunner(uuid.NewString(), job, store)
	c.active = runner

	go func() {
		snap := runner.Run(ctx)

		c.mu.Lock()
		c.active = nil
		c.remember(snap)
		c.mu.Unlock()
	}()

	snap := runner.State().Snapshot()
	log.Info().Str("runId", snap.ID).Int("total", snap.Total).Msg("Batch run accepted")
	return snap, nil
}

// Get returns the snapshot for a run id, live or finished.
func (c *RunController) Get(id string) (model.RunSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.State().ID() == id {
		return c.active.State().Snapshot(), true
	}
	snap, ok := c.history[id]
	return snap, ok
}

// Active returns the snapshot of the currently running batch, if any.
func (c *RunController) Active() (model.RunSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return model.RunSnapshot{}, false
	}
	return c.active.State().Snapshot(), true
}

// Cancel requests cooperative cancellation of a run. Canceling a finished
// or unknown run is a no-op so the UI can race completion safely.
func (c *RunController) Cancel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.State().ID() == id {
		log.Info().Str("runId", id).Msg("Cancellation requested")
		c.active.State().RequestCancel()
	}
}

// remember stores a finished snapshot, evicting the oldest past the limit.
// Caller holds the lock.
func (c *RunController) remember(snap model.RunSnapshot) {
	c.history[snap.ID] = snap
	c.order = append(c.order, snap.ID)
	for len(c.order) > historyLimit {
		delete(c.history, c.order[0])
		c.order = c.order[1:]
	}
}
