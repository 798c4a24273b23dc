// Package batch contains the batch captioning core: target selection,
// chunked dispatch to a captioning backend, cooperative cancellation,
// progress tracking and result application.
package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"captionstudio/internal/backend"
	"captionstudio/internal/model"
)

const (
	minConcurrency = 1
	maxConcurrency = 8
)

// Job is the immutable description of one batch run, created once at run
// start. Targets are a snapshot and are not refreshed mid-run.
type Job struct {
	Targets     []model.ImageRef
	Generator   backend.Generator
	Prompt      string
	Concurrency int
}

// NewJob validates the run parameters. These are the only errors a run can
// raise before dispatch; everything after this point is recovered per image.
func NewJob(targets []model.ImageRef, gen backend.Generator, promptText string, concurrency int) (*Job, error) {
	if gen == nil {
		return nil, fmt.Errorf("no caption backend configured")
	}
	if len(targets) == 0 {
		return nil, ErrSelectionEmpty
	}
	if concurrency < minConcurrency || concurrency > maxConcurrency {
		return nil, fmt.Errorf("concurrency must be between %d and %d, got %d",
			minConcurrency, maxConcurrency, concurrency)
	}
	return &Job{
		Targets:     targets,
		Generator:   gen,
		Prompt:      promptText,
		Concurrency: concurrency,
	}, nil
}

// ErrSelectionEmpty is reported when the target selector produced zero
// images; the run never transitions to running.
var ErrSelectionEmpty = fmt.Errorf("selection is empty: no images to caption")

// Runner drives one batch run to a terminal state. A Runner is used exactly
// once and discarded with its state when the run ends.
type Runner struct {
	job     *Job
	state   *RunState
	applier *Applier
}

func NewRunner(id string, job *Job, store CaptionWriter) *Runner {
	state := NewRunState(id, job.Generator.Name(), len(job.Targets))
	return &Runner{
		job:     job,
		state:   state,
		applier: NewApplier(store, state),
	}
}

// State exposes the run state for snapshots and cancellation requests.
func (r *Runner) State() *RunState {
	return r.state
}

// Run executes the batch to completion or cancellation. The given context
// is the process lifetime, not the cancel signal: user cancellation is a
// flag honored only at chunk boundaries, so in-flight calls always finish
// and their results are still applied.
func (r *Runner) Run(ctx context.Context) model.RunSnapshot {
	r.state.start()

	gen := r.job.Generator
	batchGen, hasNativeBatch := gen.(backend.BatchGenerator)

	paths := make([]string, len(r.job.Targets))
	for i, img := range r.job.Targets {
		paths[i] = img.Path
	}

	chunks := SplitIntoChunks(paths, gen.ChunkSize())

	log.Info().
		Str("runId", r.state.ID()).
		Str("provider", gen.Name()).
		Int("total", len(paths)).
		Int("chunks", len(chunks)).
		Bool("nativeBatch", hasNativeBatch).
		Msg("Batch run started")

	runFailed := false
	for _, chunk := range chunks {
		if r.state.IsCanceled() {
			break
		}

		failuresBefore := r.state.failureCount()

		var results []model.CaptionResult
		if hasNativeBatch {
			// One atomic suspension point per chunk; the adapter owns any
			// internal fan-out and returns the fully resolved chunk.
			results = batchGen.GenerateBatch(ctx, chunk, r.job.Prompt, r.job.Concurrency)
			if len(results) != len(chunk) {
				// A chunk must resolve one result per input. Anything else
				// breaks per-image accounting, so the run stops as failed
				// instead of guessing which images the results belong to.
				notice := fmt.Sprintf("%s returned %d results for a chunk of %d images",
					gen.Name(), len(results), len(chunk))
				r.state.addNotice(notice)
				log.Error().Str("runId", r.state.ID()).Msg(notice)
				runFailed = true
				break
			}
		} else {
			for _, path := range chunk {
				if len(results) > 0 && r.state.IsCanceled() {
					break
				}
				results = append(results, gen.GenerateSingle(ctx, path, r.job.Prompt))
			}
		}

		for _, res := range results {
			r.applier.Apply(res)
		}
		r.state.advance(len(results))

		if failed := r.state.failuresSince(failuresBefore); len(failed) > 0 {
			notice := chunkNotice(failed, len(chunk))
			r.state.addNotice(notice)
			log.Warn().Str("runId", r.state.ID()).Msg(notice)
		}
	}

	status := model.StatusCompleted
	switch {
	case runFailed:
		status = model.StatusFailed
	case r.state.IsCanceled():
		status = model.StatusCanceled
	}
	r.state.finish(status)

	snap := r.state.Snapshot()
	log.Info().
		Str("runId", snap.ID).
		Str("status", string(snap.Status)).
		Int("applied", snap.Applied).
		Int("failed", len(snap.Failures)).
		Int("current", snap.Current).
		Int("total", snap.Total).
		Msg("Batch run finished")

	return snap
}
