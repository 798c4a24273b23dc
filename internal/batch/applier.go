package batch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"captionstudio/internal/captions"
	"captionstudio/internal/model"
)

// maxNoticeErrorLen caps the error text embedded in a chunk notice so a
// single toast stays readable.
const maxNoticeErrorLen = 200

// CaptionWriter persists the parsed tags of a successful caption.
type CaptionWriter interface {
	Write(imagePath string, tags []string) error
}

// Applier hands each caption result to durable storage. Generation failures
// and persistence failures both land in the run's failure list, tagged with
// their stage; a persistence failure is never counted as applied.
type Applier struct {
	store CaptionWriter
	state *RunState
}

func NewApplier(store CaptionWriter, state *RunState) *Applier {
	return &Applier{store: store, state: state}
}

// Apply persists one result. Called once per image, immediately as results
// arrive; writes are never batched.
func (a *Applier) Apply(res model.CaptionResult) {
	if !res.Success {
		a.state.recordFailure(model.FailureRecord{
			Path:  res.Path,
			Stage: model.StageGenerate,
			Error: res.Error,
		})
		return
	}

	tags := captions.ParseTags(res.Caption)
	if err := a.store.Write(res.Path, tags); err != nil {
		log.Error().Err(err).Str("path", res.Path).Msg("Failed to persist caption")
		a.state.recordFailure(model.FailureRecord{
			Path:  res.Path,
			Stage: model.StagePersist,
			Error: err.Error(),
		})
		return
	}

	a.state.recordApplied()
}

// chunkNotice builds the single aggregated line reported for a chunk that
// had failures: failed/total counts plus the first error, truncated.
func chunkNotice(failed []model.FailureRecord, chunkTotal int) string {
	first := truncateError(failed[0].Error, maxNoticeErrorLen)
	return fmt.Sprintf("%d/%d captions failed in chunk: %s", len(failed), chunkTotal, first)
}

func truncateError(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
