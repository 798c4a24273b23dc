package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"captionstudio/internal/model"
)

// fakeGenerator is a scriptable backend without native batch support.
type fakeGenerator struct {
	name      string
	chunkSize int
	mu        sync.Mutex
	calls     []string
	results   map[string]model.CaptionResult
	onCall    func(path string)
}

func (f *fakeGenerator) Name() string   { return f.name }
func (f *fakeGenerator) ChunkSize() int { return f.chunkSize }

func (f *fakeGenerator) GenerateSingle(_ context.Context, path, _ string) model.CaptionResult {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(path)
	}
	if res, ok := f.results[path]; ok {
		res.Path = path
		return res
	}
	return model.CaptionResult{Path: path, Success: true, Caption: "tag1, tag2"}
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeBatchGenerator adds native chunk dispatch.
type fakeBatchGenerator struct {
	fakeGenerator
	mu           sync.Mutex
	chunksSeen   [][]string
	onChunkStart func(chunkIndex int)
}

func (f *fakeBatchGenerator) GenerateBatch(ctx context.Context, paths []string, prompt string, _ int) []model.CaptionResult {
	f.mu.Lock()
	idx := len(f.chunksSeen)
	f.chunksSeen = append(f.chunksSeen, append([]string(nil), paths...))
	f.mu.Unlock()
	if f.onChunkStart != nil {
		f.onChunkStart(idx)
	}
	results := make([]model.CaptionResult, len(paths))
	for i, p := range paths {
		results[i] = f.fakeGenerator.GenerateSingle(ctx, p, prompt)
	}
	return results
}

// memStore collects applied captions.
type memStore struct {
	mu      sync.Mutex
	applied map[string][]string
	failOn  map[string]bool
}

func newMemStore() *memStore {
	return &memStore{applied: map[string][]string{}, failOn: map[string]bool{}}
}

func (m *memStore) Write(path string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[path] {
		return fmt.Errorf("disk full")
	}
	m.applied[path] = tags
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func targetList(n int) []model.ImageRef {
	targets := make([]model.ImageRef, n)
	for i := range targets {
		targets[i] = model.ImageRef{
			ID:   fmt.Sprintf("img-%02d", i),
			Path: fmt.Sprintf("/p/img-%02d.png", i),
		}
	}
	return targets
}

func TestNewJobValidation(t *testing.T) {
	gen := &fakeGenerator{name: "fake", chunkSize: 1}

	if _, err := NewJob(nil, gen, "p", 2); err != ErrSelectionEmpty {
		t.Errorf("empty targets: got %v, want ErrSelectionEmpty", err)
	}
	if _, err := NewJob(targetList(1), nil, "p", 2); err == nil {
		t.Error("nil generator must be a construction error")
	}
	for _, c := range []int{0, -1, 9} {
		if _, err := NewJob(targetList(1), gen, "p", c); err == nil {
			t.Errorf("concurrency %d must be rejected", c)
		}
	}
	if _, err := NewJob(targetList(1), gen, "p", 8); err != nil {
		t.Errorf("concurrency 8 is legal: %v", err)
	}
}

func TestRunCompletesAndAppliesAll(t *testing.T) {
	gen := &fakeBatchGenerator{fakeGenerator: fakeGenerator{name: "lmstudio", chunkSize: 5}}
	store := newMemStore()

	job, err := NewJob(targetList(12), gen, "prompt", 2)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-1", job, store).Run(context.Background())

	if snap.Status != model.StatusCompleted {
		t.Errorf("status: got %s", snap.Status)
	}
	if snap.Current != 12 || snap.Total != 12 {
		t.Errorf("progress: got %d/%d", snap.Current, snap.Total)
	}
	if snap.Running {
		t.Error("running must be false after the run")
	}
	if store.count() != 12 {
		t.Errorf("applied: got %d, want 12", store.count())
	}

	// Chunks of 5, 5, 2 in input order.
	if len(gen.chunksSeen) != 3 {
		t.Fatalf("chunks: got %d, want 3", len(gen.chunksSeen))
	}
	sizes := []int{len(gen.chunksSeen[0]), len(gen.chunksSeen[1]), len(gen.chunksSeen[2])}
	if sizes[0] != 5 || sizes[1] != 5 || sizes[2] != 2 {
		t.Errorf("chunk sizes: got %v", sizes)
	}
	if gen.chunksSeen[0][0] != "/p/img-00.png" || gen.chunksSeen[2][1] != "/p/img-11.png" {
		t.Error("chunks not in input order")
	}
}

func TestRunCancelAfterFirstChunk(t *testing.T) {
	gen := &fakeBatchGenerator{fakeGenerator: fakeGenerator{name: "lmstudio", chunkSize: 5}}
	store := newMemStore()

	job, err := NewJob(targetList(12), gen, "prompt", 2)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner("run-1", job, store)

	// Cancel while chunk 0 is in flight: the chunk completes and its
	// results are applied, later chunks never start.
	gen.onChunkStart = func(int) { runner.State().RequestCancel() }

	snap := runner.Run(context.Background())

	if snap.Status != model.StatusCanceled {
		t.Errorf("status: got %s", snap.Status)
	}
	if len(gen.chunksSeen) != 1 {
		t.Errorf("chunks dispatched after cancel: got %d, want 1", len(gen.chunksSeen))
	}
	if snap.Current != 5 || snap.Total != 12 {
		t.Errorf("progress: got %d/%d, want 5/12", snap.Current, snap.Total)
	}
	if store.count() != 5 {
		t.Errorf("in-flight chunk results must still be applied: got %d", store.count())
	}

	// Conservation: applied + failed + skipped == total.
	skipped := snap.Total - snap.Current
	if snap.Applied+len(snap.Failures)+skipped != snap.Total {
		t.Errorf("conservation violated: %d + %d + %d != %d",
			snap.Applied, len(snap.Failures), skipped, snap.Total)
	}
}

func TestRunSequentialFallbackForNonBatchProvider(t *testing.T) {
	gen := &fakeGenerator{name: "wd14", chunkSize: 1}
	store := newMemStore()

	job, err := NewJob(targetList(4), gen, "prompt", 2)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-1", job, store).Run(context.Background())

	if snap.Status != model.StatusCompleted {
		t.Errorf("status: got %s", snap.Status)
	}
	if gen.callCount() != 4 {
		t.Errorf("single calls: got %d, want 4", gen.callCount())
	}
	if store.count() != 4 {
		t.Errorf("applied: got %d", store.count())
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	targets := targetList(6)
	gen := &fakeGenerator{
		name:      "wd14",
		chunkSize: 1,
		results: map[string]model.CaptionResult{
			// Failure on the very first item does not abort the batch.
			targets[0].Path: {Success: false, Error: "connection refused"},
			targets[3].Path: {Success: false, Error: "bad response"},
		},
	}
	store := newMemStore()

	job, err := NewJob(targets, gen, "prompt", 1)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-1", job, store).Run(context.Background())

	if snap.Status != model.StatusCompleted {
		t.Errorf("status: got %s", snap.Status)
	}
	if gen.callCount() != 6 {
		t.Errorf("all items must be attempted: got %d calls", gen.callCount())
	}
	if len(snap.Failures) != 2 {
		t.Fatalf("failures: got %d, want 2", len(snap.Failures))
	}
	if snap.Applied != 4 {
		t.Errorf("applied: got %d, want 4", snap.Applied)
	}
	if snap.Applied+len(snap.Failures) != snap.Total {
		t.Error("conservation violated for completed run")
	}
	for _, f := range snap.Failures {
		if f.Stage != model.StageGenerate {
			t.Errorf("stage: got %s", f.Stage)
		}
	}
}

func TestRunPersistFailureIsRecordedDistinctly(t *testing.T) {
	targets := targetList(2)
	gen := &fakeGenerator{name: "wd14", chunkSize: 1}
	store := newMemStore()
	store.failOn[targets[1].Path] = true

	job, err := NewJob(targets, gen, "prompt", 1)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-1", job, store).Run(context.Background())

	if snap.Applied != 1 {
		t.Errorf("applied: got %d, want 1", snap.Applied)
	}
	if len(snap.Failures) != 1 {
		t.Fatalf("failures: got %d, want 1", len(snap.Failures))
	}
	f := snap.Failures[0]
	if f.Stage != model.StagePersist {
		t.Errorf("stage: got %s, want persist", f.Stage)
	}
	if !strings.Contains(f.Error, "disk full") {
		t.Errorf("error: got %q", f.Error)
	}
}

func TestRunEmitsOneNoticePerFailedChunk(t *testing.T) {
	targets := targetList(10)
	longErr := strings.Repeat("x", 300)
	gen := &fakeBatchGenerator{fakeGenerator: fakeGenerator{
		name:      "lmstudio",
		chunkSize: 5,
		results: map[string]model.CaptionResult{
			targets[0].Path: {Success: false, Error: longErr},
			targets[2].Path: {Success: false, Error: "second error"},
		},
	}}
	store := newMemStore()

	job, err := NewJob(targets, gen, "prompt", 1)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-1", job, store).Run(context.Background())

	// Chunk 1 had two failures -> one notice; chunk 2 was clean.
	if len(snap.Notices) != 1 {
		t.Fatalf("notices: got %d, want 1 (%v)", len(snap.Notices), snap.Notices)
	}
	notice := snap.Notices[0]
	if !strings.HasPrefix(notice, "2/5 captions failed in chunk:") {
		t.Errorf("notice: got %q", notice)
	}
	// First error wins, truncated to 200 runes plus ellipsis.
	if !strings.Contains(notice, strings.Repeat("x", 200)+"…") {
		t.Errorf("notice not truncated as expected: %q", notice)
	}
	if strings.Contains(notice, "second error") {
		t.Errorf("notice must only carry the first error: %q", notice)
	}
}

// shortChunkGenerator drops the last result of every chunk, violating the
// one-result-per-input contract.
type shortChunkGenerator struct {
	fakeGenerator
}

func (g *shortChunkGenerator) GenerateBatch(ctx context.Context, paths []string, prompt string, _ int) []model.CaptionResult {
	results := make([]model.CaptionResult, 0, len(paths))
	for _, p := range paths[:len(paths)-1] {
		results = append(results, g.GenerateSingle(ctx, p, prompt))
	}
	return results
}

func TestRunFailsOnChunkResultCountMismatch(t *testing.T) {
	gen := &shortChunkGenerator{fakeGenerator: fakeGenerator{name: "lmstudio", chunkSize: 5}}
	store := newMemStore()

	job, err := NewJob(targetList(12), gen, "prompt", 1)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-mismatch", job, store).Run(context.Background())

	if snap.Status != model.StatusFailed {
		t.Fatalf("status: got %s, want failed", snap.Status)
	}
	if snap.Running {
		t.Error("running must be false after a failed run")
	}
	// The broken chunk is discarded, nothing from it is applied.
	if store.count() != 0 {
		t.Errorf("applied: got %d, want 0", store.count())
	}
	if len(snap.Notices) != 1 || !strings.Contains(snap.Notices[0], "4 results for a chunk of 5") {
		t.Errorf("notices: got %v", snap.Notices)
	}

	// Failed is terminal; a late cancel request does not flip the status.
	state := NewRunState("run-f", "lmstudio", 1)
	state.start()
	state.finish(model.StatusFailed)
	state.RequestCancel()
	if after := state.Snapshot(); after.Status != model.StatusFailed || after.Canceled {
		t.Errorf("after cancel on failed run: %+v", after)
	}
}

func TestRequestCancelAfterCompletionIsNoop(t *testing.T) {
	gen := &fakeGenerator{name: "wd14", chunkSize: 1}
	store := newMemStore()
	job, err := NewJob(targetList(1), gen, "p", 1)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner("run-1", job, store)
	snap := runner.Run(context.Background())
	if snap.Status != model.StatusCompleted {
		t.Fatal("precondition: run completed")
	}

	runner.State().RequestCancel()
	after := runner.State().Snapshot()
	if after.Status != model.StatusCompleted || after.Canceled {
		t.Errorf("cancel after completion must be a no-op: %+v", after)
	}
}

func TestRevisionSignalsViewInvalidation(t *testing.T) {
	gen := &fakeGenerator{name: "wd14", chunkSize: 1}
	store := newMemStore()
	job, err := NewJob(targetList(3), gen, "p", 1)
	if err != nil {
		t.Fatal(err)
	}
	snap := NewRunner("run-1", job, store).Run(context.Background())

	// One bump per applied caption plus one at run end.
	if snap.Revision != 4 {
		t.Errorf("revision: got %d, want 4", snap.Revision)
	}
}
