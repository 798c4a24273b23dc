package backend

import (
	"context"
	"sync"

	"captionstudio/internal/model"
)

const maxFanOut = 8

// fanOut runs generate over paths with a bounded worker pool and returns the
// results in input order. Concurrency is clamped to [1, 8]; each result
// lands in its original slot, so no re-sort is needed.
func fanOut(ctx context.Context, paths []string, concurrency int, generate func(context.Context, string) model.CaptionResult) []model.CaptionResult {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > maxFanOut {
		concurrency = maxFanOut
	}
	if concurrency > len(paths) {
		concurrency = len(paths)
	}

	results := make([]model.CaptionResult, len(paths))

	type work struct {
		index int
		path  string
	}
	workChan := make(chan work, len(paths))

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for w := range workChan {
				results[w.index] = generate(ctx, w.path)
			}
		}()
	}

	for i, path := range paths {
		workChan <- work{index: i, path: path}
	}
	close(workChan)

	wg.Wait()
	return results
}
