package controller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"captionstudio/internal/batch"
	"captionstudio/internal/model"
)

type slowGenerator struct {
	release chan struct{}
}

func (g *slowGenerator) Name() string   { return "lmstudio" }
func (g *slowGenerator) ChunkSize() int { return 5 }

func (g *slowGenerator) GenerateSingle(ctx context.Context, imagePath, prompt string) model.CaptionResult {
	if g.release != nil {
		<-g.release
	}
	return model.CaptionResult{Path: imagePath, Success: true, Caption: "a caption"}
}

type nopStore struct{}

func (nopStore) Write(imagePath string, tags []string) error { return nil }

func targets(n int) []model.ImageRef {
	refs := make([]model.ImageRef, n)
	for i := range refs {
		refs[i] = model.ImageRef{ID: fmt.Sprintf("img-%d", i), Path: fmt.Sprintf("/tmp/img-%d.png", i)}
	}
	return refs
}

func waitFinished(t *testing.T, c *RunController, id string) model.RunSnapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if snap, ok := c.Get(id); ok {
			switch snap.Status {
			case model.StatusCompleted, model.StatusCanceled, model.StatusFailed:
				return snap
			}
		}
		select {
		case <-deadline:
			t.Fatalf("run %s did not finish in time", id)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartRejectsSecondRun(t *testing.T) {
	c := NewRunController()
	gen := &slowGenerator{release: make(chan struct{})}

	job, err := batch.NewJob(targets(3), gen, "p", 1)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	snap, err := c.Start(context.Background(), job, nopStore{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := c.Start(context.Background(), job, nopStore{}); err != ErrRunActive {
		t.Fatalf("second Start error = %v, want ErrRunActive", err)
	}

	close(gen.release)
	final := waitFinished(t, c, snap.ID)
	if final.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}

	// The slot frees up once the run ends.
	gen2 := &slowGenerator{}
	job2, _ := batch.NewJob(targets(1), gen2, "p", 1)
	snap2, err := c.Start(context.Background(), job2, nopStore{})
	if err != nil {
		t.Fatalf("Start after finish: %v", err)
	}
	waitFinished(t, c, snap2.ID)
}

func TestFinishedRunStaysQueryable(t *testing.T) {
	c := NewRunController()
	job, _ := batch.NewJob(targets(2), &slowGenerator{}, "p", 1)

	snap, err := c.Start(context.Background(), job, nopStore{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitFinished(t, c, snap.ID)
	if final.Applied != 2 {
		t.Fatalf("applied = %d, want 2", final.Applied)
	}
	if _, ok := c.Active(); ok {
		t.Fatal("Active reported a run after completion")
	}
}

func TestCancelUnknownRunIsNoop(t *testing.T) {
	c := NewRunController()
	c.Cancel("no-such-run")

	if _, ok := c.Get("no-such-run"); ok {
		t.Fatal("Get returned a snapshot for an unknown id")
	}
}

func TestCancelStopsActiveRun(t *testing.T) {
	c := NewRunController()
	gen := &slowGenerator{release: make(chan struct{}, 64)}
	gen.release <- struct{}{} // let the first call through, then hold

	job, _ := batch.NewJob(targets(12), gen, "p", 1)
	snap, err := c.Start(context.Background(), job, nopStore{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	c.Cancel(snap.ID)
	go func() {
		for i := 0; i < 64; i++ {
			gen.release <- struct{}{}
		}
	}()

	final := waitFinished(t, c, snap.ID)
	if final.Status != model.StatusCanceled {
		t.Fatalf("status = %s, want canceled", final.Status)
	}
	if final.Current == final.Total {
		t.Fatal("canceled run still processed every chunk")
	}
}
