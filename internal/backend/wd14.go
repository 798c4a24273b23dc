package backend

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"captionstudio/internal/config"
	"captionstudio/internal/model"
)

// Wd14 runs a user-provided WD14 tagger script that prints Danbooru-style
// comma-separated tags to stdout. Invocation: python <script> --image <path>.
// The prompt is ignored; the tagger is not instruction-driven. No native
// batch support, so the runner dispatches item by item.
type Wd14 struct {
	cfg config.Wd14Config
}

func NewWd14(cfg config.Wd14Config) *Wd14 {
	return &Wd14{cfg: cfg}
}

func (w *Wd14) Name() string   { return ProviderWd14 }
func (w *Wd14) ChunkSize() int { return 1 }

func (w *Wd14) GenerateSingle(ctx context.Context, imagePath, _ string) model.CaptionResult {
	if w.cfg.ScriptPath == "" {
		return model.Failure(imagePath, "WD14 script path is not set")
	}

	cmd := exec.CommandContext(ctx, w.cfg.PythonPath, w.cfg.ScriptPath, "--image", imagePath)
	out, err := cmd.Output()
	if err != nil {
		return model.Failure(imagePath, scriptError("WD14", err))
	}

	return model.CaptionResult{
		Path:    imagePath,
		Success: true,
		Caption: strings.TrimSpace(string(out)),
	}
}

// scriptError turns a subprocess failure into a readable message, preferring
// captured stderr over the bare exit status.
func scriptError(name string, err error) string {
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		if stderr != "" {
			return stderr
		}
		return fmt.Sprintf("%s script exited with code %d", name, exitErr.ExitCode())
	}
	return fmt.Sprintf("failed to start %s script: %v", name, err)
}
