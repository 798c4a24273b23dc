package backend

import (
	"context"
	"strings"

	"os/exec"

	"captionstudio/internal/config"
	"captionstudio/internal/model"
)

const joyCaptionChunkSize = 20

// JoyCaption runs the JoyCaption Python CLI. With a script path configured
// it runs the script directly; otherwise it invokes the joycaption module.
// Captioning mode and low-VRAM operation come from config, not the prompt.
type JoyCaption struct {
	cfg config.JoyCaptionConfig
}

func NewJoyCaption(cfg config.JoyCaptionConfig) *JoyCaption {
	return &JoyCaption{cfg: cfg}
}

func (j *JoyCaption) Name() string   { return ProviderJoyCaption }
func (j *JoyCaption) ChunkSize() int { return joyCaptionChunkSize }

func (j *JoyCaption) GenerateSingle(ctx context.Context, imagePath, _ string) model.CaptionResult {
	args := []string{}
	if j.cfg.ScriptPath != "" {
		args = append(args, j.cfg.ScriptPath)
	} else {
		args = append(args, "-m", "joycaption")
	}
	args = append(args, "--image", imagePath, "--mode", j.cfg.Mode)
	if j.cfg.LowVRAM {
		args = append(args, "--low-vram")
	}

	cmd := exec.CommandContext(ctx, j.cfg.PythonPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return model.Failure(imagePath, scriptError("JoyCaption", err))
	}

	return model.CaptionResult{
		Path:    imagePath,
		Success: true,
		Caption: strings.TrimSpace(string(out)),
	}
}

// GenerateBatch resolves a chunk sequentially. The model occupies the GPU
// for the whole call, so in-adapter parallelism buys nothing.
func (j *JoyCaption) GenerateBatch(ctx context.Context, paths []string, prompt string, _ int) []model.CaptionResult {
	results := make([]model.CaptionResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, j.GenerateSingle(ctx, path, prompt))
	}
	return results
}
