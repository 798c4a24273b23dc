package backend

import (
	"context"
	"fmt"
	"strings"

	"captionstudio/internal/model"
)

// Hybrid composes a tag-style generator (WD14) with a prose generator
// (JoyCaption) and joins their outputs into one caption. A failed half
// degrades to an empty string; the merged result is a failure only when
// both halves come back empty. The tagger half has no native batch, so
// neither does Hybrid.
type Hybrid struct {
	tagger    Generator
	captioner Generator
}

func NewHybrid(tagger, captioner Generator) *Hybrid {
	return &Hybrid{tagger: tagger, captioner: captioner}
}

func (h *Hybrid) Name() string   { return ProviderHybrid }
func (h *Hybrid) ChunkSize() int { return 1 }

func (h *Hybrid) GenerateSingle(ctx context.Context, imagePath, prompt string) model.CaptionResult {
	tagRes := h.tagger.GenerateSingle(ctx, imagePath, prompt)
	capRes := h.captioner.GenerateSingle(ctx, imagePath, prompt)

	tagHalf := ""
	if tagRes.Success {
		tagHalf = strings.TrimSpace(tagRes.Caption)
	}
	capHalf := ""
	if capRes.Success {
		capHalf = strings.TrimSpace(capRes.Caption)
	}

	var parts []string
	if tagHalf != "" {
		parts = append(parts, tagHalf)
	}
	if capHalf != "" {
		parts = append(parts, capHalf)
	}

	if len(parts) == 0 {
		return model.Failure(imagePath, fmt.Sprintf(
			"both halves failed: %s: %s; %s: %s",
			h.tagger.Name(), emptyAs(tagRes.Error, "empty caption"),
			h.captioner.Name(), emptyAs(capRes.Error, "empty caption")))
	}

	return model.CaptionResult{
		Path:    imagePath,
		Success: true,
		Caption: strings.Join(parts, ", "),
	}
}

func emptyAs(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
