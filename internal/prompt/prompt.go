// Package prompt assembles the instruction text sent to captioning backends.
// Build is a pure transform: the result is computed once per batch run and
// frozen into the job.
package prompt

import (
	"fmt"
	"strings"
)

// DefaultBasePrompt is used when a config carries no base prompt.
const DefaultBasePrompt = "Describe this image as a comma-separated list of " +
	"tags suitable for LoRA training data."

// Length hints the desired caption length.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Config holds every user-tunable prompt modifier. ExtraOptionIDs is kept
// internally consistent by Toggle; Build trusts it as-is.
type Config struct {
	BasePrompt     string   `json:"base_prompt"`
	WordLimit      int      `json:"word_limit,omitempty"`
	Length         Length   `json:"length,omitempty"`
	CharacterName  string   `json:"character_name,omitempty"`
	ExtraOptionIDs []string `json:"extra_option_ids,omitempty"`
}

// Build produces the effective prompt text. Deterministic: identical configs
// always yield identical strings, and fragments are appended in fixed
// catalog order regardless of selection order.
func Build(cfg Config) string {
	base := strings.TrimSpace(cfg.BasePrompt)
	if base == "" {
		base = DefaultBasePrompt
	}
	base = strings.ReplaceAll(base, "{name}", cfg.CharacterName)

	parts := []string{base}

	switch cfg.Length {
	case LengthShort:
		parts = append(parts, "Keep the caption short and focused.")
	case LengthMedium:
		parts = append(parts, "Use a moderately detailed caption.")
	case LengthLong:
		parts = append(parts, "Write a long, highly detailed caption.")
	}

	if cfg.WordLimit > 0 {
		parts = append(parts, fmt.Sprintf("Limit the caption to about %d words.", cfg.WordLimit))
	}

	selected := map[string]bool{}
	for _, id := range cfg.ExtraOptionIDs {
		selected[id] = true
	}
	for _, opt := range Catalog {
		if selected[opt.ID] {
			parts = append(parts, opt.Instruction)
		}
	}

	return strings.Join(parts, " ")
}
