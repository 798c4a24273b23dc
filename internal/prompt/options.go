package prompt

// Option is one selectable prompt modifier. Options that contradict each
// other are declared as pairs via ExclusiveWith; selecting one side of a
// pair deselects the other, so a PromptConfig can never carry both.
type Option struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Instruction   string `json:"instruction"`
	ExclusiveWith string `json:"exclusive_with,omitempty"`
}

// Catalog is the fixed list of extra options, in the order their fragments
// are appended to the prompt.
var Catalog = []Option{
	{
		ID:            "include_lighting",
		Label:         "Describe lighting",
		Instruction:   "Describe the lighting and shadows.",
		ExclusiveWith: "exclude_lighting",
	},
	{
		ID:            "exclude_lighting",
		Label:         "Skip lighting",
		Instruction:   "Do not mention lighting or shadows.",
		ExclusiveWith: "include_lighting",
	},
	{
		ID:            "include_background",
		Label:         "Describe background",
		Instruction:   "Describe the background and setting.",
		ExclusiveWith: "exclude_background",
	},
	{
		ID:            "exclude_background",
		Label:         "Skip background",
		Instruction:   "Focus only on the subject, ignore the background.",
		ExclusiveWith: "include_background",
	},
	{
		ID:            "include_camera",
		Label:         "Describe camera angle",
		Instruction:   "Mention the camera angle and framing.",
		ExclusiveWith: "exclude_camera",
	},
	{
		ID:            "exclude_camera",
		Label:         "Skip camera angle",
		Instruction:   "Do not mention camera angle or framing.",
		ExclusiveWith: "include_camera",
	},
	{
		ID:          "mention_text",
		Label:       "Mention text and watermarks",
		Instruction: "Mention any visible text or watermarks.",
	},
	{
		ID:          "booru_style",
		Label:       "Booru tag style",
		Instruction: "Use short danbooru-style tags instead of sentences.",
	},
}

func optionByID(id string) (Option, bool) {
	for _, opt := range Catalog {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Toggle adds id to the selection, removing its exclusive partner if
// present, and returns the new selection. Toggling an already-selected id
// removes it. Unknown ids are ignored. The input slice is not mutated.
func Toggle(selected []string, id string) []string {
	opt, ok := optionByID(id)
	if !ok {
		return append([]string(nil), selected...)
	}

	out := make([]string, 0, len(selected)+1)
	removed := false
	for _, s := range selected {
		if s == id {
			removed = true
			continue
		}
		if opt.ExclusiveWith != "" && s == opt.ExclusiveWith {
			continue
		}
		out = append(out, s)
	}
	if !removed {
		out = append(out, id)
	}
	return out
}
