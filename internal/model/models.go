package model

// Rating is the review status assigned to an image.
type Rating string

const (
	RatingNone      Rating = "none"
	RatingGood      Rating = "good"
	RatingBad       Rating = "bad"
	RatingNeedsEdit Rating = "needs_edit"
)

// ParseRating maps a stored rating string to a Rating, defaulting to none.
func ParseRating(s string) Rating {
	switch s {
	case "good":
		return RatingGood
	case "bad":
		return RatingBad
	case "needs_edit":
		return RatingNeedsEdit
	default:
		return RatingNone
	}
}

// ImageRef is an immutable snapshot of one image in a project, taken when the
// project is scanned or a batch run starts. It is not refreshed mid-run.
type ImageRef struct {
	ID           string   `json:"id"`
	Path         string   `json:"path"`
	RelativePath string   `json:"relative_path"`
	Filename     string   `json:"filename"`
	HasCaption   bool     `json:"has_caption"`
	Tags         []string `json:"tags"`
	Rating       Rating   `json:"rating"`
	Width        int      `json:"width,omitempty"`
	Height       int      `json:"height,omitempty"`
	FileSize     int64    `json:"file_size,omitempty"`
}

// SelectionCriteria describes which images a batch run should touch.
// Exactly one selection mode applies, resolved by fixed precedence:
// IncludeAll, then RatingFilter, then ExplicitIDs, then uncaptioned-only.
type SelectionCriteria struct {
	ExplicitIDs  []string `json:"explicit_ids,omitempty"`
	RatingFilter []Rating `json:"rating_filter,omitempty"`
	IncludeAll   bool     `json:"include_all,omitempty"`
}

// CaptionResult is the outcome of one caption generation attempt. Produced by
// backend adapters, consumed by the result applier, never mutated afterwards.
type CaptionResult struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Caption string `json:"caption"`
	Error   string `json:"error,omitempty"`
}

// Failure returns a failed CaptionResult for path with the given error text.
func Failure(path, errText string) CaptionResult {
	return CaptionResult{Path: path, Success: false, Error: errText}
}
