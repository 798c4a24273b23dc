package batch

import "captionstudio/internal/model"

// SelectTargets computes the ordered list of images a batch run will touch.
// Pure function. The precedence is fixed and deliberately never intersects
// criteria: include-all wins over a rating filter, which wins over explicit
// ids, falling back to uncaptioned images only. Reordering these branches
// changes what the "Batch" button acts on, so they must stay exact.
func SelectTargets(allImages []model.ImageRef, criteria model.SelectionCriteria) []model.ImageRef {
	if criteria.IncludeAll {
		return append([]model.ImageRef(nil), allImages...)
	}

	if len(criteria.RatingFilter) > 0 {
		wanted := map[model.Rating]bool{}
		for _, r := range criteria.RatingFilter {
			wanted[r] = true
		}
		var out []model.ImageRef
		for _, img := range allImages {
			if wanted[img.Rating] {
				out = append(out, img)
			}
		}
		return out
	}

	if len(criteria.ExplicitIDs) > 0 {
		wanted := map[string]bool{}
		for _, id := range criteria.ExplicitIDs {
			wanted[id] = true
		}
		var out []model.ImageRef
		for _, img := range allImages {
			if wanted[img.ID] {
				out = append(out, img)
			}
		}
		return out
	}

	var out []model.ImageRef
	for _, img := range allImages {
		if !img.HasCaption {
			out = append(out, img)
		}
	}
	return out
}
