package export

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"captionstudio/internal/index"
	"captionstudio/internal/model"
)

// ByRatingOptions exports rated images into good/, bad/ and needs_edit/
// subfolders under DestPath. Unrated images are left out.
type ByRatingOptions struct {
	SourcePath       string `json:"source_path"`
	DestPath         string `json:"dest_path"`
	TriggerWord      string `json:"trigger_word,omitempty"`
	SequentialNaming bool   `json:"sequential_naming"`
}

// ExportByRating splits a project by rating into per-rating folders.
// Sequential numbering restarts in each folder.
func ExportByRating(opts ByRatingOptions) (Result, error) {
	info, err := os.Stat(opts.SourcePath)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("source folder does not exist")
	}

	ratings := index.LoadRatings(opts.SourcePath)
	byRating := map[model.Rating][]string{
		model.RatingGood:      nil,
		model.RatingBad:       nil,
		model.RatingNeedsEdit: nil,
	}

	walkErr := filepath.WalkDir(opts.SourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !index.IsImagePath(path) {
			return nil
		}
		rel, relErr := filepath.Rel(opts.SourcePath, path)
		if relErr != nil {
			return nil
		}
		rating := model.ParseRating(ratings.Ratings[filepath.ToSlash(rel)])
		if rating == model.RatingNone {
			return nil
		}
		byRating[rating] = append(byRating[rating], path)
		return nil
	})
	if walkErr != nil {
		return Result{}, fmt.Errorf("could not walk source folder: %w", walkErr)
	}

	if err := os.MkdirAll(opts.DestPath, 0o755); err != nil {
		return Result{}, fmt.Errorf("could not create destination: %w", err)
	}

	var exported, skipped int
	for rating, images := range byRating {
		sort.Strings(images)
		sub := filepath.Join(opts.DestPath, string(rating))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return Result{}, fmt.Errorf("could not create %s folder: %w", rating, err)
		}

		for i, imagePath := range images {
			name := exportName(imagePath, i, opts.SequentialNaming)
			if err := copyFile(imagePath, filepath.Join(sub, name)); err != nil {
				skipped++
				continue
			}
			if text := captionFor(imagePath, opts.TriggerWord); text != "" {
				_ = os.WriteFile(filepath.Join(sub, txtNameFor(name)), []byte(text), 0o644)
			}
			exported++
		}
	}

	return Result{
		Success:       true,
		ExportedCount: exported,
		SkippedCount:  skipped,
		OutputPath:    opts.DestPath,
	}, nil
}
