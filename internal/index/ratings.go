package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"captionstudio/internal/model"
)

const ratingsDir = ".caption-studio"

// RatingsData is the per-project ratings file: relative image path -> rating.
type RatingsData struct {
	Ratings map[string]string `json:"ratings"`
}

func ratingsFilePath(root string) string {
	return filepath.Join(root, ratingsDir, "ratings.json")
}

// LoadRatings reads the ratings file for a project root. A missing or
// unreadable file yields an empty map.
func LoadRatings(root string) RatingsData {
	data := RatingsData{Ratings: map[string]string{}}

	raw, err := os.ReadFile(ratingsFilePath(root))
	if err != nil {
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil || data.Ratings == nil {
		return RatingsData{Ratings: map[string]string{}}
	}
	return data
}

func saveRatings(root string, data RatingsData) error {
	path := ratingsFilePath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ratings directory: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ratings: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing ratings file: %w", err)
	}
	return nil
}

// SetRating stores the rating for one image. Setting a rating of none
// removes the entry.
func SetRating(root, relativePath string, rating model.Rating) error {
	data := LoadRatings(root)
	if rating == model.RatingNone {
		delete(data.Ratings, relativePath)
	} else {
		data.Ratings[relativePath] = string(rating)
	}
	return saveRatings(root, data)
}

// ClearRatings empties the ratings file and reports how many entries it held.
func ClearRatings(root string) (int, error) {
	if _, err := os.Stat(ratingsFilePath(root)); os.IsNotExist(err) {
		return 0, nil
	}
	data := LoadRatings(root)
	count := len(data.Ratings)
	if err := saveRatings(root, RatingsData{Ratings: map[string]string{}}); err != nil {
		return 0, err
	}
	return count, nil
}
