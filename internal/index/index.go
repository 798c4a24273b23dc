// Package index scans a project directory for images and assembles the
// ImageRef snapshots that target selection and batch runs operate on.
package index

import (
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"captionstudio/internal/captions"
	"captionstudio/internal/model"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
}

// IsImagePath reports whether path has a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan walks the project root recursively and returns one ImageRef per image
// file, sorted by relative path. Captions and ratings are read as part of
// the snapshot; per-file read problems downgrade gracefully rather than
// aborting the scan.
func Scan(root string) ([]model.ImageRef, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	ratings := LoadRatings(root)
	var entries []model.ImageRef

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable entry")
			return nil
		}
		if d.IsDir() || !IsImagePath(path) {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			rel = path
		}
		relativePath := filepath.ToSlash(rel)

		hasCaption := false
		var tags []string
		if data, err := captions.NewStore().Read(path); err == nil && data.Exists {
			hasCaption = true
			tags = data.Tags
		}

		entry := model.ImageRef{
			ID:           path,
			Path:         path,
			RelativePath: relativePath,
			Filename:     filepath.Base(path),
			HasCaption:   hasCaption,
			Tags:         tags,
			Rating:       model.ParseRating(ratings.Ratings[relativePath]),
		}

		if w, h, ok := readDimensions(path); ok {
			entry.Width = w
			entry.Height = h
		}
		if fi, err := d.Info(); err == nil {
			entry.FileSize = fi.Size()
		}

		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})

	log.Info().Str("root", root).Int("images", len(entries)).Msg("Project scanned")
	return entries, nil
}

// readDimensions decodes only the image header, which is fast.
func readDimensions(path string) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
