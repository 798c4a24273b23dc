// Package captions manages the sidecar caption files that sit next to each
// image: same file name with a .txt extension, tags joined by commas. This
// on-disk format is what LoRA trainers consume directly.
package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Data is the parsed content of one caption file.
type Data struct {
	Exists bool     `json:"exists"`
	Raw    string   `json:"raw"`
	Tags   []string `json:"tags"`
}

// Store reads and writes caption sidecar files.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// PathFor returns the caption file path for an image (same name, .txt extension).
func PathFor(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".txt"
}

// ParseTags splits raw caption text on commas, trimming whitespace and
// dropping empty entries.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Read loads the caption for an image. A missing caption file is not an
// error: it reports Exists=false with no tags.
func (s *Store) Read(imagePath string) (Data, error) {
	captionPath := PathFor(imagePath)

	raw, err := os.ReadFile(captionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Data{Exists: false}, nil
		}
		return Data{}, fmt.Errorf("reading caption file: %w", err)
	}

	text := strings.TrimSpace(string(raw))
	return Data{Exists: true, Raw: text, Tags: ParseTags(text)}, nil
}

// Write replaces the caption for an image with the given ordered tags.
func (s *Store) Write(imagePath string, tags []string) error {
	captionPath := PathFor(imagePath)
	content := strings.Join(tags, ", ")
	if err := os.WriteFile(captionPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing caption file: %w", err)
	}
	return nil
}

// AddTag appends a tag to the caption if it is not already present
// (case-insensitive). Returns the resulting tag list.
func (s *Store) AddTag(imagePath, tag string) ([]string, error) {
	data, err := s.Read(imagePath)
	if err != nil {
		return nil, err
	}

	tag = strings.TrimSpace(tag)
	if tag == "" {
		return data.Tags, nil
	}

	for _, existing := range data.Tags {
		if strings.EqualFold(existing, tag) {
			return data.Tags, nil
		}
	}

	tags := append(data.Tags, tag)
	if err := s.Write(imagePath, tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// RemoveTag deletes a tag from the caption (case-insensitive match).
// Returns the resulting tag list.
func (s *Store) RemoveTag(imagePath, tag string) ([]string, error) {
	data, err := s.Read(imagePath)
	if err != nil {
		return nil, err
	}
	if !data.Exists {
		return []string{}, nil
	}

	tag = strings.TrimSpace(tag)
	tags := make([]string, 0, len(data.Tags))
	for _, existing := range data.Tags {
		if !strings.EqualFold(existing, tag) {
			tags = append(tags, existing)
		}
	}

	if err := s.Write(imagePath, tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Reorder replaces all tags with the given ordered list.
func (s *Store) Reorder(imagePath string, tags []string) error {
	return s.Write(imagePath, tags)
}
