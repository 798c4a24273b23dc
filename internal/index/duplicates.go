package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FindDuplicates hashes every image file under root (SHA-256 over contents)
// and returns groups of relative paths that share a hash. Only groups with
// more than one member are returned.
func FindDuplicates(root string) ([][]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root does not exist: %s", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	hashToPaths := map[string][]string{}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !IsImagePath(path) {
			return nil
		}

		sum, err := hashFile(path)
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		hashToPaths[sum] = append(hashToPaths[sum], filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var groups [][]string
	for _, paths := range hashToPaths {
		if len(paths) > 1 {
			groups = append(groups, paths)
		}
	}
	return groups, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
