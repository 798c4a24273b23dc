// Package export copies a captioned dataset out of a project, either into
// a training folder layout or into a ZIP archive.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"captionstudio/internal/captions"
	"captionstudio/internal/index"
)

// CaptionFormatMetadata switches folder exports from per-image .txt files
// to a single Kohya-style metadata.json.
const CaptionFormatMetadata = "metadata"

// KohyaFolder describes the N_concept subfolder layout some trainers expect.
type KohyaFolder struct {
	RepeatCount int    `json:"repeat_count"`
	ConceptName string `json:"concept_name"`
}

// Options control what gets exported and how files are laid out.
type Options struct {
	SourcePath       string       `json:"source_path"`
	DestPath         string       `json:"dest_path"`
	AsZip            bool         `json:"as_zip"`
	OnlyCaptioned    bool         `json:"only_captioned"`
	RelativePaths    []string     `json:"relative_paths,omitempty"`
	TriggerWord      string       `json:"trigger_word,omitempty"`
	SequentialNaming bool         `json:"sequential_naming"`
	CaptionFormat    string       `json:"caption_format,omitempty"`
	KohyaFolder      *KohyaFolder `json:"kohya_folder,omitempty"`
}

// Result summarizes one export. Skipped counts images whose bytes could
// not be copied; the export as a whole still succeeds.
type Result struct {
	Success       bool   `json:"success"`
	ExportedCount int    `json:"exported_count"`
	SkippedCount  int    `json:"skipped_count"`
	Error         string `json:"error,omitempty"`
	OutputPath    string `json:"output_path"`
}

// Export runs one export per opts. Selection, layout and caption rewriting
// errors abort; per-image copy errors only increment the skipped count.
func Export(opts Options) (Result, error) {
	info, err := os.Stat(opts.SourcePath)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("source folder does not exist")
	}

	images, err := collectImages(opts)
	if err != nil {
		return Result{}, err
	}

	useMetadata := opts.CaptionFormat == CaptionFormatMetadata

	var res Result
	switch {
	case opts.AsZip && useMetadata:
		return Result{}, fmt.Errorf("metadata.json format requires folder export, not ZIP")
	case opts.AsZip && opts.KohyaFolder != nil:
		return Result{}, fmt.Errorf("kohya folder structure requires folder export, not ZIP")
	case opts.AsZip:
		res, err = exportZip(images, opts)
	case useMetadata:
		res, err = exportFolderMetadata(images, opts)
	default:
		res, err = exportFolder(images, opts)
	}
	if err != nil {
		return Result{}, err
	}

	log.Info().
		Str("dest", res.OutputPath).
		Int("exported", res.ExportedCount).
		Int("skipped", res.SkippedCount).
		Bool("zip", opts.AsZip).
		Msg("Export finished")
	return res, nil
}

// collectImages walks the source tree and returns the export set in
// sorted order so sequential names are stable across runs.
func collectImages(opts Options) ([]string, error) {
	var whitelist map[string]bool
	if opts.RelativePaths != nil {
		whitelist = make(map[string]bool, len(opts.RelativePaths))
		for _, rel := range opts.RelativePaths {
			whitelist[filepath.ToSlash(rel)] = true
		}
	}

	var images []string
	err := filepath.WalkDir(opts.SourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !index.IsImagePath(path) {
			return nil
		}

		if whitelist != nil {
			rel, relErr := filepath.Rel(opts.SourcePath, path)
			if relErr != nil || !whitelist[filepath.ToSlash(rel)] {
				return nil
			}
		}

		if opts.OnlyCaptioned {
			if _, statErr := os.Stat(captions.PathFor(path)); statErr != nil {
				return nil
			}
		}

		images = append(images, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk source folder: %w", err)
	}

	sort.Strings(images)
	return images, nil
}

// exportName picks the destination file name for the i-th image.
func exportName(imagePath string, i int, sequential bool) string {
	if sequential {
		ext := strings.TrimPrefix(filepath.Ext(imagePath), ".")
		if ext == "" {
			ext = "png"
		}
		return fmt.Sprintf("%04d.%s", i+1, ext)
	}
	return filepath.Base(imagePath)
}

// captionFor reads the image's caption sidecar and prepends the trigger
// word. Returns "" when no caption exists.
func captionFor(imagePath, triggerWord string) string {
	raw, err := os.ReadFile(captions.PathFor(imagePath))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(raw))
	if trigger := strings.TrimSpace(triggerWord); trigger != "" && text != "" {
		text = trigger + ", " + text
	} else if trigger != "" {
		text = trigger
	}
	return text
}

func txtNameFor(imageName string) string {
	return strings.TrimSuffix(imageName, filepath.Ext(imageName)) + ".txt"
}

func exportFolder(images []string, opts Options) (Result, error) {
	dest := opts.DestPath
	if kf := opts.KohyaFolder; kf != nil {
		name := strings.TrimSpace(strings.NewReplacer("/", "_", "\\", "_").Replace(kf.ConceptName))
		if name == "" {
			name = "concept"
		}
		dest = filepath.Join(dest, fmt.Sprintf("%d_%s", kf.RepeatCount, name))
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, fmt.Errorf("could not create destination: %w", err)
	}

	var exported, skipped int
	for i, imagePath := range images {
		name := exportName(imagePath, i, opts.SequentialNaming)
		if err := copyFile(imagePath, filepath.Join(dest, name)); err != nil {
			skipped++
			continue
		}

		if text := captionFor(imagePath, opts.TriggerWord); text != "" {
			if err := os.WriteFile(filepath.Join(dest, txtNameFor(name)), []byte(text), 0o644); err != nil {
				log.Warn().Err(err).Str("image", name).Msg("Could not write exported caption")
			}
		}
		exported++
	}

	return Result{
		Success:       true,
		ExportedCount: exported,
		SkippedCount:  skipped,
		OutputPath:    opts.DestPath,
	}, nil
}

func exportFolderMetadata(images []string, opts Options) (Result, error) {
	if err := os.MkdirAll(opts.DestPath, 0o755); err != nil {
		return Result{}, fmt.Errorf("could not create destination: %w", err)
	}

	metadata := make(map[string]string, len(images))
	var exported, skipped int
	for i, imagePath := range images {
		name := exportName(imagePath, i, opts.SequentialNaming)
		if err := copyFile(imagePath, filepath.Join(opts.DestPath, name)); err != nil {
			skipped++
			continue
		}
		metadata[name] = captionFor(imagePath, opts.TriggerWord)
		exported++
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("could not encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.DestPath, "metadata.json"), data, 0o644); err != nil {
		return Result{}, fmt.Errorf("could not write metadata.json: %w", err)
	}

	return Result{
		Success:       true,
		ExportedCount: exported,
		SkippedCount:  skipped,
		OutputPath:    opts.DestPath,
	}, nil
}

func exportZip(images []string, opts Options) (Result, error) {
	f, err := os.Create(opts.DestPath)
	if err != nil {
		return Result{}, fmt.Errorf("could not create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	var exported, skipped int
	for i, imagePath := range images {
		name := exportName(imagePath, i, opts.SequentialNaming)

		data, err := os.ReadFile(imagePath)
		if err != nil {
			skipped++
			continue
		}

		w, err := zw.Create(name)
		if err != nil {
			return Result{}, fmt.Errorf("could not add %s to archive: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return Result{}, fmt.Errorf("could not add %s to archive: %w", name, err)
		}

		if text := captionFor(imagePath, opts.TriggerWord); text != "" {
			w, err := zw.Create(txtNameFor(name))
			if err != nil {
				return Result{}, fmt.Errorf("could not add caption to archive: %w", err)
			}
			if _, err := w.Write([]byte(text)); err != nil {
				return Result{}, fmt.Errorf("could not add caption to archive: %w", err)
			}
		}
		exported++
	}

	if err := zw.Close(); err != nil {
		return Result{}, fmt.Errorf("could not finish archive: %w", err)
	}

	return Result{
		Success:       true,
		ExportedCount: exported,
		SkippedCount:  skipped,
		OutputPath:    opts.DestPath,
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
