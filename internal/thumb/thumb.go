// Package thumb renders JPEG thumbnails for project images, with an
// optional Redis-backed cache in front of the renderer.
package thumb

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"captionstudio/internal/cache"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultSize is the longest side of a thumbnail when the caller does
	// not ask for a specific size.
	DefaultSize = 256

	// MaxSize caps requested sizes so a client cannot ask the server to
	// re-encode originals at full resolution.
	MaxSize = 512

	thumbJpegQuality = 80
)

// Service renders thumbnails as JPEG data URLs. A nil cache disables
// caching; every request then hits the renderer.
type Service struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewService(c cache.Cache, ttl time.Duration) *Service {
	return &Service{cache: c, ttl: ttl}
}

// Render returns a thumbnail of the image at path as a JPEG data URL.
// The cache key includes the file's mtime so edits on disk invalidate
// stale entries without an explicit purge.
func (s *Service) Render(ctx context.Context, path string, size int) (string, error) {
	size = clampSize(size)

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("could not stat image: %w", err)
	}

	key := fmt.Sprintf("thumb:%s|%d|%d", path, size, info.ModTime().UnixNano())
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			return string(data), nil
		} else if err != cache.ErrCacheMiss {
			log.Warn().Err(err).Str("path", path).Msg("Thumbnail cache lookup failed")
		}
	}

	dataURL, err := s.render(path, size)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(dataURL), s.ttl); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Thumbnail cache store failed")
		}
	}

	return dataURL, nil
}

func (s *Service) render(path string, size int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not read image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("could not decode image: %w", err)
	}

	img = scaleDown(img, size)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbJpegQuality}); err != nil {
		return "", fmt.Errorf("could not encode thumbnail: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func clampSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// scaleDown shrinks img so its longest side is at most maxDim. Images
// already small enough pass through untouched.
func scaleDown(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longest)
	newW := int(float64(w)*scale + 0.5)
	newH := int(float64(h)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
