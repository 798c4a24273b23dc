package thumb

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"captionstudio/internal/cache"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	return path
}

func decodeDataURL(t *testing.T, dataURL string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("data URL prefix missing: %.40s", dataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	return img
}

func TestRenderScalesDownLargeImage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "big.png", 800, 400)

	svc := NewService(nil, 0)
	dataURL, err := svc.Render(context.Background(), path, 200)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img := decodeDataURL(t, dataURL)
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("thumbnail = %dx%d, want 200x100", b.Dx(), b.Dy())
	}
}

func TestRenderKeepsSmallImage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "small.png", 64, 48)

	svc := NewService(nil, 0)
	dataURL, err := svc.Render(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img := decodeDataURL(t, dataURL)
	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("thumbnail = %dx%d, want original 64x48", b.Dx(), b.Dy())
	}
}

func TestRenderMissingFile(t *testing.T) {
	svc := NewService(nil, 0)
	if _, err := svc.Render(context.Background(), filepath.Join(t.TempDir(), "gone.png"), 128); err == nil {
		t.Fatal("Render succeeded for a missing file")
	}
}

func TestClampSize(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultSize},
		{-5, DefaultSize},
		{100, 100},
		{MaxSize, MaxSize},
		{4096, MaxSize},
	}
	for _, tc := range cases {
		if got := clampSize(tc.in); got != tc.want {
			t.Errorf("clampSize(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

// memCache is an in-memory Cache used to observe hit behavior.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error { return nil }
func (m *memCache) Ping(ctx context.Context) error               { return nil }
func (m *memCache) Close() error                                 { return nil }

func TestRenderUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "cached.png", 100, 100)

	mc := newMemCache()
	svc := NewService(mc, time.Minute)

	first, err := svc.Render(context.Background(), path, 64)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	second, err := svc.Render(context.Background(), path, 64)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}

	if first != second {
		t.Fatal("cached render differs from first render")
	}
	if mc.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", mc.sets)
	}
	if mc.gets != 2 {
		t.Fatalf("cache gets = %d, want 2", mc.gets)
	}
}
