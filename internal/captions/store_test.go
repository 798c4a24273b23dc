package captions

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPathFor(t *testing.T) {
	got := PathFor("/data/set/001.png")
	want := "/data/set/001.txt"
	if got != want {
		t.Errorf("PathFor: got %q, want %q", got, want)
	}
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"1girl, solo, long hair", []string{"1girl", "solo", "long hair"}},
		{"  1girl ,, solo ,", []string{"1girl", "solo"}},
		{"", nil},
		{" , ,", nil},
	}
	for _, tc := range cases {
		got := ParseTags(tc.raw)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseTags(%q): got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestReadMissingCaption(t *testing.T) {
	img := writeImage(t, t.TempDir(), "a.png")
	store := NewStore()

	data, err := store.Read(img)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data.Exists {
		t.Error("expected Exists=false for missing caption")
	}
	if len(data.Tags) != 0 {
		t.Errorf("expected no tags, got %v", data.Tags)
	}
}

func TestWriteThenRead(t *testing.T) {
	img := writeImage(t, t.TempDir(), "a.png")
	store := NewStore()

	if err := store.Write(img, []string{"1girl", "solo"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := store.Read(img)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !data.Exists {
		t.Fatal("expected caption to exist")
	}
	if data.Raw != "1girl, solo" {
		t.Errorf("raw: got %q", data.Raw)
	}
	if !reflect.DeepEqual(data.Tags, []string{"1girl", "solo"}) {
		t.Errorf("tags: got %v", data.Tags)
	}
}

func TestAddTagDeduplicates(t *testing.T) {
	img := writeImage(t, t.TempDir(), "a.png")
	store := NewStore()

	tags, err := store.AddTag(img, "solo")
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"solo"}) {
		t.Errorf("tags: got %v", tags)
	}

	// Case-insensitive duplicate is a no-op.
	tags, err = store.AddTag(img, "Solo")
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"solo"}) {
		t.Errorf("tags after dup add: got %v", tags)
	}
}

func TestRemoveTag(t *testing.T) {
	img := writeImage(t, t.TempDir(), "a.png")
	store := NewStore()
	if err := store.Write(img, []string{"1girl", "solo", "smile"}); err != nil {
		t.Fatal(err)
	}

	tags, err := store.RemoveTag(img, "SOLO")
	if err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"1girl", "smile"}) {
		t.Errorf("tags: got %v", tags)
	}
}

func TestRemoveTagMissingFile(t *testing.T) {
	img := writeImage(t, t.TempDir(), "a.png")
	store := NewStore()

	tags, err := store.RemoveTag(img, "solo")
	if err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("expected empty tags, got %v", tags)
	}
}

func TestReorder(t *testing.T) {
	img := writeImage(t, t.TempDir(), "a.png")
	store := NewStore()
	if err := store.Write(img, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Reorder(img, []string{"c", "a", "b"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	data, err := store.Read(img)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(data.Tags, []string{"c", "a", "b"}) {
		t.Errorf("tags: got %v", data.Tags)
	}
}
