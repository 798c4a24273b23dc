package prompt

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	got := Build(Config{})
	if got != DefaultBasePrompt {
		t.Errorf("got %q, want default base prompt", got)
	}
}

func TestBuildIdempotent(t *testing.T) {
	cfg := Config{
		BasePrompt:     "Caption {name} in this image.",
		WordLimit:      40,
		Length:         LengthLong,
		CharacterName:  "sakura",
		ExtraOptionIDs: []string{"exclude_background", "mention_text"},
	}
	first := Build(cfg)
	second := Build(cfg)
	if first != second {
		t.Errorf("Build not deterministic:\n%q\n%q", first, second)
	}
}

func TestBuildNameSubstitution(t *testing.T) {
	got := Build(Config{BasePrompt: "A photo of {name}, {name} only.", CharacterName: "rei"})
	if got != "A photo of rei, rei only." {
		t.Errorf("got %q", got)
	}
}

func TestBuildModifierOrder(t *testing.T) {
	cfg := Config{
		BasePrompt: "Base.",
		WordLimit:  25,
		Length:     LengthShort,
		// Selection order reversed relative to catalog order.
		ExtraOptionIDs: []string{"mention_text", "include_lighting"},
	}
	got := Build(cfg)
	want := "Base. Keep the caption short and focused. " +
		"Limit the caption to about 25 words. " +
		"Describe the lighting and shadows. " +
		"Mention any visible text or watermarks."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestBuildIgnoresUnknownOptions(t *testing.T) {
	got := Build(Config{BasePrompt: "Base.", ExtraOptionIDs: []string{"no_such_option"}})
	if got != "Base." {
		t.Errorf("got %q", got)
	}
}

func TestToggleExclusivePair(t *testing.T) {
	sel := Toggle(nil, "include_lighting")
	if !reflect.DeepEqual(sel, []string{"include_lighting"}) {
		t.Fatalf("got %v", sel)
	}

	// Selecting the partner drops the original.
	sel = Toggle(sel, "exclude_lighting")
	if !reflect.DeepEqual(sel, []string{"exclude_lighting"}) {
		t.Errorf("got %v", sel)
	}
}

func TestToggleRemovesSelected(t *testing.T) {
	sel := Toggle([]string{"mention_text"}, "mention_text")
	if len(sel) != 0 {
		t.Errorf("got %v, want empty", sel)
	}
}

func TestToggleUnknownID(t *testing.T) {
	in := []string{"mention_text"}
	sel := Toggle(in, "bogus")
	if !reflect.DeepEqual(sel, in) {
		t.Errorf("got %v", sel)
	}
}

func TestBuildWordLimitSentence(t *testing.T) {
	got := Build(Config{BasePrompt: "Base.", WordLimit: 77})
	if !strings.Contains(got, "about 77 words") {
		t.Errorf("missing word limit sentence: %q", got)
	}
}
