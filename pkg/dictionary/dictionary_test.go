package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPutUserWordIsStable(t *testing.T) {
	d := New("test-dict-v1")
	id1 := d.PutUserWord("hello")
	id2 := d.PutUserWord("hello")
	if id1 != id2 {
		t.Fatalf("expected stable id for repeated surface, got %d and %d", id1, id2)
	}
	if got := d.IDFor("hello"); got != id1 {
		t.Fatalf("IDFor mismatch: got %d want %d", got, id1)
	}
}

func TestIDForUnknown(t *testing.T) {
	d := New("test-dict-v1")
	if got := d.IDFor("neverseen"); got != UnknownID {
		t.Fatalf("expected UnknownID, got %d", got)
	}
}

func TestPrefixSearchCaseFallback(t *testing.T) {
	d := New("test-dict-v1")
	d.PutSimpleWord("paris")
	out := d.PrefixSearch("Par", nil, 5, nil)
	if len(out) != 1 {
		t.Fatalf("expected lowercased-prefix fallback to find 1 match, got %d", len(out))
	}
}

func TestIncrementUserCountOnlyAffectsUserWords(t *testing.T) {
	d := New("test-dict-v1")
	simpleID := d.PutSimpleWord("gare")
	d.IncrementUserCount(simpleID)
	if d.Word(simpleID).UsageCount != 0 {
		t.Fatalf("IncrementUserCount must not affect Simple words")
	}
	userID := d.PutUserWord("neologism")
	d.IncrementUserCount(userID)
	if d.Word(userID).UsageCount != 1 {
		t.Fatalf("expected usage count 1, got %d", d.Word(userID).UsageCount)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.bin")

	d := New("test-dict-v1")
	d.PutSimpleWord("bonjour")
	uid := d.PutUserWord("neologism")
	d.IncrementUserCount(uid)

	if err := d.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Identifier() != d.Identifier() {
		t.Fatalf("identifier mismatch after round trip")
	}
	if got := loaded.IDFor("bonjour"); got == UnknownID {
		t.Fatalf("expected bonjour to survive round trip")
	}
	if got := loaded.Word(uid); got == nil || got.UsageCount != 1 {
		t.Fatalf("expected user word usage count to survive round trip")
	}
}

func TestLoadUserOverlayMismatchedIdentifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.bin")

	source := New("dict-a")
	source.PutUserWord("neologism")
	if err := source.SaveUserOverlay(path); err != nil {
		t.Fatalf("SaveUserOverlay: %v", err)
	}

	target := New("dict-b")
	if err := target.LoadUserOverlay(path); err == nil {
		t.Fatalf("expected dictionary mismatch error")
	}
}

func TestSaveUserOverlayExcludesTagsAndClasses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.bin")
	d := New("test-dict-v1")
	d.PutUserWord("neologism")
	if err := d.SaveUserOverlay(path); err != nil {
		t.Fatalf("SaveUserOverlay: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty overlay file")
	}

	other := New("test-dict-v1")
	if err := other.LoadUserOverlay(path); err != nil {
		t.Fatalf("LoadUserOverlay: %v", err)
	}
	for tg := Tag(0); tg < tagCount; tg++ {
		if other.Word(uint32(tg)).Type != WordTag {
			t.Fatalf("overlay load must not disturb pre-seeded tag words")
		}
	}
}
