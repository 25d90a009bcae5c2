package commonwords

import (
	"os"
	"path/filepath"
	"testing"
)

func TestForVersionEmbedded(t *testing.T) {
	src := NewSource("")
	l, err := src.ForVersion("standard")
	if err != nil {
		t.Fatalf("ForVersion(standard): %v", err)
	}
	for _, w := range []string{"the", "of", "and"} {
		if !l.Contains(w) {
			t.Errorf("standard list should contain %q", w)
		}
	}
	if l.Contains("photon") {
		t.Error("standard list should not contain \"photon\"")
	}
}

func TestForVersionUnknownFallsBack(t *testing.T) {
	src := NewSource("")
	l, err := src.ForVersion("nonexistent")
	if err != nil {
		t.Fatalf("ForVersion(nonexistent): %v", err)
	}
	if !l.Contains("the") {
		t.Error("fallback list should contain \"the\"")
	}
}

func TestForVersionDirOverride(t *testing.T) {
	dir := t.TempDir()
	data := "# comment\nZebra\nécu\n\n"
	if err := os.WriteFile(filepath.Join(dir, "standard.txt"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewSource(dir)
	l, err := src.ForVersion("standard")
	if err != nil {
		t.Fatalf("ForVersion: %v", err)
	}
	if !l.Contains("zebra") {
		t.Error("override list should contain normalized \"zebra\"")
	}
	if !l.Contains("ecu") {
		t.Error("override list should normalize accents (écu -> ecu)")
	}
	if l.Contains("the") {
		t.Error("override list should replace the embedded list, not extend it")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestForVersionCached(t *testing.T) {
	src := NewSource("")
	a, _ := src.ForVersion("standard")
	b, _ := src.ForVersion("standard")
	if a != b {
		t.Error("ForVersion should return the cached list on repeat calls")
	}
}
