package hash

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestContentHashDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte("the quick brown fox"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	h1, err := Content(path)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	h2, err := Content(path)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if h1 != h2 {
		t.Errorf("Content hash not deterministic: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("Content hash length = %d, want 64 hex chars for SHA-256", len(h1))
	}
}

func TestContentHashDiffersOnDifferentBytes(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bin")
	pathB := filepath.Join(dir, "b.bin")
	os.WriteFile(pathA, []byte("hello"), 0o644)
	os.WriteFile(pathB, []byte("world"), 0o644)

	ha, _ := Content(pathA)
	hb, _ := Content(pathB)
	if ha == hb {
		t.Error("distinct file contents produced identical hashes")
	}
}

func TestPerceptualNonImageReturnsEmptyNoError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	os.WriteFile(path, []byte("not an image"), 0o644)

	hv, err := Perceptual(path)
	if err != nil {
		t.Fatalf("Perceptual on non-image returned error %v, want nil", err)
	}
	if hv != "" {
		t.Errorf("Perceptual on non-image = %q, want empty", hv)
	}
}

func TestPerceptualSolidImageIsAllZeroBits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solid.png")
	writeSolidPNG(t, path, 64, 64, color.Gray{Y: 128})

	hv, err := Perceptual(path)
	if err != nil {
		t.Fatalf("Perceptual: %v", err)
	}
	if hv != "0000000000000000" {
		t.Errorf("Perceptual of a flat-color image = %q, want all-zero gradient bits", hv)
	}
}

func TestHammingDistanceIdentical(t *testing.T) {
	d, err := HammingDistance64Hex("ffffffffffffffff", "ffffffffffffffff")
	if err != nil {
		t.Fatalf("HammingDistance64Hex: %v", err)
	}
	if d != 0 {
		t.Errorf("distance between identical hashes = %d, want 0", d)
	}
}

func TestHammingDistanceAllBitsDiffer(t *testing.T) {
	d, err := HammingDistance64Hex("0000000000000000", "ffffffffffffffff")
	if err != nil {
		t.Fatalf("HammingDistance64Hex: %v", err)
	}
	if d != 64 {
		t.Errorf("distance = %d, want 64", d)
	}
}

func writeSolidPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}
