package thumbnail

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGenerateImageThumbnail(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writeSolidPNG(t, src, 800, 600, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	gen := New("", time.Second)
	path, err := gen.Generate(context.Background(), src, dir, "image/png")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("thumbnail file not written at %s: %v", path, err)
	}
}

func TestGenerateUnsupportedMIME(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.pdf")
	os.WriteFile(src, []byte("%PDF-1.4"), 0o644)

	gen := New("", time.Second)
	if _, err := gen.Generate(context.Background(), src, dir, "application/pdf"); err == nil {
		t.Error("expected an error for an unsupported mime type")
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
