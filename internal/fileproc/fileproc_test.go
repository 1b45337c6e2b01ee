package fileproc

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediaparser/internal/probe"
)

func TestProcessPopulatesContentHashAndMIME(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "IMG_20210704_183000.png")
	writeSolidPNG(t, src, 40, 32, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	p := &Processor{
		Prober:       probe.New("", 5*time.Second),
		Location:     time.UTC,
		MinValidYear: 2000,
	}
	defer p.Prober.Close()

	res := p.Process(context.Background(), Input{
		Path:          src,
		OriginalName:  filepath.Base(src),
		JobStorageDir: dir,
	})

	if res.ProcessingError != nil {
		t.Fatalf("unexpected processing error: %v", res.ProcessingError)
	}
	if res.ContentHash == "" {
		t.Error("ContentHash was not populated")
	}
	if res.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", res.MIMEType)
	}
	if res.Width == 0 || res.Height == 0 {
		t.Errorf("dimensions not populated: %dx%d", res.Width, res.Height)
	}
	// The filename carries a recognizable capture-time pattern even with no
	// EXIF data present, so a candidate (and hence a non-NONE tier) should
	// still surface from the filename source.
	if res.Confidence == "none" {
		t.Error("expected at least a filename-derived candidate, got confidence NONE")
	}
}

func TestProcessMissingFileYieldsProcessingError(t *testing.T) {
	p := &Processor{
		Prober:       probe.New("", 5*time.Second),
		Location:     time.UTC,
		MinValidYear: 2000,
	}
	defer p.Prober.Close()

	res := p.Process(context.Background(), Input{
		Path:          "/nonexistent/path/missing.jpg",
		OriginalName:  "missing.jpg",
		JobStorageDir: t.TempDir(),
	})

	if res.ProcessingError == nil {
		t.Fatal("expected a processing error for a missing source file")
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
