package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mediaparser/internal/store"
)

func TestComputePathWithTimestamp(t *testing.T) {
	ts := time.Date(2021, 7, 4, 18, 30, 0, 0, time.UTC)
	f := store.File{OriginalFilename: "IMG_0001.jpg", ChosenTimestamp: &ts}

	got := ComputePath("/out", f)
	want := filepath.Join("/out", "2021", "20210704_183000.jpg")
	if got != want {
		t.Errorf("ComputePath = %q, want %q", got, want)
	}
}

func TestComputePathUnknown(t *testing.T) {
	f := store.File{OriginalFilename: "mystery.png"}
	got := ComputePath("/out", f)
	want := filepath.Join("/out", "unknown", "mystery.png")
	if got != want {
		t.Errorf("ComputePath = %q, want %q", got, want)
	}
}

func TestComputePathPrefersFinalOverChosen(t *testing.T) {
	chosen := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	final := time.Date(2021, 7, 4, 18, 30, 0, 0, time.UTC)
	f := store.File{OriginalFilename: "a.jpg", ChosenTimestamp: &chosen, FinalTimestamp: &final}

	got := ComputePath("/out", f)
	want := filepath.Join("/out", "2021", "20210704_183000.jpg")
	if got != want {
		t.Errorf("ComputePath = %q, want %q (final timestamp should win)", got, want)
	}
}

func TestResolveCollisionAppendsSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20210704_183000.jpg")
	os.WriteFile(path, []byte("x"), 0o644)

	resolved, err := ResolveCollision(path)
	if err != nil {
		t.Fatalf("ResolveCollision: %v", err)
	}
	want := filepath.Join(dir, "20210704_183000_001.jpg")
	if resolved != want {
		t.Errorf("ResolveCollision = %q, want %q", resolved, want)
	}
}

func TestResolveCollisionNoConflict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "free.jpg")

	resolved, err := ResolveCollision(path)
	if err != nil {
		t.Fatalf("ResolveCollision: %v", err)
	}
	if resolved != path {
		t.Errorf("ResolveCollision = %q, want unchanged %q", resolved, path)
	}
}

func TestAutoTagsFromDirectoryPath(t *testing.T) {
	tags := AutoTags("/photos/2021/Vacation/Beach/img001.jpg")
	want := []string{"photos", "2021", "vacation", "beach"}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("AutoTags mismatch (-want +got):\n%s", diff)
	}
}

func TestExportFileCopiesAndVerifies(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := filepath.Join(srcDir, "a.jpg")
	os.WriteFile(src, []byte("fake jpeg bytes"), 0o644)

	ts := time.Date(2021, 7, 4, 18, 30, 0, 0, time.UTC)
	f := store.File{ID: 1, OriginalPath: src, OriginalFilename: "a.jpg", ChosenTimestamp: &ts}

	p := &Planner{OutputRoot: outDir}
	res := p.ExportFile(context.Background(), f, nil)
	if res.Error != nil {
		t.Fatalf("ExportFile: %v", res.Error)
	}
	data, err := os.ReadFile(res.Destination)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if string(data) != "fake jpeg bytes" {
		t.Errorf("exported content = %q, want original bytes preserved", data)
	}
}

func TestMergeTagsDedupsPreservingAutoTagsFirst(t *testing.T) {
	got := mergeTags([]string{"photos", "2021", "beach"}, []string{"beach", "family"})
	want := []string{"photos", "2021", "beach", "family"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mergeTags mismatch (-want +got):\n%s", diff)
	}
}

func TestExportFileRecordsErrorOnMissingSource(t *testing.T) {
	outDir := t.TempDir()
	f := store.File{ID: 1, OriginalPath: "/nonexistent/a.jpg", OriginalFilename: "a.jpg"}

	p := &Planner{OutputRoot: outDir}
	res := p.ExportFile(context.Background(), f, nil)
	if res.Error == nil {
		t.Error("expected an error exporting a missing source file")
	}
}
