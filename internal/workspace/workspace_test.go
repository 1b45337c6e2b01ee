package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureCreatesTopLevelDirs(t *testing.T) {
	root := t.TempDir()
	l := New(root)
	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{l.UploadsDir(), l.ThumbnailsDir(), l.OutputDir(), l.QueueDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestJobDirNaming(t *testing.T) {
	l := New("/workspace")
	got := l.JobDir(42)
	want := filepath.Join("/workspace", "uploads", "job_42")
	if got != want {
		t.Errorf("JobDir(42) = %q, want %q", got, want)
	}
}

func TestThumbAndPreviewPaths(t *testing.T) {
	l := New("/workspace")
	if got, want := l.ThumbPath(7), filepath.Join("/workspace", "thumbnails", "7_thumb.jpg"); got != want {
		t.Errorf("ThumbPath(7) = %q, want %q", got, want)
	}
	if got, want := l.PreviewPath(7), filepath.Join("/workspace", "thumbnails", "7_preview.jpg"); got != want {
		t.Errorf("PreviewPath(7) = %q, want %q", got, want)
	}
}

func TestDBAndQueuePathsAreSeparate(t *testing.T) {
	l := New("/workspace")
	if l.DBPath() == l.QueueDir() {
		t.Error("DBPath and QueueDir must not collide")
	}
}
