// Package workspace centralizes the on-disk layout spec.md §6 describes
// under one working directory: per-job upload staging, thumbnails, the
// Review Store's SQLite file, the task queue's badger directory, and the
// dated export tree. Two packages still build paths of their own:
// store.CreateImportJob names the uploads/job_{id} staging directory, and
// thumbnail.Generator writes into a thumbnails directory inside that job
// directory.
package workspace

import (
	"os"
	"path/filepath"
	"strconv"
)

// Layout resolves the fixed subdirectories under one workspace root.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root. It does not create any directories;
// call Ensure for that.
func New(root string) Layout {
	return Layout{Root: root}
}

// Ensure creates every top-level directory the layout names, idempotently.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.UploadsDir(), l.ThumbnailsDir(), l.OutputDir(), l.QueueDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// UploadsDir is the parent of every job's working-copy staging directory.
func (l Layout) UploadsDir() string {
	return filepath.Join(l.Root, "uploads")
}

// JobDir is one job's staging directory, workspace/uploads/job_{id}/.
func (l Layout) JobDir(jobID int64) string {
	return filepath.Join(l.UploadsDir(), jobDirName(jobID))
}

func jobDirName(jobID int64) string {
	return "job_" + itoa(jobID)
}

// ThumbnailsDir is the workspace-level thumbnails directory that Ensure
// creates. thumbnail.Generator does not write here: it puts each job's
// thumbnails under that job's own storage directory.
func (l Layout) ThumbnailsDir() string {
	return filepath.Join(l.Root, "thumbnails")
}

// ThumbPath returns the thumbnail path for a file id, per spec.md §6's
// thumbnails/{file_id}_thumb.jpg naming.
func (l Layout) ThumbPath(fileID int64) string {
	return filepath.Join(l.ThumbnailsDir(), itoa(fileID)+"_thumb.jpg")
}

// PreviewPath returns the larger preview path for a file id, per spec.md
// §6's thumbnails/{file_id}_preview.jpg naming.
func (l Layout) PreviewPath(fileID int64) string {
	return filepath.Join(l.ThumbnailsDir(), itoa(fileID)+"_preview.jpg")
}

// OutputDir is the export destination root, workspace/output/.
func (l Layout) OutputDir() string {
	return filepath.Join(l.Root, "output")
}

// DBPath is the Review Store's SQLite file, kept outside every
// job-specific subdirectory so it survives a staging directory cleanup.
func (l Layout) DBPath() string {
	return filepath.Join(l.Root, "review.db")
}

// QueueDir is the task queue's badger directory, deliberately separate
// from DBPath so the two stores never contend for the same files.
func (l Layout) QueueDir() string {
	return filepath.Join(l.Root, "queue.badger")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
