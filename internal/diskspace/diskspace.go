// Package diskspace checks available free space before a staging copy, the
// way the teacher's getFreeSpace/required-space check in main.go gates a
// backup run before it starts copying. Here it generalizes to the ingestion
// path's workspace/uploads/job_{id}/ staging copy (spec.md's supplemented
// free-disk-space preflight) instead of a single backup destination.
package diskspace

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"mediaparser/internal/errs"
)

// Free returns the bytes available on the filesystem containing path.
func Free(path string) (uint64, error) {
	return free(path)
}

// RequireFree returns an errs.ErrValidation-wrapped error if path's
// filesystem has fewer than requiredBytes available, mirroring the
// teacher's "Not enough free space in destination" fatal check but as a
// returned error instead of a process exit, so the caller (C8's
// CreateImportJob) can surface it as a normal validation failure.
func RequireFree(path string, requiredBytes int64) error {
	avail, err := Free(path)
	if err != nil {
		return fmt.Errorf("diskspace: checking %s: %w", path, err)
	}
	if avail < uint64(requiredBytes) {
		return fmt.Errorf("%w: need %s free at %s, have %s", errs.ErrValidation,
			humanize.Bytes(uint64(requiredBytes)), path, humanize.Bytes(avail))
	}
	return nil
}
