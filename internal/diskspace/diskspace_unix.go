//go:build !windows

package diskspace

import (
	"fmt"
	"syscall"
)

// free statfs's the filesystem containing path and returns the space a
// non-root writer can actually use (Bavail, not Bfree, which includes the
// superuser-reserved blocks) — the figure RequireFree needs before staging
// an import job's files under workspace/uploads/job_{id}/.
func free(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
