//go:build windows

package diskspace

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// free calls GetDiskFreeSpaceEx on the volume containing path and returns
// the caller's own quota-aware free byte count (freeBytesAvailable, not
// totalNumberOfFreeBytes, which ignores per-user disk quotas) — the figure
// RequireFree needs before staging an import job's files under
// workspace/uploads/job_{id}/.
func free(path string) (uint64, error) {
	var freeBytesAvailable, totalNumberOfBytes, totalNumberOfFreeBytes uint64

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("encoding path %s: %w", path, err)
	}

	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalNumberOfBytes, &totalNumberOfFreeBytes); err != nil {
		return 0, fmt.Errorf("GetDiskFreeSpaceEx %s: %w", path, err)
	}
	return freeBytesAvailable, nil
}
