package diskspace

import (
	"errors"
	"testing"

	"mediaparser/internal/errs"
)

func TestFreeReturnsPositiveValue(t *testing.T) {
	dir := t.TempDir()
	avail, err := Free(dir)
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if avail == 0 {
		t.Error("Free returned 0 bytes available, want a positive value on a real filesystem")
	}
}

func TestRequireFreeSucceedsForSmallRequirement(t *testing.T) {
	dir := t.TempDir()
	if err := RequireFree(dir, 1); err != nil {
		t.Errorf("RequireFree(1 byte): %v", err)
	}
}

func TestRequireFreeFailsForImpossibleRequirement(t *testing.T) {
	dir := t.TempDir()
	err := RequireFree(dir, 1<<62)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("RequireFree(huge) = %v, want errs.ErrValidation", err)
	}
}
