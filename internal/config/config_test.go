package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "")
	t.Setenv("BATCH_COMMIT_SIZE", "")
	t.Setenv("ERROR_THRESHOLD", "")

	cfg := Load(Config{})

	if cfg.Timezone != "America/New_York" {
		t.Errorf("Timezone default = %q, want America/New_York", cfg.Timezone)
	}
	if cfg.BatchCommitSize != 10 {
		t.Errorf("BatchCommitSize default = %d, want 10", cfg.BatchCommitSize)
	}
	if cfg.ErrorThreshold != 0.10 {
		t.Errorf("ErrorThreshold default = %v, want 0.10", cfg.ErrorThreshold)
	}
	if cfg.MinSample != 10 {
		t.Errorf("MinSample default = %d, want 10", cfg.MinSample)
	}
	if cfg.MinValidYear != 2000 {
		t.Errorf("MinValidYear default = %d, want 2000", cfg.MinValidYear)
	}
	if cfg.ClusterWindow != 5*time.Second {
		t.Errorf("ClusterWindow default = %v, want 5s", cfg.ClusterWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg := Load(Config{
		Timezone:        "UTC",
		BatchCommitSize: 25,
		MinValidYear:    1995,
	})

	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone override = %q, want UTC", cfg.Timezone)
	}
	if cfg.BatchCommitSize != 25 {
		t.Errorf("BatchCommitSize override = %d, want 25", cfg.BatchCommitSize)
	}
	if cfg.MinValidYear != 1995 {
		t.Errorf("MinValidYear override = %d, want 1995", cfg.MinValidYear)
	}
	// Untouched fields still fall back to spec defaults.
	if cfg.ErrorThreshold != 0.10 {
		t.Errorf("ErrorThreshold = %v, want default 0.10", cfg.ErrorThreshold)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CLUSTER_WINDOW_SECONDS", "8")
	cfg := Load(Config{})
	if cfg.ClusterWindow != 8*time.Second {
		t.Errorf("ClusterWindow from env = %v, want 8s", cfg.ClusterWindow)
	}
}
