// Package config resolves the runtime-tunable knobs listed in spec.md §6
// from environment variables and flag overrides into a single immutable
// Config value. A Config is captured once at job start and passed by value
// into every worker invocation (see DESIGN NOTES "Global configuration" in
// spec.md §9) — there are no package-level mutable globals here.
package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved, immutable set of tunables for one job run.
type Config struct {
	// Timezone is the IANA zone used to interpret EXIF timestamps that
	// carry no explicit UTC offset, before normalizing to UTC.
	Timezone string

	// MetadataToolPath is the exiftool (or compatible) binary invoked by
	// the metadata probe. Empty means "look up exiftool on PATH".
	MetadataToolPath string

	// WorkerThreads bounds the per-job worker pool. Defaults to the
	// logical CPU count when unset or non-positive.
	WorkerThreads int

	// BatchCommitSize is the number of processed-file results the
	// orchestrator accumulates before flushing a transaction to the
	// Review Store.
	BatchCommitSize int

	// ErrorThreshold is the fraction of processed files (0..1) that may
	// fail before the job halts, once MinSample has been processed.
	ErrorThreshold float64

	// MinSample is the minimum number of processed files before the
	// error-threshold check can trigger a halt.
	MinSample int

	// MinValidYear is the earliest calendar year a timestamp candidate
	// may claim before it is dropped by the sanity filter.
	MinValidYear int

	// ClusterWindow is the maximum gap between consecutive sorted
	// timestamps before the duplicate engine starts a new cluster.
	ClusterWindow time.Duration

	// MetadataToolTimeout bounds each invocation of the external
	// metadata/frame-extraction utilities.
	MetadataToolTimeout time.Duration
}

// Load resolves a Config from the environment, applying the defaults from
// spec.md §6. Flag values passed by the CLI layer take precedence over the
// environment when non-zero; this mirrors cobra's "flag wins over env"
// convention used throughout the corpus (e.g. gardener's component configs).
func Load(overrides Config) Config {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetDefault("TIMEZONE", "America/New_York")
	v.SetDefault("METADATA_TOOL_PATH", "")
	v.SetDefault("WORKER_THREADS", 0)
	v.SetDefault("BATCH_COMMIT_SIZE", 10)
	v.SetDefault("ERROR_THRESHOLD", 0.10)
	v.SetDefault("MIN_SAMPLE", 10)
	v.SetDefault("MIN_VALID_YEAR", 2000)
	v.SetDefault("CLUSTER_WINDOW_SECONDS", 5)

	cfg := Config{
		Timezone:            v.GetString("TIMEZONE"),
		MetadataToolPath:    v.GetString("METADATA_TOOL_PATH"),
		WorkerThreads:       v.GetInt("WORKER_THREADS"),
		BatchCommitSize:     v.GetInt("BATCH_COMMIT_SIZE"),
		ErrorThreshold:      v.GetFloat64("ERROR_THRESHOLD"),
		MinSample:           v.GetInt("MIN_SAMPLE"),
		MinValidYear:        v.GetInt("MIN_VALID_YEAR"),
		ClusterWindow:       time.Duration(v.GetInt("CLUSTER_WINDOW_SECONDS")) * time.Second,
		MetadataToolTimeout: 30 * time.Second,
	}

	if strings.TrimSpace(overrides.Timezone) != "" {
		cfg.Timezone = overrides.Timezone
	}
	if strings.TrimSpace(overrides.MetadataToolPath) != "" {
		cfg.MetadataToolPath = overrides.MetadataToolPath
	}
	if overrides.WorkerThreads > 0 {
		cfg.WorkerThreads = overrides.WorkerThreads
	}
	if overrides.BatchCommitSize > 0 {
		cfg.BatchCommitSize = overrides.BatchCommitSize
	}
	if overrides.ErrorThreshold > 0 {
		cfg.ErrorThreshold = overrides.ErrorThreshold
	}
	if overrides.MinSample > 0 {
		cfg.MinSample = overrides.MinSample
	}
	if overrides.MinValidYear > 0 {
		cfg.MinValidYear = overrides.MinValidYear
	}
	if overrides.ClusterWindow > 0 {
		cfg.ClusterWindow = overrides.ClusterWindow
	}
	if overrides.MetadataToolTimeout > 0 {
		cfg.MetadataToolTimeout = overrides.MetadataToolTimeout
	}
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = runtime.NumCPU()
	}

	return cfg
}
