// Package logging configures the structured zap logger used by the
// orchestrator, store and export planner for their operational trail. CLI
// user-facing output stays on fatih/color + fmt in cmd/mediaparser; this
// logger is for the worker/orchestrator process, which per spec.md §5 may
// run detached from the API-serving process.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap.Logger. verbose switches the level
// from Info to Debug, which is useful while developing the job engine's
// batch-flush and threshold-halt paths.
func New(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// zap's own production config cannot fail to build under normal
		// circumstances; fall back to a no-op logger rather than panicking
		// the caller over a logging concern.
		return zap.NewNop()
	}
	return logger
}

// Job returns a child logger scoped to a single job id, the common case for
// every log line the orchestrator emits.
func Job(base *zap.Logger, jobID int64) *zap.Logger {
	return base.With(zap.Int64("job_id", jobID))
}
