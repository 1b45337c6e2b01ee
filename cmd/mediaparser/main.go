// Command mediaparser is the CLI front end over the ingest/review/export
// core: a cobra command tree wrapping internal/store, internal/jobengine,
// internal/queue, and internal/export's typed operations, in the same
// banner-plus-subcommand shape the teacher's main.go uses for bozobackup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediaparser/internal/config"
	"mediaparser/internal/fileproc"
	"mediaparser/internal/jobengine"
	"mediaparser/internal/logging"
	"mediaparser/internal/probe"
	"mediaparser/internal/queue"
	"mediaparser/internal/store"
	"mediaparser/internal/thumbnail"
	"mediaparser/internal/workspace"
)

// app bundles the long-lived dependencies every subcommand needs. It is
// built once in the root command's PersistentPreRunE and torn down in
// PersistentPostRunE, the same open-once/close-once shape the teacher's
// main.go uses for its single *sql.DB.
type app struct {
	Layout    workspace.Layout
	Store     *store.Store
	Queue     *queue.Queue
	Processor *fileproc.Processor
	Prober    *probe.Prober
	Config    config.Config
	Logger    *zap.Logger
}

func main() {
	var workspaceRoot, timezone, metadataTool string
	var verbose bool

	a := &app{}

	root := &cobra.Command{
		Use:   "mediaparser",
		Short: "Ingest, deduplicate, and review family photo and video libraries",
		Long: `mediaparser ingests a directory of photos and videos, extracts and
reconciles their capture timestamps, finds exact and near duplicates, and
exposes the results through a reviewable queue before exporting a clean,
date-organized library.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if workspaceRoot == "" {
				return fmt.Errorf("--workspace is required")
			}
			return a.open(cmd.Context(), workspaceRoot, timezone, metadataTool, verbose)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&workspaceRoot, "workspace", "w", "", "Workspace directory (uploads, thumbnails, output, review.db)")
	root.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA timezone for timestamps with no UTC offset (overrides TIMEZONE)")
	root.PersistentFlags().StringVar(&metadataTool, "metadata-tool", "", "Path to the exiftool binary (overrides METADATA_TOOL_PATH)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug-level logging")

	root.AddCommand(
		newImportCmd(a),
		newWorkCmd(a),
		newRunCmd(a),
		newPauseCmd(a),
		newResumeCmd(a),
		newCancelCmd(a),
		newStatusCmd(a),
		newExportCmd(a),
		newReviewCmd(a),
		newTagsCmd(a),
		newSettingsCmd(a),
	)

	ctx, cancel := context.WithCancel(context.Background())
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		color.New(color.FgRed, color.Bold).Println("\nInterrupted. Shutting down.")
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) open(ctx context.Context, workspaceRoot, timezoneOverride, metadataToolOverride string, verbose bool) error {
	a.Layout = workspace.New(workspaceRoot)
	if err := a.Layout.Ensure(); err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}

	a.Config = config.Load(config.Config{Timezone: timezoneOverride, MetadataToolPath: metadataToolOverride})
	a.Logger = logging.New(verbose)

	st, err := store.Open(ctx, store.DefaultOptions(a.Layout.DBPath()))
	if err != nil {
		return fmt.Errorf("opening review store: %w", err)
	}
	a.Store = st

	q, err := queue.Open(queue.Options{Path: a.Layout.QueueDir()})
	if err != nil {
		return fmt.Errorf("opening task queue: %w", err)
	}
	a.Queue = q

	loc, err := time.LoadLocation(a.Config.Timezone)
	if err != nil {
		loc = time.UTC
	}

	a.Prober = probe.New(a.Config.MetadataToolPath, a.Config.MetadataToolTimeout)
	thumbs := thumbnail.New("", a.Config.MetadataToolTimeout)
	a.Processor = fileproc.NewProcessor(a.Prober, thumbs, loc, a.Config.MinValidYear, 256)
	return nil
}

func (a *app) close() error {
	if a.Prober != nil {
		a.Prober.Close()
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// newOrchestrator builds a jobengine.Orchestrator from the app's shared
// dependencies and its resolved Config, for the run/resume commands.
func (a *app) newOrchestrator() *jobengine.Orchestrator {
	cfg := jobengine.Config{
		WorkerThreads:   a.Config.WorkerThreads,
		BatchCommitSize: a.Config.BatchCommitSize,
		ErrorThreshold:  a.Config.ErrorThreshold,
		MinSample:       a.Config.MinSample,
		ClusterWindow:   a.Config.ClusterWindow,
	}
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = 4
	}
	return jobengine.New(a.Store, a.Processor, cfg, a.Logger)
}
