package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"mediaparser/internal/store"
)

func newRunCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a pending import job: hash, extract timestamps, thumbnail, and group duplicates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobWithProgress(cmd.Context(), a, jobID)
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Job id to run")
	cmd.MarkFlagRequired("job")
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused import job from where it left off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobWithProgress(cmd.Context(), a, jobID)
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Job id to resume")
	cmd.MarkFlagRequired("job")
	return cmd
}

// runJobWithProgress drives the orchestrator on a background goroutine and
// polls job progress on the main goroutine to render a progress bar —
// jobengine.Orchestrator.Run itself has no progress callback, only the
// persisted progress_current/progress_total fields the orchestrator's
// batch flush updates.
func runJobWithProgress(ctx context.Context, a *app, jobID int64) error {
	job, err := a.Store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(job.ProgressTotal,
		progressbar.OptionSetDescription(fmt.Sprintf("Job %d", jobID)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan error, 1)
	o := a.newOrchestrator()
	go func() { done <- o.Run(ctx, jobID) }()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			bar.Finish()
			if err != nil {
				return err
			}
			return printJobOutcome(ctx, a, jobID)
		case <-ticker.C:
			if current, err := a.Store.GetJob(ctx, jobID); err == nil {
				bar.ChangeMax(current.ProgressTotal)
				bar.Set(current.ProgressCurrent)
			}
		}
	}
}

func printJobOutcome(ctx context.Context, a *app, jobID int64) error {
	job, err := a.Store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case store.JobCompleted:
		color.New(color.FgGreen, color.Bold).Printf("Job %d completed: %d/%d files processed, %d errors.\n",
			jobID, job.ProgressCurrent, job.ProgressTotal, job.ErrorCount)
	case store.JobHalted:
		color.New(color.FgRed, color.Bold).Printf("Job %d halted: %s\n", jobID, job.Message)
	case store.JobPaused:
		color.New(color.FgYellow).Printf("Job %d paused at %d/%d files.\n", jobID, job.ProgressCurrent, job.ProgressTotal)
	case store.JobCancelled:
		color.New(color.FgYellow).Printf("Job %d cancelled at %d/%d files.\n", jobID, job.ProgressCurrent, job.ProgressTotal)
	default:
		color.New(color.FgWhite).Printf("Job %d is %s.\n", jobID, job.Status)
	}
	return nil
}

func newPauseCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Request a running job to pause after its current batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.TransitionJob(cmd.Context(), jobID, store.JobPaused, ""); err != nil {
				return err
			}
			color.New(color.FgYellow).Printf("Job %d will pause shortly.\n", jobID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Job id to pause")
	cmd.MarkFlagRequired("job")
	return cmd
}

func newCancelCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Request a running job to cancel after its current batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.TransitionJob(cmd.Context(), jobID, store.JobCancelled, ""); err != nil {
				return err
			}
			color.New(color.FgRed).Printf("Job %d will cancel shortly.\n", jobID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Job id to cancel")
	cmd.MarkFlagRequired("job")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a job's current status and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.Store.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			color.New(color.FgCyan, color.Bold).Printf("Job %d (%s)\n", job.ID, job.Kind)
			fmt.Printf("  status:   %s\n", job.Status)
			fmt.Printf("  progress: %d/%d (errors: %d)\n", job.ProgressCurrent, job.ProgressTotal, job.ErrorCount)
			if job.CurrentFilename != "" {
				fmt.Printf("  current:  %s\n", job.CurrentFilename)
			}
			if job.Message != "" {
				fmt.Printf("  message:  %s\n", job.Message)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Job id to inspect")
	cmd.MarkFlagRequired("job")
	return cmd
}
