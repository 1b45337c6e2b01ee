package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newWorkCmd drains the durable task queue, the C10 consumer side of the
// Enqueue call import.go makes: each ready job id is handed to the same
// orchestrator run/resume uses, one job at a time, until the queue goes
// idle or the process is interrupted.
func newWorkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Consume queued import jobs until the queue is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o := a.newOrchestrator()
			return a.Queue.Consume(ctx, func(ctx context.Context, jobID int64) error {
				color.New(color.FgCyan).Printf("Consuming job %d\n", jobID)
				if err := o.Run(ctx, jobID); err != nil {
					return fmt.Errorf("job %d: %w", jobID, err)
				}
				return printJobOutcome(ctx, a, jobID)
			})
		},
	}
	return cmd
}
