package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"mediaparser/internal/export"
	"mediaparser/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a job's non-discarded files into the dated output tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files, _, err := a.Store.ListJobFiles(ctx, jobID, store.ListFilesQuery{Mode: store.ModeAll, Page: 1, PageSize: 1 << 30})
			if err != nil {
				return err
			}
			var toExport []store.File
			for _, f := range files {
				if !f.Discarded {
					toExport = append(toExport, f)
				}
			}
			if len(toExport) == 0 {
				return fmt.Errorf("job %d has no exportable files", jobID)
			}

			fileIDs := make([]int64, 0, len(toExport))
			for _, f := range toExport {
				fileIDs = append(fileIDs, f.ID)
			}
			exportJobID, err := a.Store.CreateExportJob(ctx, a.Layout.OutputDir(), fileIDs)
			if err != nil {
				return err
			}
			if err := a.Store.TransitionJob(ctx, exportJobID, store.JobRunning, ""); err != nil {
				return err
			}

			planner := &export.Planner{Prober: a.Prober, OutputRoot: a.Layout.OutputDir()}
			bar := progressbar.NewOptions(len(toExport),
				progressbar.OptionSetDescription("Exporting"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var failed int
			for i, f := range toExport {
				tags, err := a.Store.FileTags(ctx, f.ID)
				if err != nil {
					return err
				}
				res := planner.ExportFile(ctx, f, tags)
				if res.Error != nil {
					failed++
					color.New(color.FgYellow).Printf("\n  %s: %v\n", f.OriginalFilename, res.Error)
				}
				bar.Add(1)
				_ = a.Store.UpdateJobProgress(ctx, exportJobID, i+1, f.OriginalFilename, failed)
			}

			finalStatus := store.JobCompleted
			if failed == len(toExport) {
				finalStatus = store.JobFailed
			}
			if err := a.Store.TransitionJob(ctx, exportJobID, finalStatus, ""); err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Printf("Export job %d: %d exported, %d failed.\n",
				exportJobID, len(toExport)-failed, failed)
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Import job id whose files should be exported")
	cmd.MarkFlagRequired("job")
	return cmd
}
