package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mediaparser/internal/store"
)

func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List, inspect, and resolve a job's files",
	}
	cmd.AddCommand(
		newReviewListCmd(a),
		newReviewShowCmd(a),
		newReviewConfirmCmd(a),
		newReviewDiscardCmd(a),
		newReviewUndiscardCmd(a),
		newReviewResolveExactCmd(a),
		newReviewResolveSimilarCmd(a),
		newReviewKeepAllSimilarCmd(a),
		newReviewRemoveFromSimilarCmd(a),
	)
	return cmd
}

// newReviewResolveExactCmd implements spec.md §4.8's exact-group resolution:
// keep one file, discard the rest of the group.
func newReviewResolveExactCmd(a *app) *cobra.Command {
	var groupID string
	var keepFileID int64
	cmd := &cobra.Command{
		Use:   "resolve-exact",
		Short: "Keep one file from an exact-duplicate group, discarding the rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.ResolveExactGroup(cmd.Context(), groupID, keepFileID); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("Resolved exact group %s, kept file %d.\n", groupID, keepFileID)
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Exact group id")
	cmd.Flags().Int64Var(&keepFileID, "keep", 0, "File id to keep")
	cmd.MarkFlagRequired("group")
	cmd.MarkFlagRequired("keep")
	return cmd
}

// newReviewResolveSimilarCmd implements spec.md §4.8's similar-group
// resolution: keep one or more files, discard the rest of the group.
func newReviewResolveSimilarCmd(a *app) *cobra.Command {
	var groupID string
	var keepFileIDs []int64
	cmd := &cobra.Command{
		Use:   "resolve-similar",
		Short: "Keep one or more files from a similar-group, discarding the rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.ResolveSimilarGroup(cmd.Context(), groupID, keepFileIDs); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("Resolved similar group %s, kept files %v.\n", groupID, keepFileIDs)
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Similar group id")
	cmd.Flags().Int64SliceVar(&keepFileIDs, "keep", nil, "File id to keep (repeatable)")
	cmd.MarkFlagRequired("group")
	cmd.MarkFlagRequired("keep")
	return cmd
}

// newReviewKeepAllSimilarCmd clears a similar group's membership without
// discarding anyone, per spec.md §4.8's "keep all" resolution.
func newReviewKeepAllSimilarCmd(a *app) *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:   "keep-all",
		Short: "Keep every file in a similar group, clearing its group membership",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.KeepAllSimilar(cmd.Context(), groupID); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("Kept all files in similar group %s.\n", groupID)
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Similar group id")
	cmd.MarkFlagRequired("group")
	return cmd
}

// newReviewRemoveFromSimilarCmd drops one file out of its similar group
// without discarding it or affecting the rest of the group.
func newReviewRemoveFromSimilarCmd(a *app) *cobra.Command {
	var fileID int64
	cmd := &cobra.Command{
		Use:   "remove-from-similar",
		Short: "Drop one file out of its similar group without discarding it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.RemoveFromSimilarGroup(cmd.Context(), fileID); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("Removed file %d from its similar group.\n", fileID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newReviewListCmd(a *app) *cobra.Command {
	var jobID int64
	var mode string
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a job's files filtered by mode (all, duplicates, similar, unreviewed, reviewed, discarded, failed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			files, total, err := a.Store.ListJobFiles(ctx, jobID, store.ListFilesQuery{
				Mode: store.ListMode(mode), Page: page, PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			for _, f := range files {
				line := fmt.Sprintf("%6d  %-40s  conf=%-6s", f.ID, f.OriginalFilename, f.Confidence)
				if f.ChosenTimestamp != nil {
					line += "  ts=" + f.ChosenTimestamp.Format(time.RFC3339)
				}
				if f.ExactGroupID != "" {
					line += "  exact=" + f.ExactGroupID[:8]
				}
				if f.SimilarGroupID != "" {
					line += "  similar=" + f.SimilarGroupID[:8] + "(" + f.SimilarGroupKind + ")"
				}
				if f.Discarded {
					line += "  [discarded]"
				}
				fmt.Println(line)
			}
			color.New(color.FgWhite).Printf("%d of %d files (mode=%s, page %d)\n", len(files), total, mode, page)
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "Job id")
	cmd.Flags().StringVar(&mode, "mode", string(store.ModeAll), "Filter mode")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "Page size")
	cmd.MarkFlagRequired("job")
	return cmd
}

func newReviewShowCmd(a *app) *cobra.Command {
	var fileID int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one file's full detail, including timestamp candidates and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := a.Store.GetFile(ctx, fileID)
			if err != nil {
				return err
			}
			tags, err := a.Store.FileTags(ctx, fileID)
			if err != nil {
				return err
			}

			color.New(color.FgCyan, color.Bold).Printf("File %d: %s\n", f.ID, f.OriginalFilename)
			fmt.Printf("  mime:       %s (%dx%d)\n", f.MIMEType, f.Width, f.Height)
			fmt.Printf("  confidence: %s (source=%s)\n", f.Confidence, f.TimestampSource)
			if f.ChosenTimestamp != nil {
				fmt.Printf("  chosen:     %s\n", f.ChosenTimestamp.Format(time.RFC3339))
			}
			if f.FinalTimestamp != nil {
				fmt.Printf("  final:      %s (reviewed)\n", f.FinalTimestamp.Format(time.RFC3339))
			}
			for _, c := range f.Candidates {
				fmt.Printf("    candidate: %-24s %s\n", c.Source, c.UTC.Format(time.RFC3339))
			}
			if len(tags) > 0 {
				fmt.Printf("  tags:       %v\n", tags)
			}
			if f.ProcessingError != "" {
				color.New(color.FgRed).Printf("  error:      %s\n", f.ProcessingError)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newReviewConfirmCmd(a *app) *cobra.Command {
	var fileID int64
	var timestamp string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a file's final timestamp, defaulting to its chosen timestamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ts := time.Time{}
			if timestamp != "" {
				parsed, err := time.Parse(time.RFC3339, timestamp)
				if err != nil {
					return fmt.Errorf("parsing --timestamp: %w", err)
				}
				ts = parsed
			} else {
				f, err := a.Store.GetFile(ctx, fileID)
				if err != nil {
					return err
				}
				if f.ChosenTimestamp == nil {
					return fmt.Errorf("file %d has no chosen timestamp; pass --timestamp explicitly", fileID)
				}
				ts = *f.ChosenTimestamp
			}
			if err := a.Store.MarkReviewed(ctx, fileID, ts); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("File %d confirmed with final timestamp %s.\n", fileID, ts.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "RFC3339 timestamp to confirm (defaults to the chosen timestamp)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newReviewDiscardCmd(a *app) *cobra.Command {
	var fileIDs []int64
	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Discard one or more files, clearing their group membership",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.Discard(cmd.Context(), fileIDs); err != nil {
				return err
			}
			color.New(color.FgYellow).Printf("Discarded %d file(s).\n", len(fileIDs))
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&fileIDs, "file", nil, "File id (repeatable)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newReviewUndiscardCmd(a *app) *cobra.Command {
	var fileIDs []int64
	cmd := &cobra.Command{
		Use:   "undiscard",
		Short: "Restore one or more discarded files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.Undiscard(cmd.Context(), fileIDs); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("Restored %d file(s).\n", len(fileIDs))
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&fileIDs, "file", nil, "File id (repeatable)")
	cmd.MarkFlagRequired("file")
	return cmd
}
