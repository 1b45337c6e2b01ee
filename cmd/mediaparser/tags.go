package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags, or add/remove tags on a file",
	}
	cmd.AddCommand(newTagsListCmd(a), newTagsAddCmd(a), newTagsRemoveCmd(a))
	return cmd
}

func newTagsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known tag with its usage count",
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := a.Store.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Printf("%-24s %d\n", t.Name, t.UseCount)
			}
			return nil
		},
	}
}

func newTagsAddCmd(a *app) *cobra.Command {
	var fileID int64
	var names []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Attach one or more tags to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.AddFileTags(cmd.Context(), fileID, names); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("Tagged file %d with %v.\n", fileID, names)
			return nil
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id")
	cmd.Flags().StringSliceVar(&names, "tag", nil, "Tag name (repeatable)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func newTagsRemoveCmd(a *app) *cobra.Command {
	var fileID int64
	var names []string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Detach one or more tags from a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.RemoveFileTags(cmd.Context(), fileID, names); err != nil {
				return err
			}
			color.New(color.FgYellow).Printf("Removed tags %v from file %d.\n", names, fileID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id")
	cmd.Flags().StringSliceVar(&names, "tag", nil, "Tag name (repeatable)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("tag")
	return cmd
}
