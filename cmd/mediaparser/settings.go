package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newSettingsCmd exposes the Setting entity (key/value runtime config such
// as the configured output directory or display timezone) from spec.md §3.
func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Get or set a runtime setting (e.g. output_dir, display_timezone)",
	}
	cmd.AddCommand(newSettingsGetCmd(a), newSettingsSetCmd(a))
	return cmd
}

func newSettingsGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := a.Store.GetSetting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				color.New(color.FgYellow).Printf("%s is unset\n", args[0])
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
	return cmd
}

func newSettingsSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a setting's value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.PutSetting(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}
