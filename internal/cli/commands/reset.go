package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
)

const (
	resetWarningClearCache = "WARNING: This will delete ALL data AND clear the AI Cache!\n\n" +
		"This includes:\n" +
		"- All uploaded files\n" +
		"- All processed products\n" +
		"- All AI knowledge (Cache)\n\n" +
		"This will force the AI to re-process EVERYTHING. This is recommended for a 100% \"Fresh Start\".\n\n" +
		"Are you sure?"
	resetWarningKeepCache = "WARNING: This will delete all products but KEEP the AI Cache.\n\n" +
		"Are you sure?"
)

// NewResetCmd creates the reset command
func NewResetCmd(env *Env) *cobra.Command {
	var clearCache, yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all products (and optionally the AI cache)",
		RunE: func(cmd *cobra.Command, args []string) error {
			warning := resetWarningKeepCache
			if clearCache {
				warning = resetWarningClearCache
			}

			if !yes {
				fmt.Fprintln(env.Out, render.Warning(warning))
				confirmed, err := env.Confirm("Reset the database")
				if err != nil {
					return fmt.Errorf("confirmation failed: %w", err)
				}
				if !confirmed {
					fmt.Fprintln(env.Out, "Reset aborted.")
					return nil
				}
			}

			result, err := env.API.ResetDatabase(cmd.Context(), clearCache)
			if err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}

			msg := "System reset successfully!"
			if clearCache {
				msg += " AI Cache cleared."
			}
			fmt.Fprintln(env.Out, render.Success(msg))

			tables := make([]string, 0, len(result.DeletedCounts))
			for table := range result.DeletedCounts {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			for _, table := range tables {
				render.Field(env.Out, table, result.DeletedCounts[table])
			}
			render.Field(env.Out, "Total deleted", result.TotalDeleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Also clear the AI cache (full fresh start)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return guard.Mark(cmd, guard.Protected)
}
