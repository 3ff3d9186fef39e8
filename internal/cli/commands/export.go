package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
)

var reportTypes = []string{"all", "low_confidence", "merged"}

// exportFileName mirrors the dashboard download name
func exportFileName(reportType string, now time.Time) string {
	prefix := "Master_Stock"
	if reportType != "all" {
		prefix = "Export_" + reportType
	}
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format("2006-01-02"))
}

// NewExportCmd creates the export command
func NewExportCmd(env *Env) *cobra.Command {
	var reportType, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the master stock as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			valid := false
			for _, t := range reportTypes {
				valid = valid || t == reportType
			}
			if !valid {
				return fmt.Errorf("invalid --type %q (expected one of %v)", reportType, reportTypes)
			}
			if output == "" {
				output = exportFileName(reportType, env.Now())
			}

			// Write to a temp file so a failed download never leaves a partial export
			tmp, err := os.CreateTemp(filepath.Dir(output), ".fmcg-export-*")
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer os.Remove(tmp.Name())

			n, err := env.API.ExportMasterStock(cmd.Context(), reportType, tmp)
			if closeErr := tmp.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				if interrupted(err) {
					fmt.Fprintln(env.Out, render.Warning("Export cancelled by user"))
					return nil
				}
				return err
			}
			if err := os.Rename(tmp.Name(), output); err != nil {
				return fmt.Errorf("failed to save export: %w", err)
			}

			fmt.Fprintln(env.Out, render.Success(fmt.Sprintf("Saved %s (%s)", output, humanize.Bytes(uint64(n)))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportType, "type", "t", "all", "Report type: all, low_confidence or merged")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default Master_Stock_<date>.csv)")

	return guard.Mark(cmd, guard.Protected)
}
