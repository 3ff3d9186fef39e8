package commands

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
	"github.com/fmcg-dev/fmcg/internal/cli/upload"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// NewUploadCmd creates the upload command
func NewUploadCmd(env *Env) *cobra.Command {
	var process bool

	cmd := &cobra.Command{
		Use:   "upload <file.xlsx>",
		Short: "Upload a stock spreadsheet (.xlsx or .xls, up to 100MB)",
		Long: `Upload a stock spreadsheet to the backend.

Press Ctrl-C to cancel an upload in progress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progressed atomic.Bool
			s := upload.NewSession(env.API,
				upload.WithLogger(env.Log),
				upload.WithProgress(func(p int) {
					progressed.Store(true)
					fmt.Fprintf(env.Err, "\rUploading... %3d%%", p)
				}),
			)

			out := s.RunFile(cmd.Context(), args[0])
			if progressed.Load() {
				fmt.Fprintln(env.Err)
			}

			switch out.State {
			case upload.StateCancelled:
				fmt.Fprintln(env.Out, render.Warning(out.Message))
				return nil
			case upload.StateSuccess:
			default:
				return out.Err
			}

			printUploadResult(env, out.Result)
			if !process {
				if len(out.Result.Sheets) > 0 {
					fmt.Fprintln(env.Out, render.Muted("Run 'fmcg process <sheet>' to start AI mastering."))
				}
				return nil
			}

			for _, sheet := range out.Result.Sheets {
				if err := runProcess(cmd, env, sheet.SheetName); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&process, "process", false, "Run AI mastering on every uploaded sheet")

	return guard.Mark(cmd, guard.Protected)
}

func printUploadResult(env *Env, r *types.UploadResult) {
	fmt.Fprintln(env.Out, render.Success("Uploaded "+r.Filename))
	for _, sheet := range r.Sheets {
		fmt.Fprintf(env.Out, "  %s (%d rows)\n", sheet.SheetName, sheet.Rows)
	}
	if r.TotalRows > 0 {
		render.Field(env.Out, "Total rows", r.TotalRows)
	}
}

// NewProcessCmd creates the process command
func NewProcessCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <sheet>",
		Short: "Run AI mastering on an uploaded sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, env, args[0])
		},
	}
	return guard.Mark(cmd, guard.Protected)
}

func runProcess(cmd *cobra.Command, env *Env, sheet string) error {
	fmt.Fprintf(env.Out, "Processing %s with AI mastering...\n", sheet)
	result, err := env.API.TriggerLLMMastering(cmd.Context(), sheet)
	if err != nil {
		if interrupted(err) {
			fmt.Fprintln(env.Out, render.Warning("Processing cancelled by user"))
			return nil
		}
		return err
	}
	fmt.Fprintln(env.Out, render.Success("Processed "+result.SheetName))
	render.Field(env.Out, "Products", result.Processed)
	render.Field(env.Out, "Merged", result.Merged)
	render.Field(env.Out, "Low confidence", result.LowConfidence)
	return nil
}
