package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
)

// NewDashboardCmd creates the dashboard command, the home view
func NewDashboardCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"home", "summary"},
		Short:   "Show processing and catalog totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.showHome(cmd.Context())
		},
	}
	return guard.Mark(cmd, guard.Protected)
}

// NewBrandsCmd creates the brands command
func NewBrandsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "List the distinct brands in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			brands, err := env.API.Brands(cmd.Context())
			if err != nil {
				return err
			}
			if len(brands) == 0 {
				fmt.Fprintln(env.Out, "No brands found.")
				fmt.Fprintln(env.Out, "\nUpload a spreadsheet with: fmcg upload <file.xlsx>")
				return nil
			}
			for _, b := range brands {
				fmt.Fprintln(env.Out, b)
			}
			fmt.Fprintln(env.Out, render.Muted(fmt.Sprintf("%d brand(s)", len(brands))))
			return nil
		},
	}
	return guard.Mark(cmd, guard.Protected)
}
