package commands

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// NewAnalyticsCmd creates the analytics command
func NewAnalyticsCmd(env *Env) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show brand, merge level and confidence distributions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !local {
				data, err := env.API.AnalyticsData(cmd.Context())
				if err == nil {
					render.Analytics(env.Out, data)
					return nil
				}
				if !analyticsUnavailable(err) {
					return err
				}
				env.Log.Info().Err(err).Msg("backend analytics unavailable, computing locally")
			}

			products, err := fetchAllProducts(cmd, env, client.ProductQuery{Limit: 1000})
			if err != nil {
				return err
			}
			render.Analytics(env.Out, types.Analytics(products))
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Compute the charts from the product list instead of the backend aggregates")

	return guard.Mark(cmd, guard.Protected)
}

// analyticsUnavailable reports whether the backend lacks the aggregate endpoint
func analyticsUnavailable(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusNotImplemented
}
