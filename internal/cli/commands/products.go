package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/catalog"
	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
	"github.com/fmcg-dev/fmcg/internal/types"
)

var confidenceStatuses = []string{"all", "low", "high"}

// NewProductsCmd creates the products command
func NewProductsCmd(env *Env) *cobra.Command {
	var (
		q        client.ProductQuery
		sortBy   string
		desc     bool
		allPages bool
	)

	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"ls"},
		Short:   "Browse and search the master product catalog",
		Example: `  fmcg products --search cola
  fmcg products --brand "Coca Cola" --confidence low
  fmcg products --limit 50 --skip 100 --sort confidence --desc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validConfidenceStatus(q.ConfidenceStatus) {
				return fmt.Errorf("invalid --confidence %q (expected one of %s)", q.ConfidenceStatus, strings.Join(confidenceStatuses, ", "))
			}
			var key catalog.SortKey
			if sortBy != "" {
				var err error
				if key, err = catalog.ParseSortKey(sortBy); err != nil {
					return err
				}
			}

			if allPages {
				products, err := fetchAllProducts(cmd, env, q)
				if err != nil {
					return err
				}
				if key != "" {
					catalog.Sort(products, key, desc)
				}
				render.Products(env.Out, products)
				fmt.Fprintln(env.Out, render.Muted(fmt.Sprintf("%d product(s)", len(products))))
				return nil
			}

			page, err := env.API.Products(cmd.Context(), q)
			if err != nil {
				return err
			}
			if page.Total == 0 && len(page.Products) == 0 {
				render.Page(env.Out, page, 0)
				return nil
			}
			if key != "" {
				catalog.Sort(page.Products, key, desc)
			}
			render.Products(env.Out, page.Products)
			render.Page(env.Out, page, len(page.Products))
			return nil
		},
	}

	cmd.Flags().IntVar(&q.Limit, "limit", client.DefaultPageSize, "Page size (1-1000)")
	cmd.Flags().IntVar(&q.Skip, "skip", 0, "Number of products to skip")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "Search item, brand or UPC")
	cmd.Flags().StringVar(&q.Brand, "brand", "", "Only show this brand")
	cmd.Flags().StringVar(&q.ConfidenceStatus, "confidence", "all", "Confidence filter: all, low or high")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort the page by brand, item, upc, confidence or merged")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&allPages, "all", false, "Fetch every page")

	return guard.Mark(cmd, guard.Protected)
}

func validConfidenceStatus(s string) bool {
	if s == "" {
		return true
	}
	for _, v := range confidenceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// fetchAllProducts walks the pages until the reported total is reached
func fetchAllProducts(cmd *cobra.Command, env *Env, q client.ProductQuery) ([]types.Product, error) {
	if q.Limit <= 0 {
		q.Limit = client.DefaultPageSize
	}
	q.Skip = 0

	var all []types.Product
	for {
		page, err := env.API.Products(cmd.Context(), q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Products...)
		env.Log.Debug().Int("skip", q.Skip).Int("count", len(page.Products)).Int("total", page.Total).Msg("fetched product page")
		if len(page.Products) == 0 || len(all) >= page.Total {
			return all, nil
		}
		q.Skip += len(page.Products)
	}
}

// NewProductCmd creates the product detail command
func NewProductCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product <merge-id>",
		Short: "Show a product with its merge provenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.API.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			render.ProductDetail(env.Out, p)
			return nil
		},
	}
	return guard.Mark(cmd, guard.Protected)
}

// NewLowConfidenceCmd creates the low-confidence command
func NewLowConfidenceCmd(env *Env) *cobra.Command {
	var (
		filter catalog.Filter
		sortBy string
		desc   bool
	)

	cmd := &cobra.Command{
		Use:     "low-confidence",
		Aliases: []string{"review"},
		Short:   "List products whose AI attributes need review",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := catalog.SortConfidence
			if sortBy != "" {
				var err error
				if key, err = catalog.ParseSortKey(sortBy); err != nil {
					return err
				}
			}

			products, err := env.API.LowConfidence(cmd.Context())
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Fprintln(env.Out, render.Success("No low-confidence products. Everything looks good!"))
				return nil
			}

			shown := filter.Apply(products)
			catalog.Sort(shown, key, desc)
			render.Products(env.Out, shown)
			fmt.Fprintln(env.Out, render.Muted(fmt.Sprintf("%d of %d low-confidence product(s)", len(shown), len(products))))
			if brands := catalog.UniqueBrands(products); filter.Brand == "" && len(brands) > 1 {
				fmt.Fprintln(env.Out, render.Muted("Brands: "+strings.Join(brands, ", ")))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "Search item, brand or UPC")
	cmd.Flags().StringVar(&filter.Brand, "brand", "", "Only show this brand")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by brand, item, upc, confidence (default) or merged")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")

	return guard.Mark(cmd, guard.Protected)
}
