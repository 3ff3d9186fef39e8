// Package render formats dashboard data for the terminal.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/fmcg-dev/fmcg/internal/cli/catalog"
	"github.com/fmcg-dev/fmcg/internal/types"
)

var (
	pink    = lipgloss.Color("#ec4899")
	green   = lipgloss.Color("#10b981")
	amber   = lipgloss.Color("#f59e0b")
	red     = lipgloss.Color("#f43f5e")
	blue    = lipgloss.Color("#3b82f6")
	gray    = lipgloss.Color("#9ca3af")
	barChar = "█"

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(pink)
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	WarningStyle = lipgloss.NewStyle().Foreground(amber)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	InfoStyle    = lipgloss.NewStyle().Foreground(blue)
	MutedStyle   = lipgloss.NewStyle().Foreground(gray)
	LabelStyle   = lipgloss.NewStyle().Foreground(gray).Width(22)
)

func Title(s string) string   { return TitleStyle.Render(s) }
func Success(s string) string { return SuccessStyle.Render("✓ " + s) }
func Warning(s string) string { return WarningStyle.Render("! " + s) }
func Error(s string) string   { return ErrorStyle.Render("✗ " + s) }
func Muted(s string) string   { return MutedStyle.Render(s) }

// Confidence renders a score colored by its band
func Confidence(c *float64) string {
	text := catalog.FormatConfidence(c)
	switch catalog.ConfidenceBand(c) {
	case catalog.BandHigh:
		return SuccessStyle.Render(text)
	case catalog.BandGood:
		return InfoStyle.Render(text)
	case catalog.BandMedium, catalog.BandLow:
		return WarningStyle.Render(text)
	}
	return MutedStyle.Render(text)
}

// Field prints one "label  value" line
func Field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", LabelStyle.Render(label), value)
}

// Summary prints the dashboard home view
func Summary(w io.Writer, user *types.User, s *types.Summary) {
	if user != nil {
		greeting := "Welcome, " + user.Name
		if user.Company != "" {
			greeting += " (" + user.Company + ")"
		}
		fmt.Fprintln(w, Title(greeting))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, Title("Processing"))
	Field(w, "Input rows", s.SingleStockRows)
	Field(w, "Master rows", s.MasterStockRows)
	Field(w, "Items merged", s.ItemsMerged)
	reduction := catalog.Percent(float64(s.SingleStockRows-s.MasterStockRows), float64(s.SingleStockRows))
	Field(w, "Reduction", fmt.Sprintf("%d%%", reduction))
	fmt.Fprintln(w)

	fmt.Fprintln(w, Title("Catalog"))
	Field(w, "Unique UPCs", s.UniqueUPCs)
	Field(w, "Unique brands", s.UniqueBrands)
	Field(w, "Merged products", s.MergedItems)
	Field(w, "Single items", s.SingleItems)
	low := fmt.Sprint(s.LowConfidence)
	if s.LowConfidence > 0 {
		low = WarningStyle.Render(low)
	}
	Field(w, "Low confidence", low)
}

// Products prints products as a table
func Products(w io.Writer, products []types.Product) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MERGE ID\tBRAND\tITEM\tUPC\tMERGED\tLEVEL\tCONFIDENCE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.MergeID,
			orDash(p.Brand),
			truncate(p.Item, 48),
			orDash(string(p.UPC)),
			max(p.MergedFromDocs, 1),
			catalog.MergeLevelLabel(p.MergeLevel),
			catalog.FormatConfidence(p.Confidence),
		)
	}
	tw.Flush()
}

// Page prints the pagination footer of a product list
func Page(w io.Writer, page *types.ProductPage, shown int) {
	if page.Total == 0 {
		fmt.Fprintln(w, Muted("No products found"))
		return
	}
	from := page.Skip + 1
	to := page.Skip + shown
	if shown == 0 {
		from = page.Skip
	}
	fmt.Fprintln(w, Muted(fmt.Sprintf("Showing %d-%d of %d", from, to, page.Total)))
	if to < page.Total {
		fmt.Fprintln(w, Muted(fmt.Sprintf("Next page: --skip %d", to)))
	}
}

// ProductDetail prints merge provenance followed by the remaining attributes
func ProductDetail(w io.Writer, p *types.ProductDetail) {
	fmt.Fprintln(w, Title(orDash(p.Item)))
	Field(w, "Brand", orDash(p.Brand))
	Field(w, "UPC", orDash(string(p.UPC)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, Title("Merge Information"))
	Field(w, "Merge level", catalog.MergeLevelLabel(p.MergeLevel))
	Field(w, "Merge ID", p.MergeID)
	Field(w, "Merged from docs", max(p.MergedFromDocs, 1))
	if p.MergeRule != "" {
		Field(w, "Merge rule", p.MergeRule)
	}
	Field(w, "Confidence", Confidence(p.Confidence))
	if len(p.MergedUPCs) > 0 {
		upcs := make([]string, len(p.MergedUPCs))
		for i, u := range p.MergedUPCs {
			upcs[i] = string(u)
		}
		Field(w, "Merged UPCs", strings.Join(upcs, ", "))
	}
	if len(p.MergeItems) > 0 {
		fmt.Fprintln(w, LabelStyle.Render("Merged items"))
		for _, item := range p.MergeItems {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}

	attrs := map[string]any{
		"brand":           p.LLMBrand,
		"flavour":         p.Flavour,
		"size":            p.Size,
		"normalized_item": p.NormalizedItem,
		"sheet_name":      p.SheetName,
	}
	for k, v := range p.Attributes {
		attrs[k] = v
	}
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if v == nil || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	fmt.Fprintln(w)
	fmt.Fprintln(w, Title("Attributes"))
	for _, k := range keys {
		Field(w, k, attrs[k])
	}
}

// Buckets prints a horizontal bar chart scaled to the largest bucket
func Buckets(w io.Writer, title string, buckets []types.Bucket) {
	fmt.Fprintln(w, Title(title))
	largest := 0
	for _, b := range buckets {
		largest = max(largest, b.Value)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range buckets {
		width := catalog.Percent(float64(b.Value), float64(largest)) * 30 / 100
		fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Name, InfoStyle.Render(strings.Repeat(barChar, width)), b.Value)
	}
	tw.Flush()
}

// Analytics prints every chart of the analytics page
func Analytics(w io.Writer, a *types.AnalyticsData) {
	Field(w, "Total products", a.TotalProducts)
	fmt.Fprintln(w)
	Buckets(w, "Top brands", a.BrandDistribution)
	fmt.Fprintln(w)
	Buckets(w, "Merge levels", a.MergeLevels)
	fmt.Fprintln(w)
	Buckets(w, "Confidence", a.ConfidenceRanges)
	if len(a.TopMerged) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, Title("Most merged"))
		Products(w, a.TopMerged)
	}
}

// Rows prints arbitrary result rows with columns in first-seen order
func Rows(w io.Writer, rows []map[string]any) {
	if len(rows) == 0 {
		return
	}
	columns := Columns(rows)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = truncate(Cell(row[c]), 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// Columns returns the union of row keys, sorted for a stable layout
func Columns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// Cell formats one value for a table or CSV cell
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// Markdown renders markdown for the terminal, falling back to the raw text
func Markdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
