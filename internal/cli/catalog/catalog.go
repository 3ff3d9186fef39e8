// Package catalog holds the client-side views over product lists:
// filtering, sorting, labels and chart buckets.
package catalog

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/fmcg-dev/fmcg/internal/types"
)

// Filter narrows a product list the way the products page does
type Filter struct {
	Search string // case-insensitive, matched against item, brand and UPC
	Brand  string // exact brand, empty means all
}

// Apply returns the products matching f, preserving order
func (f Filter) Apply(products []types.Product) []types.Product {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if f.Brand != "" && p.Brand != f.Brand {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p types.Product, needle string) bool {
	return strings.Contains(strings.ToLower(p.Item), needle) ||
		strings.Contains(strings.ToLower(p.Brand), needle) ||
		strings.Contains(strings.ToLower(string(p.UPC)), needle)
}

// UniqueBrands returns the distinct non-empty brands, sorted
func UniqueBrands(products []types.Product) []string {
	seen := make(map[string]struct{})
	var brands []string
	for _, p := range products {
		if p.Brand == "" {
			continue
		}
		if _, ok := seen[p.Brand]; ok {
			continue
		}
		seen[p.Brand] = struct{}{}
		brands = append(brands, p.Brand)
	}
	slices.Sort(brands)
	return brands
}

// SortKey names a sortable product column
type SortKey string

const (
	SortBrand      SortKey = "brand"
	SortItem       SortKey = "item"
	SortUPC        SortKey = "upc"
	SortConfidence SortKey = "confidence"
	SortMerged     SortKey = "merged"
)

// SortKeys lists the accepted --sort values
var SortKeys = []SortKey{SortBrand, SortItem, SortUPC, SortConfidence, SortMerged}

// ParseSortKey validates a --sort flag value
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q (expected one of %v)", s, SortKeys)
}

// Sort orders products in place by key. Ties keep their original order.
// Products without a confidence sort last in either direction.
func Sort(products []types.Product, key SortKey, desc bool) {
	slices.SortStableFunc(products, func(a, b types.Product) int {
		if key == SortConfidence && (a.Confidence == nil || b.Confidence == nil) {
			switch {
			case a.Confidence == nil && b.Confidence == nil:
				return 0
			case a.Confidence == nil:
				return 1
			default:
				return -1
			}
		}
		c := compare(a, b, key)
		if desc {
			return -c
		}
		return c
	})
}

func compare(a, b types.Product, key SortKey) int {
	switch key {
	case SortItem:
		return strings.Compare(strings.ToLower(a.Item), strings.ToLower(b.Item))
	case SortUPC:
		return strings.Compare(string(a.UPC), string(b.UPC))
	case SortConfidence:
		return cmp.Compare(*a.Confidence, *b.Confidence)
	case SortMerged:
		return cmp.Compare(a.MergeCount(), b.MergeCount())
	default:
		return strings.Compare(strings.ToLower(a.Brand), strings.ToLower(b.Brand))
	}
}

// Band classifies a confidence score
type Band string

const (
	BandHigh    Band = "high"
	BandGood    Band = "good"
	BandMedium  Band = "medium"
	BandLow     Band = "low"
	BandUnknown Band = "n/a"
)

// ConfidenceBand maps a score to its band. A missing or zero score has no band.
func ConfidenceBand(confidence *float64) Band {
	if confidence == nil || *confidence == 0 {
		return BandUnknown
	}
	switch c := *confidence; {
	case c >= 0.9:
		return BandHigh
	case c >= 0.8:
		return BandGood
	case c >= 0.6:
		return BandMedium
	default:
		return BandLow
	}
}

// FormatConfidence renders a score as a whole percentage, or N/A
func FormatConfidence(confidence *float64) string {
	if ConfidenceBand(confidence) == BandUnknown {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", *confidence*100)
}

var digits = regexp.MustCompile(`\d+`)

// MergeLevelLabel turns a backend merge level into a short label
func MergeLevelLabel(level string) string {
	switch {
	case level == "":
		return "Unknown"
	case strings.Contains(level, "NO_MERGE"):
		return "Single Item"
	case strings.Contains(level, "MERGED"):
		count := digits.FindString(level)
		if count == "" {
			count = "?"
		}
		return fmt.Sprintf("Merged (%s)", count)
	case strings.Contains(level, "LOW_CONFIDENCE"):
		return "Low Confidence"
	case strings.Contains(level, "MASTER"):
		return "Master Product Merge"
	}
	return level
}

// Percent returns part/total as a whole percentage clamped to 0..100
func Percent(part, total float64) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := int(math.Round(part / total * 100))
	return min(p, 100)
}
