package types

import (
	"cmp"
	"slices"
	"strings"
)

const topBrands = 10

// Analytics computes the chart aggregates from a product list. The backend
// serves it precomputed; clients fall back to it when the endpoint is missing.
func Analytics(products []Product) *AnalyticsData {
	return &AnalyticsData{
		TotalProducts:     len(products),
		BrandDistribution: BrandDistribution(products),
		MergeLevels:       MergeLevelBuckets(products),
		ConfidenceRanges:  ConfidenceRanges(products),
		TopMerged:         TopMerged(products, topBrands),
	}
}

// BrandDistribution counts products per brand, largest first, top 10
func BrandDistribution(products []Product) []Bucket {
	counts := make(map[string]int)
	for _, p := range products {
		brand := p.Brand
		if brand == "" {
			brand = "Unknown"
		}
		counts[brand]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for name, value := range counts {
		buckets = append(buckets, Bucket{Name: name, Value: value})
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(buckets) > topBrands {
		buckets = buckets[:topBrands]
	}
	return buckets
}

// MergeLevelBuckets groups products by how many documents were merged
func MergeLevelBuckets(products []Product) []Bucket {
	buckets := []Bucket{
		{Name: "Single Item"},
		{Name: "Merged (2-5)"},
		{Name: "Merged (6-10)"},
		{Name: "Merged (10+)"},
		{Name: "Low Confidence"},
	}
	for _, p := range products {
		docs := p.MergeCount()
		switch {
		case strings.Contains(p.MergeLevel, "LOW_CONFIDENCE"):
			buckets[4].Value++
		case strings.Contains(p.MergeLevel, "NO_MERGE"):
			buckets[0].Value++
		case docs >= 10:
			buckets[3].Value++
		case docs >= 6:
			buckets[2].Value++
		case docs >= 2:
			buckets[1].Value++
		}
	}
	return buckets
}

// ConfidenceRanges groups products into 10-point confidence ranges
func ConfidenceRanges(products []Product) []Bucket {
	buckets := []Bucket{
		{Name: "90-100%"},
		{Name: "80-90%"},
		{Name: "70-80%"},
		{Name: "60-70%"},
		{Name: "Below 60%"},
		{Name: "N/A"},
	}
	for _, p := range products {
		if p.Confidence == nil || *p.Confidence == 0 {
			buckets[5].Value++
			continue
		}
		switch c := *p.Confidence; {
		case c >= 0.9:
			buckets[0].Value++
		case c >= 0.8:
			buckets[1].Value++
		case c >= 0.7:
			buckets[2].Value++
		case c >= 0.6:
			buckets[3].Value++
		default:
			buckets[4].Value++
		}
	}
	return buckets
}

// TopMerged returns the n products merged from the most documents. Ties keep
// their original order.
func TopMerged(products []Product, n int) []Product {
	top := slices.Clone(products)
	slices.SortStableFunc(top, func(a, b Product) int {
		return cmp.Compare(b.MergeCount(), a.MergeCount())
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
