package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcg-dev/fmcg/internal/types"
)

func conf(v float64) *float64 { return &v }

func sampleProducts() []types.Product {
	return []types.Product{
		{MergeID: "M1", Brand: "Coca Cola", Item: "Coke Zero 330ml", UPC: "5449000131805", MergedFromDocs: 4, MergeLevel: "MERGED_4", Confidence: conf(0.95)},
		{MergeID: "M2", Brand: "Pepsi", Item: "Pepsi Max 500ml", UPC: "4060800001234", MergedFromDocs: 1, MergeLevel: "NO_MERGE", Confidence: conf(0.82)},
		{MergeID: "M3", Brand: "Coca Cola", Item: "Sprite 1L", UPC: "5449000014535", MergedFromDocs: 12, MergeLevel: "MERGED_12", Confidence: conf(0.55)},
		{MergeID: "M4", Brand: "Nestle", Item: "KitKat 4 Finger", UPC: "7613035", MergedFromDocs: 1, MergeLevel: "LOW_CONFIDENCE"},
		{MergeID: "M5", Brand: "", Item: "Unbranded Water", UPC: "1000", MergedFromDocs: 7, MergeLevel: "MERGED_7", Confidence: conf(0.71)},
	}
}

func mergeIDs(products []types.Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.MergeID
	}
	return ids
}

func TestFilter_Apply(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps all", Filter{}, []string{"M1", "M2", "M3", "M4", "M5"}},
		{"search matches item case-insensitively", Filter{Search: "SPRITE"}, []string{"M3"}},
		{"search matches brand", Filter{Search: "nestle"}, []string{"M4"}},
		{"search matches UPC", Filter{Search: "544900"}, []string{"M1", "M3"}},
		{"brand filter is exact", Filter{Brand: "Coca Cola"}, []string{"M1", "M3"}},
		{"brand and search combine", Filter{Brand: "Coca Cola", Search: "zero"}, []string{"M1"}},
		{"no match", Filter{Search: "fanta"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeIDs(tt.filter.Apply(products)))
		})
	}
}

func TestUniqueBrands(t *testing.T) {
	assert.Equal(t, []string{"Coca Cola", "Nestle", "Pepsi"}, UniqueBrands(sampleProducts()))
}

func TestSort(t *testing.T) {
	tests := []struct {
		key  SortKey
		desc bool
		want []string
	}{
		{SortBrand, false, []string{"M5", "M1", "M3", "M4", "M2"}},
		{SortItem, false, []string{"M1", "M4", "M2", "M3", "M5"}},
		{SortMerged, true, []string{"M3", "M5", "M1", "M2", "M4"}},
		{SortConfidence, false, []string{"M3", "M5", "M2", "M1", "M4"}},
		{SortConfidence, true, []string{"M1", "M2", "M5", "M3", "M4"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			products := sampleProducts()
			Sort(products, tt.key, tt.desc)
			assert.Equal(t, tt.want, mergeIDs(products))
		})
	}
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("Confidence")
	require.NoError(t, err)
	assert.Equal(t, SortConfidence, k)

	_, err = ParseSortKey("price")
	assert.Error(t, err)
}

func TestConfidenceBand(t *testing.T) {
	assert.Equal(t, BandHigh, ConfidenceBand(conf(0.9)))
	assert.Equal(t, BandGood, ConfidenceBand(conf(0.85)))
	assert.Equal(t, BandMedium, ConfidenceBand(conf(0.6)))
	assert.Equal(t, BandLow, ConfidenceBand(conf(0.59)))
	assert.Equal(t, BandUnknown, ConfidenceBand(nil))
	assert.Equal(t, BandUnknown, ConfidenceBand(conf(0)))

	assert.Equal(t, "95%", FormatConfidence(conf(0.95)))
	assert.Equal(t, "N/A", FormatConfidence(nil))
}

func TestMergeLevelLabel(t *testing.T) {
	assert.Equal(t, "Unknown", MergeLevelLabel(""))
	assert.Equal(t, "Single Item", MergeLevelLabel("NO_MERGE"))
	assert.Equal(t, "Merged (12)", MergeLevelLabel("MERGED_12"))
	assert.Equal(t, "Merged (?)", MergeLevelLabel("MERGED"))
	assert.Equal(t, "Low Confidence", MergeLevelLabel("LOW_CONFIDENCE"))
	assert.Equal(t, "Master Product Merge", MergeLevelLabel("MASTER_UPC"))
	assert.Equal(t, "CUSTOM", MergeLevelLabel("CUSTOM"))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(5, 0))
	assert.Equal(t, 0, Percent(-1, 10))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(10, 10))
	assert.Equal(t, 100, Percent(15, 10))
}
