// Package types holds the JSON shapes exchanged between the fmcg client and
// the product-mastering backend.
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// User is the signed-in account as reported by the backend
type User struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Status       string `json:"status"`
	SessionToken string `json:"session_token"`
	User         *User  `json:"user"`
}

// VerifyResponse represents the token verification response
type VerifyResponse struct {
	Status string `json:"status"`
	User   *User  `json:"user"`
}

// Summary holds the dashboard aggregate counts
type Summary struct {
	SingleStockRows int `json:"single_stock_rows"`
	MasterStockRows int `json:"master_stock_rows"`
	ItemsMerged     int `json:"items_merged"`
	UniqueUPCs      int `json:"unique_upcs"`
	UniqueBrands    int `json:"unique_brands"`
	MergedItems     int `json:"merged_items"`
	SingleItems     int `json:"single_items"`
	LowConfidence   int `json:"low_confidence"`
}

// UPC accepts both numeric and string encodings
type UPC string

func (u *UPC) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UPC(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	// Integral floats (12345.0) print without the fraction
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*u = UPC(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*u = UPC(n.String())
	return nil
}

// Product is a deduplicated master-stock record
type Product struct {
	MergeID        string   `json:"merge_id"`
	Brand          string   `json:"BRAND"`
	Item           string   `json:"ITEM"`
	UPC            UPC      `json:"UPC"`
	MergedFromDocs int      `json:"merged_from_docs"`
	MergeLevel     string   `json:"merge_level"`
	Confidence     *float64 `json:"llm_confidence_min"`
	LLMBrand       string   `json:"brand,omitempty"`
	Flavour        string   `json:"flavour,omitempty"`
	Size           string   `json:"size,omitempty"`
	NormalizedItem string   `json:"normalized_item,omitempty"`
	SheetName      string   `json:"sheet_name,omitempty"`
}

// MergeCount treats a missing merged-from count as a single document
func (p Product) MergeCount() int {
	if p.MergedFromDocs < 1 {
		return 1
	}
	return p.MergedFromDocs
}

// ProductDetail is a single product with its merge provenance and all
// remaining backend attributes
type ProductDetail struct {
	Product
	MergeRule  string         `json:"merge_rule"`
	MergeItems []string       `json:"merge_items"`
	MergedUPCs []UPC          `json:"merged_upcs"`
	Attributes map[string]any `json:"-"`
}

var productDetailKeys = []string{
	"merge_id", "BRAND", "ITEM", "UPC", "merged_from_docs", "merge_level",
	"llm_confidence_min", "brand", "flavour", "size", "normalized_item",
	"sheet_name", "merge_rule", "merge_items", "merged_upcs", "_id",
}

func (p *ProductDetail) UnmarshalJSON(data []byte) error {
	type plain ProductDetail
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range productDetailKeys {
		delete(raw, key)
	}
	decoded.Attributes = raw
	*p = ProductDetail(decoded)
	return nil
}

// ProductPage is one page of the product list
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Skip     int       `json:"skip"`
}

// Bucket is one bar/slice of a chart
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AnalyticsData holds the precomputed chart aggregates
type AnalyticsData struct {
	TotalProducts     int       `json:"total_products"`
	BrandDistribution []Bucket  `json:"brand_distribution"`
	MergeLevels       []Bucket  `json:"merge_levels"`
	ConfidenceRanges  []Bucket  `json:"confidence_ranges"`
	TopMerged         []Product `json:"top_merged"`
}

// SheetResult describes one sheet accepted by an upload
type SheetResult struct {
	SheetName string `json:"sheet_name"`
	Rows      int    `json:"rows"`
}

// UploadResult is the payload returned after an upload is processed
type UploadResult struct {
	Filename  string        `json:"filename"`
	Sheets    []SheetResult `json:"sheets"`
	TotalRows int           `json:"total_rows"`
}

// MasteringResult is the payload returned by LLM mastering
type MasteringResult struct {
	SheetName     string `json:"sheet_name"`
	Processed     int    `json:"processed"`
	Merged        int    `json:"merged"`
	LowConfidence int    `json:"low_confidence"`
}

// ResetResult reports what a database reset removed
type ResetResult struct {
	Message       string         `json:"message"`
	DeletedCounts map[string]int `json:"deleted_counts"`
	TotalDeleted  int            `json:"total_deleted"`
}

// ChatRequest represents the chatbot query body
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// ChatResult is the assistant's answer to a question
type ChatResult struct {
	Answer      string           `json:"answer"`
	Data        []map[string]any `json:"data"`
	ResultCount int              `json:"result_count"`
	Explanation string           `json:"explanation"`
}
