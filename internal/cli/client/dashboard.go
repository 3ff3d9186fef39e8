package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fmcg-dev/fmcg/internal/types"
)

// DefaultPageSize is the product list page size used when none is given
const DefaultPageSize = 100

// Summary returns the dashboard aggregate counts
func (c *Client) Summary(ctx context.Context) (*types.Summary, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/summary"})
	if err != nil {
		return nil, err
	}

	var summary types.Summary
	if err := decode(body, "data", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Brands returns the distinct brand list
func (c *Client) Brands(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/brands"})
	if err != nil {
		return nil, err
	}

	var brands []string
	if err := decode(body, "brands", &brands); err != nil {
		return nil, err
	}
	return brands, nil
}

// ProductQuery filters and paginates the product list
type ProductQuery struct {
	Limit            int
	Skip             int
	Search           string
	Brand            string
	ConfidenceStatus string // all, low, high
}

// Products returns one page of the product list
func (c *Client) Products(ctx context.Context, q ProductQuery) (*types.ProductPage, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.ConfidenceStatus == "" {
		q.ConfidenceStatus = "all"
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(q.Limit))
	query.Set("skip", strconv.Itoa(q.Skip))
	query.Set("search", q.Search)
	query.Set("brand", q.Brand)
	query.Set("confidence_status", q.ConfidenceStatus)

	body, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/products", query: query})
	if err != nil {
		return nil, err
	}

	var page types.ProductPage
	if err := decode(body, "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Product returns a single product by merge id
func (c *Client) Product(ctx context.Context, mergeID string) (*types.ProductDetail, error) {
	if strings.TrimSpace(mergeID) == "" {
		return nil, &APIError{Message: "merge id is required"}
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/dashboard/product/" + url.PathEscape(mergeID),
	})
	if err != nil {
		return nil, err
	}

	// A missing product comes back as JSON null from some backends
	if strings.TrimSpace(string(body)) == "null" {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("product %s not found", mergeID)}
	}

	var product types.ProductDetail
	if err := decode(body, "", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// LowConfidence returns the products whose confidence is below the review threshold
func (c *Client) LowConfidence(ctx context.Context) ([]types.Product, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/low-confidence"})
	if err != nil {
		return nil, err
	}

	var products []types.Product
	if err := decode(body, "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// AnalyticsData returns the precomputed chart aggregates
func (c *Client) AnalyticsData(ctx context.Context) (*types.AnalyticsData, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/analytics-data"})
	if err != nil {
		return nil, err
	}

	var data types.AnalyticsData
	if err := decode(body, "data", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ExportMasterStock streams the master-stock report into w and returns the
// number of bytes written
func (c *Client) ExportMasterStock(ctx context.Context, reportType string, w io.Writer) (int64, error) {
	if reportType == "" {
		reportType = "all"
	}
	r := request{
		method: http.MethodGet,
		path:   "/export/master-stock",
		query:  url.Values{"report_type": []string{reportType}},
		long:   true,
	}

	resp, cancel, err := c.send(ctx, r)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer resp.Body.Close()

	// JSON bodies are envelopes (errors), everything else is the file
	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || isJSON {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return 0, c.fail(ctx, r, resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", readErr))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return 0, c.fail(ctx, r, resp.StatusCode, body, fmt.Errorf("request failed (status %d)", resp.StatusCode))
		}
		if err := checkEnvelope(body); err != nil {
			return 0, c.fail(ctx, r, resp.StatusCode, body, err)
		}
		n, err := w.Write(body)
		return int64(n), err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, c.fail(ctx, r, resp.StatusCode, nil, fmt.Errorf("failed to download export: %w", err))
	}
	return n, nil
}

// ResetDatabase deletes all products, optionally clearing the AI cache.
// Callers must obtain explicit user confirmation first.
func (c *Client) ResetDatabase(ctx context.Context, clearCache bool) (*types.ResetResult, error) {
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/database/reset",
		query:  url.Values{"clear_cache": []string{strconv.FormatBool(clearCache)}},
	})
	if err != nil {
		return nil, err
	}

	var result types.ResetResult
	if err := decode(body, "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
