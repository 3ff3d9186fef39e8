package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/models"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// Columns returned by list endpoints; detail returns everything
var listColumns = []string{
	"merge_id", "brand", "item", "upc", "merged_from_docs", "merge_level",
	"confidence", "llm_brand", "flavour", "size",
}

// ProductsQuery is the product list query string
type ProductsQuery struct {
	Limit            int    `form:"limit,default=100" validate:"min=1,max=1000"`
	Skip             int    `form:"skip,default=0" validate:"min=0"`
	Search           string `form:"search" validate:"max=200"`
	Brand            string `form:"brand" validate:"max=200"`
	ConfidenceStatus string `form:"confidence_status" validate:"omitempty,oneof=all low high"`
}

// LowConfidenceQuery limits the review list
type LowConfidenceQuery struct {
	Limit int `form:"limit,default=100" validate:"min=1,max=1000"`
}

// wireProduct converts a stored product to the list representation
func wireProduct(p models.Product) types.Product {
	return types.Product{
		MergeID:        p.MergeID,
		Brand:          p.Brand,
		Item:           p.Item,
		UPC:            types.UPC(p.UPC),
		MergedFromDocs: p.MergedFromDocs,
		MergeLevel:     p.MergeLevel,
		Confidence:     p.Confidence,
		LLMBrand:       p.LLMBrand,
		Flavour:        p.Flavour,
		Size:           p.Size,
		NormalizedItem: p.NormalizedItem,
		SheetName:      p.SheetName,
	}
}

func wireProducts(products []models.Product) []types.Product {
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		out = append(out, wireProduct(p))
	}
	return out
}

// bindQuery binds and validates a query string, answering 400 on failure
func (s *Server) bindQuery(c *gin.Context, q any) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid query string")
		respondError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return false
	}
	if err := s.validator.Struct(q); err != nil {
		s.logger.Warn().Err(err).Msg("Query validation failed")
		respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
		return false
	}
	return true
}

// @Router /dashboard/summary [get]
// @Success 200 {object} types.Summary
func (s *Server) getSummary(c *gin.Context) {
	var summary types.Summary
	var count int64

	if err := s.db.Model(&models.StockRow{}).Count(&count).Error; err != nil {
		s.internalError(c, err, "Failed to count stock rows")
		return
	}
	summary.SingleStockRows = int(count)

	if err := s.db.Model(&models.Product{}).Count(&count).Error; err != nil {
		s.internalError(c, err, "Failed to count products")
		return
	}
	summary.MasterStockRows = int(count)
	summary.ItemsMerged = max(summary.SingleStockRows-summary.MasterStockRows, 0)

	var aggregates struct {
		UniqueUPCs    int `gorm:"column:unique_upcs"`
		UniqueBrands  int `gorm:"column:unique_brands"`
		MergedItems   int `gorm:"column:merged_items"`
		SingleItems   int `gorm:"column:single_items"`
		LowConfidence int `gorm:"column:low_confidence"`
	}
	err := s.db.Model(&models.Product{}).Select(
		"COUNT(DISTINCT upc) AS unique_upcs, "+
			"COUNT(DISTINCT NULLIF(brand, '')) AS unique_brands, "+
			"COALESCE(SUM(CASE WHEN merged_from_docs > 1 THEN 1 ELSE 0 END), 0) AS merged_items, "+
			"COALESCE(SUM(CASE WHEN merged_from_docs <= 1 THEN 1 ELSE 0 END), 0) AS single_items, "+
			"COALESCE(SUM(CASE WHEN confidence < ? THEN 1 ELSE 0 END), 0) AS low_confidence",
		models.LowConfidenceThreshold,
	).Scan(&aggregates).Error
	if err != nil {
		s.internalError(c, err, "Failed to aggregate products")
		return
	}
	summary.UniqueUPCs = aggregates.UniqueUPCs
	summary.UniqueBrands = aggregates.UniqueBrands
	summary.MergedItems = aggregates.MergedItems
	summary.SingleItems = aggregates.SingleItems
	summary.LowConfidence = aggregates.LowConfidence

	c.JSON(http.StatusOK, summary)
}

// @Router /dashboard/brands [get]
func (s *Server) listBrands(c *gin.Context) {
	var brands []string
	err := s.db.Model(&models.Product{}).
		Where("brand <> ''").
		Distinct().
		Order("brand").
		Pluck("brand", &brands).Error
	if err != nil {
		s.internalError(c, err, "Failed to list brands")
		return
	}
	if brands == nil {
		brands = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "brands": brands})
}

// likeEscaper makes search text match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// filterProducts applies the list filters. Ordering by merge id keeps pages
// disjoint across requests.
func (s *Server) filterProducts(q ProductsQuery) *gorm.DB {
	query := s.db.Model(&models.Product{})

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		query = query.Where(`LOWER(item) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\' OR upc LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern)
	}
	if brand := strings.TrimSpace(q.Brand); brand != "" {
		query = query.Where("brand = ?", brand)
	}
	switch q.ConfidenceStatus {
	case "low":
		query = query.Where("confidence < ?", models.LowConfidenceThreshold)
	case "high":
		query = query.Where("confidence >= ?", models.LowConfidenceThreshold)
	}
	return query
}

// @Router /dashboard/products [get]
// @Success 200 {object} types.ProductPage
func (s *Server) listProducts(c *gin.Context) {
	var q ProductsQuery
	if !s.bindQuery(c, &q) {
		return
	}

	var total int64
	if err := s.filterProducts(q).Count(&total).Error; err != nil {
		s.internalError(c, err, "Failed to count products")
		return
	}

	var products []models.Product
	err := s.filterProducts(q).
		Select(listColumns).
		Order("merge_id").
		Limit(q.Limit).
		Offset(q.Skip).
		Find(&products).Error
	if err != nil {
		s.internalError(c, err, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, types.ProductPage{
		Products: wireProducts(products),
		Total:    int(total),
		Limit:    q.Limit,
		Skip:     q.Skip,
	})
}

// @Router /dashboard/product/{mergeId} [get]
func (s *Server) getProduct(c *gin.Context) {
	mergeID := c.Param("mergeId")

	var product models.Product
	if err := s.db.Where("merge_id = ?", mergeID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Product not found", mergeID)
			return
		}
		s.internalError(c, err, "Failed to load product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Router /dashboard/low-confidence [get]
func (s *Server) listLowConfidence(c *gin.Context) {
	var q LowConfidenceQuery
	if !s.bindQuery(c, &q) {
		return
	}

	var products []models.Product
	err := s.db.Select(listColumns).
		Where("confidence < ?", models.LowConfidenceThreshold).
		Order("confidence, merge_id").
		Limit(q.Limit).
		Find(&products).Error
	if err != nil {
		s.internalError(c, err, "Failed to list low confidence products")
		return
	}

	c.JSON(http.StatusOK, wireProducts(products))
}

// @Router /dashboard/analytics-data [get]
func (s *Server) getAnalytics(c *gin.Context) {
	var products []models.Product
	if err := s.db.Select(listColumns).Order("merge_id").Find(&products).Error; err != nil {
		s.internalError(c, err, "Failed to load products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   types.Analytics(wireProducts(products)),
	})
}

func (s *Server) internalError(c *gin.Context, err error, message string) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	respondError(c, http.StatusInternalServerError, message, "")
}
