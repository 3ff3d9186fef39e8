package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/models"
)

// ExportQuery selects which products go into the master stock report
type ExportQuery struct {
	ReportType string `form:"report_type,default=all" validate:"oneof=all low_confidence merged"`
}

// ResetQuery controls what a database reset removes
type ResetQuery struct {
	ClearCache bool `form:"clear_cache"`
}

var exportHeader = []string{
	"UPC", "merge_id", "sheet_name", "brand", "flavour", "size", "normalized_item",
	"ITEM", "MANUFACTURER", "Markets", "Facts", "merge_items", "merged_upcs",
	"merged_from_docs", "merge_level", "merge_rule", "llm_confidence_min",
}

func exportRecord(p *models.Product) []string {
	confidence := ""
	if p.Confidence != nil {
		confidence = strconv.FormatFloat(*p.Confidence, 'f', -1, 64)
	}
	return []string{
		p.UPC, p.MergeID, p.SheetName, p.LLMBrand, p.Flavour, p.Size, p.NormalizedItem,
		p.Item, p.Manufacturer, p.Markets, p.Facts,
		strings.Join(p.MergeItems, " | "), strings.Join(p.MergedUPCs, ", "),
		strconv.Itoa(p.MergedFromDocs), p.MergeLevel, p.MergeRule, confidence,
	}
}

func (s *Server) exportQuery(reportType string) *gorm.DB {
	query := s.db.Model(&models.Product{})
	switch reportType {
	case "low_confidence":
		query = query.Where("confidence < ?", models.LowConfidenceThreshold)
	case "merged":
		query = query.Where("merged_from_docs > 1")
	}
	return query
}

// @Router /export/master-stock [get]
// @Produce text/csv
func (s *Server) exportMasterStock(c *gin.Context) {
	var q ExportQuery
	if !s.bindQuery(c, &q) {
		return
	}

	var total int64
	if err := s.exportQuery(q.ReportType).Count(&total).Error; err != nil {
		s.internalError(c, err, "Failed to count products")
		return
	}
	if total == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "No data to export"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="master_stock_%s.csv"`, q.ReportType))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(exportHeader); err != nil {
		s.logger.Warn().Err(err).Msg("Export aborted")
		return
	}

	var batch []models.Product
	err := s.exportQuery(q.ReportType).FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := w.Write(exportRecord(&batch[i])); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}).Error
	if err != nil {
		// Headers are already sent, the client sees a truncated file
		s.logger.Warn().Err(err).Msg("Export aborted")
		return
	}
	w.Flush()

	s.logger.Info().Str("report_type", q.ReportType).Int64("rows", total).Msg("Export complete")
}

type resetTarget struct {
	name  string
	model any
}

// @Router /database/reset [post]
func (s *Server) resetDatabase(c *gin.Context) {
	var q ResetQuery
	if !s.bindQuery(c, &q) {
		return
	}

	targets := []resetTarget{
		{"SINGLE_STOCK", &models.StockRow{}},
		{"MASTER_STOCK", &models.Product{}},
		{"UPLOADS", &models.Upload{}},
	}
	if q.ClearCache {
		targets = append(targets, resetTarget{"LLM_CACHE_STORAGE", &models.CacheEntry{}})
	}

	deleted := map[string]int{}
	total := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, target := range targets {
			result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(target.model)
			if result.Error != nil {
				return fmt.Errorf("failed to clear %s: %w", target.name, result.Error)
			}
			deleted[target.name] = int(result.RowsAffected)
			total += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Database reset failed")
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}

	sessionData, _ := GetSessionData(c)
	event := s.logger.Warn().Int("total_deleted", total).Bool("clear_cache", q.ClearCache)
	if sessionData != nil {
		event = event.Str("user", sessionData.Email)
	}
	event.Msg("Database reset")

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        "Database reset successfully",
		"deleted_counts": deleted,
		"total_deleted":  total,
	})
}
