package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/models"
	"github.com/fmcg-dev/fmcg/internal/types"
)

const chatRowLimit = 20

// ChatbotRequest represents the chatbot query body
type ChatbotRequest struct {
	Question  string `json:"question" validate:"max=2000"`
	SessionID string `json:"session_id" validate:"max=100"`
}

var helpKeywords = []string{"what is this", "how to use", "help", "guide", "tutorial"}

// @Router /chatbot/query [post]
// @Success 200 {object} types.ChatResult
func (s *Server) chatbotQuery(c *gin.Context) {
	var req ChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusOK, gin.H{"error": "Question is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	result, err := s.answer(req.Question)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Chatbot query failed")
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}

	s.logger.Info().
		Str("session_id", req.SessionID).
		Int("result_count", result.ResultCount).
		Str("explanation", result.Explanation).
		Msg("Chatbot query answered")

	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}

// answer matches the question against a few known intents. A brand named in
// the question narrows the intent, so "low confidence OREO" lists OREO items.
func (s *Server) answer(question string) (*types.ChatResult, error) {
	q := strings.ToLower(question)

	if containsAny(q, helpKeywords) {
		return &types.ChatResult{
			Answer: "This is the FMCG assistant. Ask about brands, merged products or items " +
				"that need review, for example *\"Which products have low confidence?\"*",
			Data:        []map[string]any{},
			Explanation: "Help info",
		}, nil
	}

	var brands []string
	if err := s.db.Model(&models.Product{}).Where("brand <> ''").Distinct().Order("brand").Pluck("brand", &brands).Error; err != nil {
		return nil, err
	}

	var mentioned string
	for _, brand := range brands {
		if strings.Contains(q, strings.ToLower(brand)) {
			mentioned = brand
			break
		}
	}

	var where []any
	var order, explanation, heading string
	switch {
	case containsAny(q, []string{"low confidence", "review", "uncertain"}):
		where = []any{"confidence < ?", models.LowConfidenceThreshold}
		order = "confidence, merge_id"
		explanation = "Products below the confidence threshold"
		heading = "products need review"
	case containsAny(q, []string{"most merged", "top merged", "merged"}):
		where = []any{"merged_from_docs > 1"}
		order = "merged_from_docs DESC, merge_id"
		explanation = "Products merged from the most source rows"
		heading = "merged products"
	case mentioned == "" && strings.Contains(q, "brand"):
		return s.brandCounts()
	case mentioned != "":
		order = "merge_id"
		explanation = "Products of brand " + mentioned
		heading = "products"
	default:
		return s.summaryAnswer()
	}
	if mentioned != "" {
		heading += " for **" + mentioned + "**"
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Product{})
		if where != nil {
			db = db.Where(where[0], where[1:]...)
		}
		if mentioned != "" {
			db = db.Where("brand = ?", mentioned)
		}
		return db
	}

	var total int64
	if err := s.db.Scopes(scope).Count(&total).Error; err != nil {
		return nil, err
	}
	var products []models.Product
	if err := s.db.Scopes(scope).Order(order).Limit(chatRowLimit).Find(&products).Error; err != nil {
		return nil, err
	}

	answer := fmt.Sprintf("Found **%d** %s.", total, heading)
	if total > int64(len(products)) {
		answer += fmt.Sprintf(" Showing the first %d.", len(products))
	}
	return &types.ChatResult{
		Answer:      answer,
		Data:        chatRows(products),
		ResultCount: int(total),
		Explanation: explanation,
	}, nil
}

func (s *Server) brandCounts() (*types.ChatResult, error) {
	var counts []struct {
		Brand    string
		Products int
	}
	err := s.db.Model(&models.Product{}).
		Select("brand, COUNT(*) AS products").
		Where("brand <> ''").
		Group("brand").
		Order("products DESC, brand").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(counts))
	var b strings.Builder
	fmt.Fprintf(&b, "There are **%d** brands in the master stock:\n\n", len(counts))
	for i, count := range counts {
		rows = append(rows, map[string]any{"BRAND": count.Brand, "products": count.Products})
		if i < 5 {
			fmt.Fprintf(&b, "- %s (%d)\n", count.Brand, count.Products)
		}
	}
	return &types.ChatResult{
		Answer:      b.String(),
		Data:        rows,
		ResultCount: len(counts),
		Explanation: "Brand list with product counts",
	}, nil
}

func (s *Server) summaryAnswer() (*types.ChatResult, error) {
	var total, merged, low int64
	if err := s.db.Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Product{}).Where("merged_from_docs > 1").Count(&merged).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Product{}).Where("confidence < ?", models.LowConfidenceThreshold).Count(&low).Error; err != nil {
		return nil, err
	}
	return &types.ChatResult{
		Answer: fmt.Sprintf("The master stock has **%d** products, %d of them merged and %d awaiting review. "+
			"Try asking about a brand, merged products or low confidence items.", total, merged, low),
		Data:        []map[string]any{},
		Explanation: "Summary",
	}, nil
}

func chatRows(products []models.Product) []map[string]any {
	rows := make([]map[string]any, 0, len(products))
	for _, p := range products {
		row := map[string]any{
			"merge_id":         p.MergeID,
			"BRAND":            p.Brand,
			"ITEM":             p.Item,
			"UPC":              p.UPC,
			"merged_from_docs": p.MergedFromDocs,
		}
		if p.Confidence != nil {
			row["llm_confidence_min"] = *p.Confidence
		}
		rows = append(rows, row)
	}
	return rows
}

func containsAny(s string, words []string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
