package server

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/models"
	"github.com/fmcg-dev/fmcg/internal/types"
)

const (
	confidenceSame      = 0.95
	confidenceVariants  = 0.72
	mergeRuleUPC        = "UPC_EXACT"
	mergeLevelSingle    = "NO_MERGE"
	mergeLevelLow       = "LOW_CONFIDENCE"
	mergeLevelUPCFormat = "UPC_MERGED_%d"
)

var (
	marketingWords = []string{"NEW", "PROMO", "FREE", "BONUS", "VALUE", "PACK", "SPECIAL"}
	sizePattern    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(G|GM|KG|ML|L)\b`)
	spaces         = regexp.MustCompile(`\s+`)
)

// master groups the raw rows of a sheet by UPC into master products. It
// replaces whatever an earlier run produced for the same sheet.
func (s *Server) master(sheet string) (*types.MasteringResult, error) {
	var rows []models.StockRow
	if err := s.db.Where("sheet_name = ?", sheet).Order("upc, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}

	groups := map[string][]*models.StockRow{}
	var upcs []string
	for i := range rows {
		upc := rows[i].UPC
		if _, seen := groups[upc]; !seen {
			upcs = append(upcs, upc)
		}
		groups[upc] = append(groups[upc], &rows[i])
	}
	slices.Sort(upcs)

	result := &types.MasteringResult{SheetName: sheet, Processed: len(rows)}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sheet_name = ?", sheet).Delete(&models.Product{}).Error; err != nil {
			return err
		}

		for _, upc := range upcs {
			product, err := s.masterGroup(tx, sheet, upc, groups[upc])
			if err != nil {
				return err
			}
			if err := tx.Create(product).Error; err != nil {
				return err
			}
			for _, row := range groups[upc] {
				if err := tx.Model(row).Update("merge_id", product.MergeID).Error; err != nil {
					return err
				}
			}
			if product.MergedFromDocs > 1 {
				result.Merged++
			}
			if product.LowConfidence() {
				result.LowConfidence++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store products: %w", err)
	}
	return result, nil
}

func (s *Server) masterGroup(tx *gorm.DB, sheet, upc string, rows []*models.StockRow) (*models.Product, error) {
	first := rows[0]

	var items, normalized []string
	for _, row := range rows {
		items = append(items, row.Item)
		n, err := normalizeItem(tx, row.Item)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(normalized, n) {
			normalized = append(normalized, n)
		}
	}

	confidence := confidenceSame
	level := mergeLevelSingle
	switch {
	case len(normalized) > 1:
		// Same UPC but different products after cleaning
		confidence = confidenceVariants
		level = mergeLevelLow
	case len(rows) > 1:
		level = fmt.Sprintf(mergeLevelUPCFormat, len(rows))
	}

	size := ""
	if m := sizePattern.FindStringSubmatch(first.Item); m != nil {
		size = m[1] + strings.ToUpper(m[2])
	}

	return &models.Product{
		MergeID:        "M" + ulid.Make().String(),
		Brand:          first.Brand,
		Item:           first.Item,
		UPC:            upc,
		MergedFromDocs: len(rows),
		MergeLevel:     level,
		Confidence:     &confidence,
		LLMBrand:       strings.ToUpper(first.Brand),
		Size:           size,
		NormalizedItem: normalized[0],
		SheetName:      sheet,
		MergeRule:      mergeRuleUPC,
		MergeItems:     items,
		MergedUPCs:     []string{upc},
	}, nil
}

// normalizeItem strips marketing words and extra spaces from an item
// description. Results are cached in the cache table.
func normalizeItem(tx *gorm.DB, item string) (string, error) {
	var cached models.CacheEntry
	err := tx.Where("item = ?", item).First(&cached).Error
	if err == nil {
		return cached.Result, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var words []string
	for _, word := range strings.Fields(strings.ToUpper(item)) {
		if !slices.Contains(marketingWords, strings.Trim(word, "!*")) {
			words = append(words, word)
		}
	}
	result := spaces.ReplaceAllString(strings.Join(words, " "), " ")

	if err := tx.Create(&models.CacheEntry{Item: item, Result: result}).Error; err != nil {
		return "", err
	}
	return result, nil
}
