package server

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/auth"
	"github.com/fmcg-dev/fmcg/internal/models"
)

const seedSheet = "Demo Catalogue"

var (
	seedBrands   = []string{"OREO", "GLICO", "RITZ", "JACOB'S", "HUP SENG", "MUNCHY'S", "JULIE'S", "TWISTIES", "MAMEE", "CADBURY", "KINDER", "LEXUS"}
	seedFlavours = []string{"CHOCOLATE", "VANILLA", "STRAWBERRY", "ORIGINAL", "CHEESE", "PEANUT BUTTER", "DOUBLE CHOC"}
	seedSizes    = []string{"40G", "90G", "133G", "200G", "300G", "500G"}
	seedMarkets  = []string{"Pen Malaysia", "EM", "Total 7-Eleven"}
)

// seed creates the demo account and, on an empty catalogue, a deterministic
// set of products so every endpoint has something to return
func (s *Server) seed() error {
	demo := s.config.Demo
	email := strings.ToLower(strings.TrimSpace(demo.Email))

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := auth.HashPassword(demo.Password)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		user = models.User{Email: email, PasswordHash: hash, Name: demo.Name, Company: demo.Company}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}
		s.logger.Info().Str("email", email).Msg("Created demo user")
	} else if err != nil {
		return fmt.Errorf("failed to look up demo user: %w", err)
	}

	var count int64
	if err := s.db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 || demo.SeedProducts == 0 {
		return nil
	}

	products, rows := seedCatalogue(demo.SeedProducts)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(products, 200).Error; err != nil {
			return err
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return err
		}
		return tx.Create(&models.Upload{
			Filename:  seedSheet + ".xlsx",
			SheetName: seedSheet,
			Rows:      len(rows),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	s.logger.Info().Int("products", len(products)).Int("rows", len(rows)).Msg("Seeded demo catalogue")
	return nil
}

// seedCatalogue builds n products and the raw rows they were merged from
func seedCatalogue(n int) ([]models.Product, []models.StockRow) {
	products := make([]models.Product, 0, n)
	var rows []models.StockRow

	for i := range n {
		brand := seedBrands[i%len(seedBrands)]
		flavour := seedFlavours[(i/len(seedBrands))%len(seedFlavours)]
		size := seedSizes[i%len(seedSizes)]
		item := fmt.Sprintf("%s %s %s", brand, flavour, size)
		upc := fmt.Sprintf("9556%08d", 1000+i*7)
		mergeID := fmt.Sprintf("M%05d", i+1)

		docs := 1
		if i%3 != 0 {
			docs = 2 + (i*5)%11
		}

		// Spread confidence over 0.50..0.99 so every band is populated
		confidence := 0.5 + float64((i*37)%50)/100
		level := mergeLevelSingle
		switch {
		case confidence < 0.6:
			level = mergeLevelLow
		case i%17 == 0:
			level = "MASTER_MERGE"
		case docs > 1:
			level = fmt.Sprintf(mergeLevelUPCFormat, docs)
		}

		items := make([]string, 0, docs)
		for d := range docs {
			variant := item
			if d > 0 {
				variant = fmt.Sprintf("%s %s (PACK %d)", brand, flavour, d+1)
			}
			items = append(items, variant)
			rows = append(rows, models.StockRow{
				SheetName: seedSheet,
				UPC:       upc,
				Brand:     brand,
				Item:      variant,
				MergeID:   mergeID,
			})
		}

		products = append(products, models.Product{
			MergeID:        mergeID,
			Brand:          brand,
			Item:           item,
			UPC:            upc,
			MergedFromDocs: docs,
			MergeLevel:     level,
			Confidence:     &confidence,
			LLMBrand:       brand,
			Flavour:        flavour,
			Size:           size,
			NormalizedItem: item,
			SheetName:      seedSheet,
			MergeRule:      mergeRuleUPC,
			MergeItems:     items,
			MergedUPCs:     []string{upc},
			Manufacturer:   brand + " SDN BHD",
			Markets:        seedMarkets[i%len(seedMarkets)],
			Facts:          "Sales Value",
		})
	}
	return products, rows
}
