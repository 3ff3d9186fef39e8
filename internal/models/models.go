package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// LowConfidenceThreshold separates products that need review from the rest
const LowConfidenceThreshold = 0.8

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents a local account that can sign in
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	Company      string    `json:"company"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Session is a signed-in client. Deleting the row revokes its token.
type Session struct {
	BaseModel
	UserID    string    `json:"user_id" gorm:"not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the session is no longer usable at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// StockRow is one raw row of an uploaded sheet before merging
type StockRow struct {
	BaseModel
	SheetName string `json:"sheet_name" gorm:"not null;index"`
	UPC       string `json:"UPC" gorm:"column:upc;index"`
	Brand     string `json:"BRAND"`
	Item      string `json:"ITEM"`
	MergeID   string `json:"merge_id" gorm:"column:merge_id;index"`
}

// Product is one deduplicated master-stock record
type Product struct {
	BaseModel `json:"-"`

	MergeID        string   `json:"merge_id" gorm:"column:merge_id;uniqueIndex;not null"`
	Brand          string   `json:"BRAND" gorm:"index"`
	Item           string   `json:"ITEM"`
	UPC            string   `json:"UPC" gorm:"column:upc;index"`
	MergedFromDocs int      `json:"merged_from_docs" gorm:"not null;default:1"`
	MergeLevel     string   `json:"merge_level"`
	Confidence     *float64 `json:"llm_confidence_min"`
	LLMBrand       string   `json:"brand,omitempty" gorm:"column:llm_brand"`
	Flavour        string   `json:"flavour,omitempty"`
	Size           string   `json:"size,omitempty"`
	NormalizedItem string   `json:"normalized_item,omitempty"`
	SheetName      string   `json:"sheet_name,omitempty" gorm:"index"`
	MergeRule      string   `json:"merge_rule,omitempty"`
	MergeItems     []string `json:"merge_items,omitempty" gorm:"serializer:json"`
	MergedUPCs     []string `json:"merged_upcs,omitempty" gorm:"column:merged_upcs;serializer:json"`
	Manufacturer   string   `json:"MANUFACTURER,omitempty"`
	Markets        string   `json:"Markets,omitempty"`
	Facts          string   `json:"Facts,omitempty"`
}

// LowConfidence reports whether the product needs manual review
func (p *Product) LowConfidence() bool {
	return p.Confidence != nil && *p.Confidence < LowConfidenceThreshold
}

// Upload records one sheet accepted by the upload endpoint
type Upload struct {
	BaseModel
	Filename    string     `json:"filename" gorm:"not null"`
	SheetName   string     `json:"sheet_name" gorm:"not null;index"`
	Rows        int        `json:"rows"`
	UploadedBy  string     `json:"uploaded_by"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// CacheEntry stores a normalized item so repeated mastering is cheap
type CacheEntry struct {
	BaseModel
	Item   string `json:"item" gorm:"uniqueIndex;not null"`
	Result string `json:"result" gorm:"type:text"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Session{}, &StockRow{}, &Product{}, &Upload{}, &CacheEntry{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
