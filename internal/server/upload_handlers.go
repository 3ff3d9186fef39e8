package server

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/models"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// MaxUploadSize matches the client-side limit
const MaxUploadSize = 100 << 20

var uploadExtensions = []string{".xlsx", ".xls", ".csv"}

var errMissingColumns = errors.New("sheet must have UPC, BRAND and ITEM columns")

// SheetNameParam is the mastering path parameter
type SheetNameParam struct {
	SheetName string `validate:"required,sheetname"`
}

// sheetNameFor derives the sheet name recorded for an uploaded CSV file
func sheetNameFor(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}

// parsedSheet is one worksheet of an upload turned into raw stock rows
type parsedSheet struct {
	name string
	rows []models.StockRow
}

// @Router /upload/excel [post]
// @Success 200 {object} types.UploadResult
func (s *Server) uploadExcel(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "File size exceeds 100MB limit", "")
			return
		}
		respondError(c, http.StatusBadRequest, "No file uploaded", err.Error())
		return
	}
	if header.Size > MaxUploadSize {
		respondError(c, http.StatusRequestEntityTooLarge, "File size exceeds 100MB limit", "")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(uploadExtensions, ext) {
		respondError(c, http.StatusBadRequest, "Invalid file type. Please upload an Excel file (.xlsx or .xls)", ext)
		return
	}
	if ext == ".xls" {
		respondError(c, http.StatusBadRequest, "Legacy .xls workbooks are not supported, save the file as .xlsx", ext)
		return
	}

	file, err := header.Open()
	if err != nil {
		s.internalError(c, err, "Failed to open upload")
		return
	}
	var sheets []parsedSheet
	if ext == ".csv" {
		sheets, err = s.readCSVUpload(file, header.Filename)
	} else {
		sheets, err = s.readWorkbook(file)
	}
	file.Close()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Failed to read sheet", err.Error())
		return
	}

	uploadedBy := ""
	if sessionData != nil {
		uploadedBy = sessionData.Email
	}

	result := types.UploadResult{Filename: header.Filename, Sheets: []types.SheetResult{}}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, sheet := range sheets {
			// Re-uploading a sheet replaces its rows and the products mastered from them
			if err := tx.Where("sheet_name = ?", sheet.name).Delete(&models.StockRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("sheet_name = ?", sheet.name).Delete(&models.Product{}).Error; err != nil {
				return err
			}
			if len(sheet.rows) > 0 {
				if err := tx.CreateInBatches(sheet.rows, 500).Error; err != nil {
					return err
				}
			}
			err := tx.Create(&models.Upload{
				Filename:   header.Filename,
				SheetName:  sheet.name,
				Rows:       len(sheet.rows),
				UploadedBy: uploadedBy,
			}).Error
			if err != nil {
				return err
			}
			result.Sheets = append(result.Sheets, types.SheetResult{SheetName: sheet.name, Rows: len(sheet.rows)})
			result.TotalRows += len(sheet.rows)
		}
		return nil
	})
	if err != nil {
		s.internalError(c, err, "Failed to store upload")
		return
	}

	s.logger.Info().
		Str("filename", header.Filename).
		Int("sheets", len(result.Sheets)).
		Int("rows", result.TotalRows).
		Msg("Upload stored")

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// readCSVUpload reads a CSV file as a single sheet named after the file
func (s *Server) readCSVUpload(r io.Reader, filename string) ([]parsedSheet, error) {
	name := sheetNameFor(filename)
	if err := s.validator.Struct(SheetNameParam{SheetName: name}); err != nil {
		return nil, fmt.Errorf("invalid sheet name %q", name)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	rows, err := stockRows(records, name)
	if err != nil {
		return nil, err
	}
	return []parsedSheet{{name: name, rows: rows}}, nil
}

// readWorkbook reads every worksheet that carries the stock columns. Sheets
// without them (notes, pivots) and sheets whose names cannot be addressed
// later are skipped; a workbook with no usable sheet is an error.
func (s *Server) readWorkbook(r io.Reader) ([]parsedSheet, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("not a valid .xlsx workbook: %w", err)
	}
	defer book.Close()

	var sheets []parsedSheet
	for _, name := range book.GetSheetList() {
		if err := s.validator.Struct(SheetNameParam{SheetName: name}); err != nil {
			s.logger.Warn().Str("sheet_name", name).Msg("Skipping worksheet with unsupported name")
			continue
		}
		records, err := book.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read worksheet %q: %w", name, err)
		}
		rows, err := stockRows(records, name)
		if errors.Is(err, errMissingColumns) {
			s.logger.Debug().Str("sheet_name", name).Msg("Skipping worksheet without stock columns")
			continue
		}
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, parsedSheet{name: name, rows: rows})
	}

	if len(sheets) == 0 {
		return nil, errMissingColumns
	}
	return sheets, nil
}

// stockRows turns records with a header row naming at least the UPC, BRAND
// and ITEM columns (any case, any order) into raw stock rows
func stockRows(records [][]string, sheet string) ([]models.StockRow, error) {
	if len(records) == 0 {
		return nil, errMissingColumns
	}

	index := map[string]int{}
	for i, name := range records[0] {
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	upcCol, okUPC := index["UPC"]
	brandCol, okBrand := index["BRAND"]
	itemCol, okItem := index["ITEM"]
	if !okUPC || !okBrand || !okItem {
		return nil, errMissingColumns
	}

	field := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var rows []models.StockRow
	for _, record := range records[1:] {
		row := models.StockRow{
			SheetName: sheet,
			UPC:       field(record, upcCol),
			Brand:     field(record, brandCol),
			Item:      field(record, itemCol),
		}
		if row.UPC == "" && row.Item == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// @Router /process/llm-mastering/{sheetName} [post]
// @Success 200 {object} types.MasteringResult
func (s *Server) triggerMastering(c *gin.Context) {
	sheet := c.Param("sheetName")
	if err := s.validator.Struct(SheetNameParam{SheetName: sheet}); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid sheet name", err.Error())
		return
	}

	var upload models.Upload
	err := s.db.Where("sheet_name = ?", sheet).Order("created_at DESC").First(&upload).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Reported in the envelope, like the production backend does
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Sheet %q has not been uploaded", sheet),
		})
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to load upload")
		return
	}

	result, err := s.master(sheet)
	if err != nil {
		s.logger.Error().Err(err).Str("sheet_name", sheet).Msg("Mastering failed")
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}

	now := s.now()
	if err := s.db.Model(&upload).Update("processed_at", &now).Error; err != nil {
		s.logger.Warn().Err(err).Str("sheet_name", sheet).Msg("Failed to mark upload processed")
	}

	s.logger.Info().
		Str("sheet_name", sheet).
		Int("processed", result.Processed).
		Int("merged", result.Merged).
		Msg("Mastering complete")

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"sheet_name": sheet,
		"data":       result,
	})
}
