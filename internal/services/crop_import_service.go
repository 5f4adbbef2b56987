package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/landuse"
	"farmfi-backend/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxImportRows = 1000

var requiredImportColumns = []string{"field_id", "crop", "crop_year", "season", "area"}

// CropImportService loads crop records from an .xlsx workbook. Each row goes
// through CropService.Create on its own, so one bad row never blocks the
// others.
type CropImportService struct {
	crops *CropService
	log   *zap.Logger
}

func NewCropImportService(crops *CropService, log *zap.Logger) *CropImportService {
	return &CropImportService{crops: crops, log: log.Named("crop_import")}
}

// Import reads the first sheet of the workbook. Row 1 is the header;
// column order is free and header names are matched case-insensitively.
func (s *CropImportService) Import(ctx context.Context, actor models.Identity, r io.Reader) (*models.ImportResult, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only employees and admins can import crop data")
	}

	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("file is not a valid .xlsx workbook")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("cannot read worksheet: " + err.Error())
	}
	if len(rows) < 2 {
		return nil, apperr.Validation("worksheet has no data rows")
	}
	if len(rows)-1 > maxImportRows {
		return nil, apperr.Validation(fmt.Sprintf("at most %d rows can be imported at once", maxImportRows))
	}

	cols := headerIndex(rows[0])
	for _, name := range requiredImportColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperr.Validation(fmt.Sprintf("missing column %q", name))
		}
	}

	result := &models.ImportResult{Rows: []models.ImportRowResult{}, LandInfo: []models.FieldYearLandInfo{}}
	type fieldYear struct{ field, year int }
	touched := map[fieldYear]bool{}
	var order []fieldYear

	for i, row := range rows[1:] {
		rowNum := i + 2
		if blankRow(row) {
			continue
		}

		var created *models.CropDataResult
		req, err := parseImportRow(row, cols)
		if err == nil {
			created, err = s.crops.Create(ctx, actor, req)
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return nil, fmt.Errorf("import row %d: %w", rowNum, err)
			}
			rr := models.ImportRowResult{Row: rowNum, Status: "rejected", Message: apperr.PublicMessage(err)}
			if v, ok := apperr.DetailsOf(err).(*landuse.Violation); ok {
				rr.Rule = string(v.Rule)
			}
			result.Rows = append(result.Rows, rr)
			result.Rejected++
			continue
		}

		result.Created++
		result.Rows = append(result.Rows, models.ImportRowResult{Row: rowNum, Status: "created", CropID: created.Crop.ID})
		key := fieldYear{req.FieldID, req.CropYear}
		if !touched[key] {
			touched[key] = true
			order = append(order, key)
		}
	}

	for _, fy := range order {
		snap, err := s.crops.LandInfo(ctx, actor, fy.field, fy.year)
		if err != nil {
			return nil, err
		}
		result.LandInfo = append(result.LandInfo, models.FieldYearLandInfo{FieldID: fy.field, CropYear: fy.year, LandInfo: snap})
	}

	s.log.Info("crop import finished",
		zap.Int("actor_id", actor.ID),
		zap.Int("created", result.Created),
		zap.Int("rejected", result.Rejected))
	return result, nil
}

// headerIndex maps normalized header names to column positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		switch key {
		case "crop_name":
			key = "crop"
		case "year":
			key = "crop_year"
		}
		if _, dup := idx[key]; !dup && key != "" {
			idx[key] = i
		}
	}
	return idx
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseImportRow(row []string, cols map[string]int) (*models.CropDataRequest, error) {
	fieldID, err := strconv.Atoi(cell(row, cols, "field_id"))
	if err != nil || fieldID <= 0 {
		return nil, apperr.Validation("field_id must be a positive integer")
	}
	year, err := strconv.Atoi(cell(row, cols, "crop_year"))
	if err != nil {
		return nil, apperr.Validation("crop_year must be a number")
	}
	area, err := strconv.ParseFloat(cell(row, cols, "area"), 64)
	if err != nil {
		return nil, apperr.Validation("area must be a number")
	}

	req := &models.CropDataRequest{
		FieldID:  fieldID,
		CropName: cell(row, cols, "crop"),
		CropYear: year,
		Season:   cell(row, cols, "season"),
		Area:     area,
	}
	if req.CropName == "" {
		return nil, apperr.Validation("crop is required")
	}
	if req.Production, err = optionalFloat(cell(row, cols, "production"), "production"); err != nil {
		return nil, err
	}
	if req.Yield, err = optionalFloat(cell(row, cols, "yield"), "yield"); err != nil {
		return nil, err
	}
	return req, nil
}

func optionalFloat(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apperr.Validation(name + " must be a number")
	}
	return &v, nil
}
