package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/landuse"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// FarmerReportData is everything printed on a farmer statement.
type FarmerReportData struct {
	Farmer     *models.Farmer
	Fields     []*models.Field
	Crops      []*models.CropData
	LandUse    []models.FieldYearLandInfo
	Detections []*models.DiseaseDetection
}

type ReportService struct {
	farmers FarmerStore
	fields  FieldStore
	crops   CropStore
	images  ImageStore
}

func NewReportService(farmers FarmerStore, fields FieldStore, crops CropStore, images ImageStore) *ReportService {
	return &ReportService{farmers: farmers, fields: fields, crops: crops, images: images}
}

// FarmerReport gathers the statement data. Farmers may only request their
// own statement.
func (s *ReportService) FarmerReport(ctx context.Context, actor models.Identity, farmerID int) (*FarmerReportData, error) {
	if actor.IsFarmer() && actor.ID != farmerID {
		return nil, apperr.NotFound("farmer not found")
	}

	farmer, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	fields, err := s.fields.List(ctx, models.FieldFilter{FarmerID: farmerID})
	if err != nil {
		return nil, err
	}
	crops, err := s.crops.List(ctx, models.CropDataFilter{FarmerID: farmerID})
	if err != nil {
		return nil, err
	}
	detections, err := s.images.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	return &FarmerReportData{
		Farmer:     farmer,
		Fields:     fields,
		Crops:      crops,
		LandUse:    landUseByFieldYear(fields, crops),
		Detections: detections,
	}, nil
}

// landUseByFieldYear summarizes every (field, year) that has crop records,
// ordered by field then year.
func landUseByFieldYear(fields []*models.Field, crops []*models.CropData) []models.FieldYearLandInfo {
	type key struct{ field, year int }
	active := map[key][]*models.CropData{}
	for _, c := range crops {
		k := key{c.FieldID, c.CropYear}
		if _, ok := active[k]; !ok {
			active[k] = nil
		}
		if c.Status != models.StatusRejected {
			active[k] = append(active[k], c)
		}
	}

	area := make(map[int]float64, len(fields))
	for _, f := range fields {
		area[f.ID] = f.Area
	}

	keys := make([]key, 0, len(active))
	for k := range active {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].field != keys[j].field {
			return keys[i].field < keys[j].field
		}
		return keys[i].year < keys[j].year
	})

	out := make([]models.FieldYearLandInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.FieldYearLandInfo{
			FieldID:  k.field,
			CropYear: k.year,
			LandInfo: landuse.Summarize(area[k.field], toLandCrops(active[k])),
		})
	}
	return out
}

// GenerateFarmerPDF renders the statement as an A4 PDF.
func (s *ReportService) GenerateFarmerPDF(data *FarmerReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "FarmFi - Farmer Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.FormatIST(timeutil.Now(), timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Farmer info
	f := data.Farmer
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Farmer Information", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, tr("Name: "+f.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Phone: "+f.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Mandal: "+f.MandalName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Village: "+f.VillageName), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Fields
	sectionHeader(pdf, "Fields")
	tableHeader(pdf, []float64{15, 60, 25, 50, 40}, []string{"ID", "Name", "Acres", "Status", "Location"})
	pdf.SetFont("Arial", "", 10)
	for _, fl := range data.Fields {
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", fl.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, tr(fl.FieldName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", fl.Area), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, fl.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.4f, %.4f", fl.Latitude, fl.Longitude), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	// Crops
	sectionHeader(pdf, "Crop Records")
	tableHeader(pdf, []float64{15, 40, 20, 30, 20, 25, 40}, []string{"Field", "Crop", "Year", "Season", "Acres", "Production", "Status"})
	pdf.SetFont("Arial", "", 10)
	for _, c := range data.Crops {
		production := "-"
		if c.Production != nil {
			production = fmt.Sprintf("%.2f", *c.Production)
		}
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", c.FieldID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, tr(c.CropName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", c.CropYear), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, c.Season, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", c.Area), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, production, "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, c.Status, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	// Land use
	sectionHeader(pdf, "Land Utilization")
	tableHeader(pdf, []float64{20, 20, 35, 35, 35, 45}, []string{"Field", "Year", "Total", "Occupied", "Remaining", "Utilization"})
	pdf.SetFont("Arial", "", 10)
	for _, lu := range data.LandUse {
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", lu.FieldID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", lu.CropYear), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", lu.LandInfo.TotalArea), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", lu.LandInfo.OccupiedArea), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", lu.LandInfo.RemainingArea), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, fmt.Sprintf("%.2f%%", lu.LandInfo.UtilizationPercentage), "1", 1, "R", false, 0, "")
	}

	// Detections
	if len(data.Detections) > 0 {
		pdf.Ln(5)
		sectionHeader(pdf, "Disease Detections")
		tableHeader(pdf, []float64{35, 40, 60, 25, 30}, []string{"Date", "Field", "Disease", "Confidence", "Severity"})
		pdf.SetFont("Arial", "", 10)
		for _, d := range data.Detections {
			pdf.CellFormat(35, 6, timeutil.FormatIST(d.CreatedAt, timeutil.DateLayout), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, tr(d.FieldName), "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, tr(d.DiseaseName), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%.0f%%", d.ConfidenceScore*100), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, d.Severity, "1", 1, "C", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, title, "1", 1, "L", true, 0, "")
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, titles []string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, t := range titles {
		ln := 0
		if i == len(titles)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, t, "1", ln, "C", true, 0, "")
	}
}
