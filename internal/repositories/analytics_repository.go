package repositories

import (
	"context"

	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsRepository runs the read-only aggregations. A farmerID of 0
// means every farmer.
type AnalyticsRepository struct {
	DB *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{DB: db}
}

func (r *AnalyticsRepository) CountFarmers(ctx context.Context, farmerID int) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM farmers WHERE ($1 = 0 OR id = $1)`, farmerID).Scan(&n)
	return n, err
}

// FieldStats returns the field count per status and the summed area.
func (r *AnalyticsRepository) FieldStats(ctx context.Context, farmerID int) (map[string]int, float64, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(area), 0)
         FROM fields
         WHERE ($1 = 0 OR farmer_id = $1)
         GROUP BY status`, farmerID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	byStatus := map[string]int{}
	var total float64
	for rows.Next() {
		var (
			status string
			n      int
			area   float64
		)
		if err := rows.Scan(&status, &n, &area); err != nil {
			return nil, 0, err
		}
		byStatus[status] = n
		total += area
	}
	return byStatus, total, rows.Err()
}

// CropStats returns the crop record count per status and the area under
// active (not rejected) records.
func (r *AnalyticsRepository) CropStats(ctx context.Context, farmerID int) (map[string]int, float64, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT cd.status, COUNT(*), COALESCE(SUM(cd.area), 0)
         FROM crop_data cd
         JOIN fields f ON f.id = cd.field_id
         WHERE ($1 = 0 OR f.farmer_id = $1)
         GROUP BY cd.status`, farmerID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	byStatus := map[string]int{}
	var cultivated float64
	for rows.Next() {
		var (
			status string
			n      int
			area   float64
		)
		if err := rows.Scan(&status, &n, &area); err != nil {
			return nil, 0, err
		}
		byStatus[status] = n
		if status != models.StatusRejected {
			cultivated += area
		}
	}
	return byStatus, cultivated, rows.Err()
}

func (r *AnalyticsRepository) CountDetections(ctx context.Context, farmerID int) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*)
         FROM disease_detections d
         JOIN fields f ON f.id = d.field_id
         WHERE ($1 = 0 OR f.farmer_id = $1)`, farmerID).Scan(&n)
	return n, err
}

func (r *AnalyticsRepository) CropsBySeason(ctx context.Context, farmerID int) ([]models.LabeledValue, error) {
	return r.labeled(ctx,
		`SELECT cd.season, COALESCE(SUM(cd.area), 0), COUNT(*)
         FROM crop_data cd
         JOIN fields f ON f.id = cd.field_id
         WHERE cd.status <> 'rejected' AND ($1 = 0 OR f.farmer_id = $1)
         GROUP BY cd.season
         ORDER BY cd.season`, farmerID)
}

func (r *AnalyticsRepository) AreaByCrop(ctx context.Context, farmerID int) ([]models.LabeledValue, error) {
	return r.labeled(ctx,
		`SELECT c.name, COALESCE(SUM(cd.area), 0), COUNT(*)
         FROM crop_data cd
         JOIN crops c ON c.id = cd.crop_id
         JOIN fields f ON f.id = cd.field_id
         WHERE cd.status <> 'rejected' AND ($1 = 0 OR f.farmer_id = $1)
         GROUP BY c.name
         ORDER BY 2 DESC, c.name`, farmerID)
}

func (r *AnalyticsRepository) ProductionByYear(ctx context.Context, farmerID int) ([]models.LabeledValue, error) {
	return r.labeled(ctx,
		`SELECT cd.crop_year::text, COALESCE(SUM(cd.production), 0), COUNT(*)
         FROM crop_data cd
         JOIN fields f ON f.id = cd.field_id
         WHERE cd.status <> 'rejected' AND ($1 = 0 OR f.farmer_id = $1)
         GROUP BY cd.crop_year
         ORDER BY cd.crop_year`, farmerID)
}

func (r *AnalyticsRepository) FieldsByMandal(ctx context.Context, farmerID int) ([]models.LabeledValue, error) {
	return r.labeled(ctx,
		`SELECT m.name, COALESCE(SUM(f.area), 0), COUNT(*)
         FROM fields f
         JOIN mandals m ON m.id = f.mandal_id
         WHERE ($1 = 0 OR f.farmer_id = $1)
         GROUP BY m.name
         ORDER BY m.name`, farmerID)
}

// DiseaseCounts reports detections per disease; Value is the mean confidence.
func (r *AnalyticsRepository) DiseaseCounts(ctx context.Context, farmerID int) ([]models.LabeledValue, error) {
	return r.labeled(ctx,
		`SELECT d.disease_name, COALESCE(AVG(d.confidence_score), 0), COUNT(*)
         FROM disease_detections d
         JOIN fields f ON f.id = d.field_id
         WHERE ($1 = 0 OR f.farmer_id = $1)
         GROUP BY d.disease_name
         ORDER BY 3 DESC, d.disease_name`, farmerID)
}

func (r *AnalyticsRepository) labeled(ctx context.Context, query string, farmerID int) ([]models.LabeledValue, error) {
	rows, err := r.DB.Query(ctx, query, farmerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LabeledValue{}
	for rows.Next() {
		var v models.LabeledValue
		if err := rows.Scan(&v.Label, &v.Value, &v.Count); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
