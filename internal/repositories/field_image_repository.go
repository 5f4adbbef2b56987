package repositories

import (
	"context"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FieldImageRepository struct {
	DB *pgxpool.Pool
}

func NewFieldImageRepository(db *pgxpool.Pool) *FieldImageRepository {
	return &FieldImageRepository{DB: db}
}

// CreateWithDetection stores the image row and its detection in one
// transaction and fills in the generated ids.
func (r *FieldImageRepository) CreateWithDetection(ctx context.Context, img *models.FieldImage, d *models.DiseaseDetection) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO field_images(field_id, crop_data_id, image_url, image_type, captured_at)
         VALUES($1, $2, $3, $4, NOW())
         RETURNING id, captured_at`,
		img.FieldID, img.CropDataID, img.ImageURL, img.ImageType,
	).Scan(&img.ID, &img.CapturedAt)
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown field or crop record")
	}
	if err != nil {
		return err
	}

	d.ImageID = img.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO disease_detections(image_id, field_id, crop_data_id, plant, disease_name, confidence_score, severity, recommendations)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, created_at`,
		d.ImageID, d.FieldID, d.CropDataID, d.Plant, d.DiseaseName, d.ConfidenceScore, d.Severity, d.Recommendations,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const detectionColumns = `d.id, d.image_id, d.field_id, d.crop_data_id, d.plant, d.disease_name, d.confidence_score,
	d.severity, d.recommendations, d.created_at, i.image_url, COALESCE(f.field_name, '')`

const detectionFrom = `FROM disease_detections d
	JOIN field_images i ON i.id = d.image_id
	LEFT JOIN fields f ON f.id = d.field_id`

func scanDetection(row scanner) (*models.DiseaseDetection, error) {
	var d models.DiseaseDetection
	err := row.Scan(&d.ID, &d.ImageID, &d.FieldID, &d.CropDataID, &d.Plant, &d.DiseaseName, &d.ConfidenceScore,
		&d.Severity, &d.Recommendations, &d.CreatedAt, &d.ImageKey, &d.FieldName)
	return &d, err
}

// ListByFarmer returns every detection on the farmer's fields, newest first.
func (r *FieldImageRepository) ListByFarmer(ctx context.Context, farmerID int) ([]*models.DiseaseDetection, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+detectionColumns+` `+detectionFrom+`
         WHERE f.farmer_id=$1
         ORDER BY d.created_at DESC, d.id DESC`, farmerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.DiseaseDetection{}
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetImage returns the image row together with the owning farmer id.
func (r *FieldImageRepository) GetImage(ctx context.Context, id int) (*models.FieldImage, int, error) {
	var (
		img      models.FieldImage
		farmerID int
	)
	err := r.DB.QueryRow(ctx,
		`SELECT i.id, i.field_id, i.crop_data_id, i.image_url, i.image_type, i.captured_at, f.farmer_id
         FROM field_images i
         JOIN fields f ON f.id = i.field_id
         WHERE i.id=$1`, id,
	).Scan(&img.ID, &img.FieldID, &img.CropDataID, &img.ImageURL, &img.ImageType, &img.CapturedAt, &farmerID)
	if err != nil {
		return nil, 0, notFound(err, "image not found")
	}
	return &img, farmerID, nil
}
