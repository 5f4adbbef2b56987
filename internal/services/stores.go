package services

import (
	"context"

	"farmfi-backend/internal/inference"
	"farmfi-backend/internal/models"
)

// Store interfaces are satisfied by the concrete repositories; tests use
// in-memory fakes.

type FarmerStore interface {
	Create(ctx context.Context, f *models.Farmer) error
	Get(ctx context.Context, id int) (*models.Farmer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Farmer, error)
	UpdateProfile(ctx context.Context, f *models.Farmer) error
	UpdatePassword(ctx context.Context, id int, hash string) error
}

type StaffStore interface {
	Create(ctx context.Context, s *models.Staff) error
	Get(ctx context.Context, role string, id int) (*models.Staff, error)
	GetByUsername(ctx context.Context, role, username string) (*models.Staff, error)
	List(ctx context.Context, role string) ([]*models.Staff, error)
	UpdateProfile(ctx context.Context, s *models.Staff) error
	UpdatePassword(ctx context.Context, role string, id int, hash string) error
	SaveTOTPSecret(ctx context.Context, adminID int, secret string) error
	SetTOTPEnabled(ctx context.Context, adminID int, enabled bool) error
}

type LoginLogStore interface {
	CreateLoginLog(ctx context.Context, l *models.LoginLog) error
}

type LocationStore interface {
	ListMandals(ctx context.Context) ([]models.Mandal, error)
	VillageInMandal(ctx context.Context, mandalID, villageID int) (bool, error)
	ListCrops(ctx context.Context) ([]models.Crop, error)
}

type FieldStore interface {
	Create(ctx context.Context, f *models.Field) error
	Get(ctx context.Context, id int) (*models.Field, error)
	List(ctx context.Context, filter models.FieldFilter) ([]*models.Field, error)
	Update(ctx context.Context, f *models.Field, check models.AreaCheck) error
	Delete(ctx context.Context, id int) error
	Transition(ctx context.Context, id int, from string, change models.StatusChange, log *models.ApprovalLog) error
}

type CropStore interface {
	CreateChecked(ctx context.Context, c *models.CropData, check models.LandCheck) error
	UpdateChecked(ctx context.Context, c *models.CropData, check models.LandCheck) error
	Get(ctx context.Context, id int) (*models.CropData, error)
	List(ctx context.Context, filter models.CropDataFilter) ([]*models.CropData, error)
	Delete(ctx context.Context, id int) error
	Transition(ctx context.Context, id int, from string, change models.StatusChange, log *models.ApprovalLog) error
	ActiveForField(ctx context.Context, fieldID, cropYear int) ([]*models.CropData, error)
	CropIDByName(ctx context.Context, name string) (int, error)
	CropExists(ctx context.Context, id int) (bool, error)
}

type ImageStore interface {
	CreateWithDetection(ctx context.Context, img *models.FieldImage, d *models.DiseaseDetection) error
	ListByFarmer(ctx context.Context, farmerID int) ([]*models.DiseaseDetection, error)
	GetImage(ctx context.Context, id int) (*models.FieldImage, int, error)
}

type AnalyticsStore interface {
	CountFarmers(ctx context.Context, farmerID int) (int, error)
	FieldStats(ctx context.Context, farmerID int) (map[string]int, float64, error)
	CropStats(ctx context.Context, farmerID int) (map[string]int, float64, error)
	CountDetections(ctx context.Context, farmerID int) (int, error)
	CropsBySeason(ctx context.Context, farmerID int) ([]models.LabeledValue, error)
	AreaByCrop(ctx context.Context, farmerID int) ([]models.LabeledValue, error)
	ProductionByYear(ctx context.Context, farmerID int) ([]models.LabeledValue, error)
	FieldsByMandal(ctx context.Context, farmerID int) ([]models.LabeledValue, error)
	DiseaseCounts(ctx context.Context, farmerID int) ([]models.LabeledValue, error)
}

// ObjectStore is the subset of storage.S3Store the prediction flow needs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Predictor interface {
	Predict(ctx context.Context, req inference.Request) (*inference.Result, error)
}

// Notifier receives status changes after they commit.
type Notifier interface {
	Publish(ev models.StatusEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(models.StatusEvent) {}
