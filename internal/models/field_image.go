package models

import "time"

type FieldImage struct {
	ID         int       `json:"id"`
	FieldID    int       `json:"field_id"`
	CropDataID *int      `json:"crop_data_id,omitempty"`
	ImageURL   string    `json:"image_url"` // object storage key
	ImageType  string    `json:"image_type"`
	CapturedAt time.Time `json:"captured_at"`
}

// DiseaseDetection is written once per successful inference call and never
// updated.
type DiseaseDetection struct {
	ID              int       `json:"id"`
	ImageID         int       `json:"image_id"`
	FieldID         int       `json:"field_id"`
	CropDataID      *int      `json:"crop_data_id,omitempty"`
	Plant           string    `json:"plant"`
	DiseaseName     string    `json:"disease_name"`
	ConfidenceScore float64   `json:"confidence_score"`
	Severity        string    `json:"severity"`
	Recommendations string    `json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`

	ImageKey  string `json:"-"`
	FieldName string `json:"field_name,omitempty"`
	ViewURL   string `json:"view_url,omitempty"`
}

// PredictionUpload is a decoded multipart upload.
type PredictionUpload struct {
	FieldID     int
	CropDataID  *int
	Plant       string
	Filename    string
	ContentType string
	Data        []byte
}
