package models

import (
	"time"

	"farmfi-backend/internal/landuse"
)

// CropData is a planting record: one crop, on one field, for one season of
// one crop year.
type CropData struct {
	ID              int       `json:"id"`
	FieldID         int       `json:"field_id"`
	CropID          int       `json:"crop_id"`
	CropYear        int       `json:"crop_year"`
	Season          string    `json:"season"`
	Area            float64   `json:"area"`
	Production      *float64  `json:"production,omitempty"`
	Yield           *float64  `json:"yield,omitempty"`
	Verified        bool      `json:"verified"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedByRole   string    `json:"created_by_role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	CropName  string `json:"crop_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
	FarmerID  int    `json:"farmer_id,omitempty"`
}

// CropDataRequest is the body of create and update calls. CropName may be
// given instead of CropID (used by spreadsheet import).
type CropDataRequest struct {
	FieldID    int      `json:"field_id"`
	CropID     int      `json:"crop_id"`
	CropName   string   `json:"crop_name,omitempty"`
	CropYear   int      `json:"crop_year"`
	Season     string   `json:"season"`
	Area       float64  `json:"area"`
	Production *float64 `json:"production,omitempty"`
	Yield      *float64 `json:"yield,omitempty"`
}

type CropDataFilter struct {
	FarmerID int
	FieldID  int
	CropYear int
	Status   string
}

// CropDataResult is returned from writes together with the field's
// utilization after the write.
type CropDataResult struct {
	Crop     *CropData         `json:"crop"`
	LandInfo *landuse.Snapshot `json:"land_info"`
}

// LandCheck runs while the field row is locked. Returning an error aborts
// the write.
type LandCheck func(field *Field, active []*CropData) error

// AreaCheck runs while a field row is locked for an update. occupiedByYear
// is the summed area of active crops per crop year.
type AreaCheck func(field *Field, occupiedByYear map[int]float64) error

// ImportRowResult reports the outcome of one spreadsheet row.
type ImportRowResult struct {
	Row     int    `json:"row"`
	Status  string `json:"status"` // created | rejected
	CropID  int    `json:"crop_data_id,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message,omitempty"`
}

type FieldYearLandInfo struct {
	FieldID  int               `json:"field_id"`
	CropYear int               `json:"crop_year"`
	LandInfo *landuse.Snapshot `json:"land_info"`
}

type ImportResult struct {
	Created  int                 `json:"created"`
	Rejected int                 `json:"rejected"`
	Rows     []ImportRowResult   `json:"rows"`
	LandInfo []FieldYearLandInfo `json:"land_info"`
}
