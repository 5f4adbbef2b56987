package models

import "time"

// Approval pipeline shared by fields and crop records:
// pending -> employee_verified -> admin_approved, or -> rejected.
const (
	StatusPending          = "pending"
	StatusEmployeeVerified = "employee_verified"
	StatusAdminApproved    = "admin_approved"
	StatusRejected         = "rejected"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusEmployeeVerified, StatusAdminApproved, StatusRejected:
		return true
	}
	return false
}

type Field struct {
	ID              int        `json:"id"`
	FarmerID        int        `json:"farmer_id"`
	FieldName       string     `json:"field_name"`
	Area            float64    `json:"area"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	MandalID        int        `json:"mandal_id"`
	VillageID       int        `json:"village_id"`
	Status          string     `json:"status"`
	Verified        bool       `json:"verified"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ApprovalDate    *time.Time `json:"approval_date,omitempty"`

	FarmerName  string `json:"farmer_name,omitempty"`
	MandalName  string `json:"mandal_name,omitempty"`
	VillageName string `json:"village_name,omitempty"`
}

// FieldRequest is the body of create and update calls.
type FieldRequest struct {
	FieldName string  `json:"field_name"`
	Area      float64 `json:"area"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	MandalID  int     `json:"mandal_id"`
	VillageID int     `json:"village_id"`
}

// FieldFilter narrows list queries. Zero values mean "any".
type FieldFilter struct {
	FarmerID  int
	Status    string
	MandalID  int
	VillageID int
}

// StatusChange is applied atomically by the stores.
type StatusChange struct {
	Status   string
	Verified bool
	Reason   string
	Approved bool // stamp approval_date
}

type RejectRequest struct {
	Reason string `json:"reason"`
}
