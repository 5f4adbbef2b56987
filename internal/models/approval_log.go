package models

import "time"

const (
	EntityField = "field"
	EntityCrop  = "crop"
)

const (
	ActionVerify  = "verify"
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ApprovalLog records every status transition of a field or crop record.
type ApprovalLog struct {
	ID         int       `json:"id" db:"id"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   int       `json:"entity_id" db:"entity_id"`
	Action     string    `json:"action" db:"action"`
	FromStatus string    `json:"from_status" db:"from_status"`
	ToStatus   string    `json:"to_status" db:"to_status"`
	ActorRole  string    `json:"actor_role" db:"actor_role"`
	ActorID    int       `json:"actor_id" db:"actor_id"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// StatusEvent is pushed to connected dashboards when a record changes state.
type StatusEvent struct {
	Type     string `json:"type"`
	Entity   string `json:"entity"`
	ID       int    `json:"id"`
	FarmerID int    `json:"farmer_id"`
	Status   string `json:"status"`
}
