package models

import "time"

type LoginLog struct {
	ID            int       `json:"id" db:"id"`
	PrincipalRole string    `json:"principal_role" db:"principal_role"`
	PrincipalID   int       `json:"principal_id" db:"principal_id"`
	LoginTime     time.Time `json:"login_time" db:"login_time"`
	IPAddress     string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent     string    `json:"user_agent,omitempty" db:"user_agent"`
}
