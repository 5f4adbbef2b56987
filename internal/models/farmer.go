package models

import "time"

type Farmer struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	MandalID     int       `json:"mandal_id"`
	VillageID    int       `json:"village_id"`
	Address      string    `json:"address"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	MandalName   string    `json:"mandal_name,omitempty"`
	VillageName  string    `json:"village_name,omitempty"`
}

func (f *Farmer) PrincipalID() int       { return f.ID }
func (f *Farmer) PrincipalRole() string  { return RoleFarmer }
func (f *Farmer) LoginName() string      { return f.Phone }
func (f *Farmer) PasswordDigest() string { return f.PasswordHash }

// RegisterRequest represents the request body for farmer registration
type RegisterRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	MandalID  int    `json:"mandal_id"`
	VillageID int    `json:"village_id"`
	Address   string `json:"address"`
}
