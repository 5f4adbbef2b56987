package models

import "time"

// Staff is an employee or an admin. Each role has its own table; admins
// additionally carry two-factor state.
type Staff struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Staff) PrincipalID() int       { return s.ID }
func (s *Staff) PrincipalRole() string  { return s.Role }
func (s *Staff) LoginName() string      { return s.Username }
func (s *Staff) PasswordDigest() string { return s.PasswordHash }

// CreateStaffRequest is used by admins to add employees
type CreateStaffRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type TOTPSetupResponse struct {
	Secret      string `json:"secret"`
	QRCode      string `json:"qr_code"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

type TOTPCodeRequest struct {
	Code string `json:"code"`
}
