package models

const (
	RoleFarmer   = "farmer"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// Principal is anything that can log in. Farmers, employees and admins live
// in separate tables but authenticate through the same code path.
type Principal interface {
	PrincipalID() int
	PrincipalRole() string
	LoginName() string
	PasswordDigest() string
}

// Identity is the authenticated caller as carried in the request context.
type Identity struct {
	ID    int    `json:"id"`
	Role  string `json:"role"`
	Login string `json:"login"`
}

func IdentityOf(p Principal) Identity {
	return Identity{ID: p.PrincipalID(), Role: p.PrincipalRole(), Login: p.LoginName()}
}

func (i Identity) IsFarmer() bool { return i.Role == RoleFarmer }

// IsStaff is true for employees and admins.
func (i Identity) IsStaff() bool { return i.Role == RoleEmployee || i.Role == RoleAdmin }

func ValidRole(role string) bool {
	return role == RoleFarmer || role == RoleEmployee || role == RoleAdmin
}

// LoginRequest accepts either the generic "login" field or the role specific
// phone/username field.
type LoginRequest struct {
	Role     string `json:"role"`
	Login    string `json:"login"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

func (r *LoginRequest) LoginName() string {
	switch {
	case r.Login != "":
		return r.Login
	case r.Role == RoleFarmer:
		return r.Phone
	default:
		return r.Username
	}
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string    `json:"token"`
	Role  string    `json:"role"`
	User  Principal `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateProfileRequest struct {
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	MandalID  int    `json:"mandal_id,omitempty"`
	VillageID int    `json:"village_id,omitempty"`
}
