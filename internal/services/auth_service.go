package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/auth"
	"farmfi-backend/internal/models"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid credentials")

	// verifyPassword is swapped in tests to observe the bcrypt comparisons.
	verifyPassword = auth.VerifyPassword

	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,50}$`)
)

// AuthService handles registration, login and profile management for all
// three roles through the Principal abstraction.
type AuthService struct {
	farmers   FarmerStore
	staff     StaffStore
	locations LocationStore
	loginLogs LoginLogStore
	totp      *TOTPService
	jwt       *auth.JWTManager
	log       *zap.Logger
}

func NewAuthService(farmers FarmerStore, staff StaffStore, locations LocationStore, loginLogs LoginLogStore,
	totpService *TOTPService, jwtManager *auth.JWTManager, log *zap.Logger) *AuthService {
	return &AuthService{
		farmers:   farmers,
		staff:     staff,
		locations: locations,
		loginLogs: loginLogs,
		totp:      totpService,
		jwt:       jwtManager,
		log:       log.Named("auth"),
	}
}

// Register creates a farmer account and logs it in.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = normalizePhone(req.Phone)
	req.Address = strings.TrimSpace(req.Address)

	switch {
	case req.Name == "" || req.Phone == "" || req.Password == "" || req.Address == "":
		return nil, apperr.Validation("name, phone, password and address are required")
	case req.MandalID <= 0 || req.VillageID <= 0:
		return nil, apperr.Validation("mandal_id and village_id are required")
	case !phonePattern.MatchString(req.Phone):
		return nil, apperr.Validation("invalid phone number")
	}

	if err := s.checkVillage(ctx, req.MandalID, req.VillageID); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	farmer := &models.Farmer{
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		MandalID:     req.MandalID,
		VillageID:    req.VillageID,
		Address:      req.Address,
	}
	if err := s.farmers.Create(ctx, farmer); err != nil {
		return nil, err
	}

	s.log.Info("farmer registered", zap.Int("farmer_id", farmer.ID))
	return s.issue(farmer)
}

// Login authenticates any role. Unknown logins and wrong passwords produce
// the same error.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest, ipAddress, userAgent string) (*models.AuthResponse, error) {
	if req.Role == "" {
		req.Role = models.RoleFarmer
	}
	if !models.ValidRole(req.Role) {
		return nil, apperr.Validation("role must be farmer, employee or admin")
	}
	login := strings.TrimSpace(req.LoginName())
	if login == "" || req.Password == "" {
		return nil, apperr.Validation("login and password are required")
	}

	p, err := s.findByLogin(ctx, req.Role, login)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			verifyPassword(auth.DummyHash(), req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !verifyPassword(p.PasswordDigest(), req.Password) {
		return nil, ErrInvalidCredentials
	}

	if admin, ok := p.(*models.Staff); ok && admin.Role == models.RoleAdmin && admin.TOTPEnabled {
		if err := s.totp.Verify(admin, strings.TrimSpace(req.TOTPCode)); err != nil {
			return nil, err
		}
	}

	resp, err := s.issue(p)
	if err != nil {
		return nil, err
	}

	entry := &models.LoginLog{
		PrincipalRole: p.PrincipalRole(),
		PrincipalID:   p.PrincipalID(),
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	}
	if err := s.loginLogs.CreateLoginLog(ctx, entry); err != nil {
		// Log error but don't fail the login
		s.log.Warn("failed to record login", zap.Error(err), zap.String("role", p.PrincipalRole()))
	}

	return resp, nil
}

// Profile returns the current record of the authenticated principal.
func (s *AuthService) Profile(ctx context.Context, id models.Identity) (models.Principal, error) {
	if id.IsFarmer() {
		f, err := s.farmers.Get(ctx, id.ID)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	st, err := s.staff.Get(ctx, id.Role, id.ID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id models.Identity, req *models.UpdateProfileRequest) (models.Principal, error) {
	name := strings.TrimSpace(req.Name)

	if id.IsFarmer() {
		f, err := s.farmers.Get(ctx, id.ID)
		if err != nil {
			return nil, err
		}
		if name != "" {
			f.Name = name
		}
		if addr := strings.TrimSpace(req.Address); addr != "" {
			f.Address = addr
		}
		if req.MandalID > 0 || req.VillageID > 0 {
			if req.MandalID <= 0 || req.VillageID <= 0 {
				return nil, apperr.Validation("mandal_id and village_id must be changed together")
			}
			if err := s.checkVillage(ctx, req.MandalID, req.VillageID); err != nil {
				return nil, err
			}
			f.MandalID, f.VillageID = req.MandalID, req.VillageID
		}
		if err := s.farmers.UpdateProfile(ctx, f); err != nil {
			return nil, err
		}
		return s.Profile(ctx, id)
	}

	st, err := s.staff.Get(ctx, id.Role, id.ID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	st.Name = name
	if err := s.staff.UpdateProfile(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, id models.Identity, req *models.ChangePasswordRequest) error {
	p, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if !verifyPassword(p.PasswordDigest(), req.CurrentPassword) {
		return apperr.Validation("current password is incorrect")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if id.IsFarmer() {
		return s.farmers.UpdatePassword(ctx, id.ID, hash)
	}
	return s.staff.UpdatePassword(ctx, id.Role, id.ID, hash)
}

// CreateEmployee is available to admins only (enforced by the router).
func (s *AuthService) CreateEmployee(ctx context.Context, req *models.CreateStaffRequest) (*models.Staff, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Name == "" || req.Password == "" {
		return nil, apperr.Validation("username, name and password are required")
	}
	if !usernamePattern.MatchString(req.Username) {
		return nil, apperr.Validation("username may contain letters, digits, '.', '_' and '-' (3-50 characters)")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	emp := &models.Staff{
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         models.RoleEmployee,
	}
	if err := s.staff.Create(ctx, emp); err != nil {
		return nil, err
	}
	s.log.Info("employee created", zap.Int("employee_id", emp.ID), zap.String("username", emp.Username))
	return emp, nil
}

func (s *AuthService) ListEmployees(ctx context.Context) ([]*models.Staff, error) {
	return s.staff.List(ctx, models.RoleEmployee)
}

// CreateAdmin bootstraps an admin account from the command line.
func (s *AuthService) CreateAdmin(ctx context.Context, req *models.CreateStaffRequest) (*models.Staff, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("username and name are required")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.Staff{
		Username:     strings.TrimSpace(req.Username),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.staff.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *AuthService) findByLogin(ctx context.Context, role, login string) (models.Principal, error) {
	if role == models.RoleFarmer {
		return s.farmers.GetByPhone(ctx, normalizePhone(login))
	}
	return s.staff.GetByUsername(ctx, role, login)
}

func (s *AuthService) checkVillage(ctx context.Context, mandalID, villageID int) error {
	ok, err := s.locations.VillageInMandal(ctx, mandalID, villageID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("village does not belong to the selected mandal")
	}
	return nil
}

func (s *AuthService) issue(p models.Principal) (*models.AuthResponse, error) {
	token, err := s.jwt.GenerateToken(p)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, Role: p.PrincipalRole(), User: p}, nil
}

func hashPassword(pw string) (string, error) {
	hash, err := auth.HashPassword(pw)
	if errors.Is(err, auth.ErrWeakPassword) {
		return "", apperr.Validation(err.Error())
	}
	return hash, err
}

// normalizePhone drops spaces and dashes.
func normalizePhone(p string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(p))
}
