package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "FarmFi"

var (
	ErrInvalidTOTPCode = apperr.Unauthorized("invalid two-factor code")
	ErrNoTOTPSecret    = apperr.Validation("two-factor setup has not been started")
	ErrTOTPNotEnabled  = apperr.Validation("two-factor authentication is not enabled")
)

// TOTPService manages admin two-factor authentication.
type TOTPService struct {
	staff StaffStore
}

func NewTOTPService(staff StaffStore) *TOTPService {
	return &TOTPService{staff: staff}
}

// GenerateSetup creates a new TOTP secret and QR code for an admin. The
// secret is stored disabled until Enable confirms a code from the device.
func (s *TOTPService) GenerateSetup(ctx context.Context, adminID int) (*models.TOTPSetupResponse, error) {
	admin, err := s.staff.Get(ctx, models.RoleAdmin, adminID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: admin.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.staff.SaveTOTPSecret(ctx, admin.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: admin.Username,
	}, nil
}

// Enable verifies a code against the pending secret and turns 2FA on.
func (s *TOTPService) Enable(ctx context.Context, adminID int, code string) error {
	admin, err := s.staff.Get(ctx, models.RoleAdmin, adminID)
	if err != nil {
		return err
	}
	if admin.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.staff.SetTOTPEnabled(ctx, admin.ID, true)
}

// Disable requires a current code and clears the secret.
func (s *TOTPService) Disable(ctx context.Context, adminID int, code string) error {
	admin, err := s.staff.Get(ctx, models.RoleAdmin, adminID)
	if err != nil {
		return err
	}
	if !admin.TOTPEnabled || admin.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.staff.SetTOTPEnabled(ctx, admin.ID, false)
}

// Verify checks a login code for an admin that has 2FA enabled.
func (s *TOTPService) Verify(admin *models.Staff, code string) error {
	if code == "" {
		return apperr.Unauthorized("two-factor code required").WithDetails(map[string]bool{"totp_required": true})
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return nil
}
