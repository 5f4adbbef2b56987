package repositories

import (
	"context"
	"fmt"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StaffRepository serves both the employees and admins tables. The table is
// picked from the role so callers never build table names themselves.
type StaffRepository struct {
	DB *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{DB: db}
}

func staffTable(role string) (string, error) {
	switch role {
	case models.RoleEmployee:
		return "employees", nil
	case models.RoleAdmin:
		return "admins", nil
	}
	return "", fmt.Errorf("no staff table for role %q", role)
}

// admins carry TOTP columns, employees report empty values.
func staffColumns(role string) string {
	if role == models.RoleAdmin {
		return `id, username, name, password_hash, role, COALESCE(totp_secret, ''), totp_enabled, created_at`
	}
	return `id, username, name, password_hash, role, '', false, created_at`
}

func scanStaff(row scanner) (*models.Staff, error) {
	var s models.Staff
	err := row.Scan(&s.ID, &s.Username, &s.Name, &s.PasswordHash, &s.Role, &s.TOTPSecret, &s.TOTPEnabled, &s.CreatedAt)
	return &s, err
}

func (r *StaffRepository) Create(ctx context.Context, s *models.Staff) error {
	table, err := staffTable(s.Role)
	if err != nil {
		return err
	}
	err = r.DB.QueryRow(ctx,
		`INSERT INTO `+table+`(username, name, password_hash, role)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at`,
		s.Username, s.Name, s.PasswordHash, s.Role,
	).Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation("username already exists")
	}
	return err
}

func (r *StaffRepository) Get(ctx context.Context, role string, id int) (*models.Staff, error) {
	table, err := staffTable(role)
	if err != nil {
		return nil, err
	}
	s, err := scanStaff(r.DB.QueryRow(ctx, `SELECT `+staffColumns(role)+` FROM `+table+` WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, role+" not found")
	}
	return s, nil
}

func (r *StaffRepository) GetByUsername(ctx context.Context, role, username string) (*models.Staff, error) {
	table, err := staffTable(role)
	if err != nil {
		return nil, err
	}
	s, err := scanStaff(r.DB.QueryRow(ctx, `SELECT `+staffColumns(role)+` FROM `+table+` WHERE username=$1`, username))
	if err != nil {
		return nil, notFound(err, role+" not found")
	}
	return s, nil
}

// List returns all records of one role, newest first.
func (r *StaffRepository) List(ctx context.Context, role string) ([]*models.Staff, error) {
	table, err := staffTable(role)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `SELECT `+staffColumns(role)+` FROM `+table+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	staff := []*models.Staff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

func (r *StaffRepository) UpdateProfile(ctx context.Context, s *models.Staff) error {
	table, err := staffTable(s.Role)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `UPDATE `+table+` SET name=$1 WHERE id=$2`, s.Name, s.ID)
	return err
}

func (r *StaffRepository) UpdatePassword(ctx context.Context, role string, id int, hash string) error {
	table, err := staffTable(role)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `UPDATE `+table+` SET password_hash=$1 WHERE id=$2`, hash, id)
	return err
}

// SaveTOTPSecret stores a pending secret; two-factor stays disabled until
// EnableTOTP confirms a code.
func (r *StaffRepository) SaveTOTPSecret(ctx context.Context, adminID int, secret string) error {
	_, err := r.DB.Exec(ctx, `UPDATE admins SET totp_secret=$1, totp_enabled=false WHERE id=$2`, secret, adminID)
	return err
}

func (r *StaffRepository) SetTOTPEnabled(ctx context.Context, adminID int, enabled bool) error {
	if enabled {
		_, err := r.DB.Exec(ctx, `UPDATE admins SET totp_enabled=true WHERE id=$1`, adminID)
		return err
	}
	_, err := r.DB.Exec(ctx, `UPDATE admins SET totp_enabled=false, totp_secret=NULL WHERE id=$1`, adminID)
	return err
}
