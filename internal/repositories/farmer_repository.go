package repositories

import (
	"context"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FarmerRepository struct {
	DB *pgxpool.Pool
}

func NewFarmerRepository(db *pgxpool.Pool) *FarmerRepository {
	return &FarmerRepository{DB: db}
}

const farmerColumns = `f.id, f.name, f.phone, f.password_hash, f.mandal_id, f.village_id, f.address, f.role, f.created_at,
	COALESCE(m.name, ''), COALESCE(v.name, '')`

const farmerFrom = `FROM farmers f
	LEFT JOIN mandals m ON m.id = f.mandal_id
	LEFT JOIN villages v ON v.id = f.village_id`

func scanFarmer(row scanner) (*models.Farmer, error) {
	var f models.Farmer
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.PasswordHash, &f.MandalID, &f.VillageID, &f.Address, &f.Role,
		&f.CreatedAt, &f.MandalName, &f.VillageName)
	return &f, err
}

func (r *FarmerRepository) Create(ctx context.Context, f *models.Farmer) error {
	f.Role = models.RoleFarmer
	err := r.DB.QueryRow(ctx,
		`INSERT INTO farmers(name, phone, password_hash, mandal_id, village_id, address, role)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at`,
		f.Name, f.Phone, f.PasswordHash, f.MandalID, f.VillageID, f.Address, f.Role,
	).Scan(&f.ID, &f.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation("phone number already registered")
	}
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown mandal or village")
	}
	return err
}

func (r *FarmerRepository) Get(ctx context.Context, id int) (*models.Farmer, error) {
	f, err := scanFarmer(r.DB.QueryRow(ctx, `SELECT `+farmerColumns+` `+farmerFrom+` WHERE f.id=$1`, id))
	if err != nil {
		return nil, notFound(err, "farmer not found")
	}
	return f, nil
}

func (r *FarmerRepository) GetByPhone(ctx context.Context, phone string) (*models.Farmer, error) {
	f, err := scanFarmer(r.DB.QueryRow(ctx, `SELECT `+farmerColumns+` `+farmerFrom+` WHERE f.phone=$1`, phone))
	if err != nil {
		return nil, notFound(err, "farmer not found")
	}
	return f, nil
}

func (r *FarmerRepository) UpdateProfile(ctx context.Context, f *models.Farmer) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE farmers SET name=$1, address=$2, mandal_id=$3, village_id=$4 WHERE id=$5`,
		f.Name, f.Address, f.MandalID, f.VillageID, f.ID)
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown mandal or village")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("farmer not found")
	}
	return nil
}

func (r *FarmerRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	_, err := r.DB.Exec(ctx, `UPDATE farmers SET password_hash=$1 WHERE id=$2`, hash, id)
	return err
}
