package repositories

import (
	"context"

	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LocationRepository struct {
	DB *pgxpool.Pool
}

func NewLocationRepository(db *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{DB: db}
}

// ListMandals returns every mandal with its villages, ordered by name.
func (r *LocationRepository) ListMandals(ctx context.Context) ([]models.Mandal, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT m.id, m.name, v.id, v.name
         FROM mandals m
         LEFT JOIN villages v ON v.mandal_id = m.id
         ORDER BY m.name, v.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mandals := []models.Mandal{}
	index := map[int]int{}
	for rows.Next() {
		var (
			mandalID    int
			mandalName  string
			villageID   *int
			villageName *string
		)
		if err := rows.Scan(&mandalID, &mandalName, &villageID, &villageName); err != nil {
			return nil, err
		}
		i, ok := index[mandalID]
		if !ok {
			mandals = append(mandals, models.Mandal{ID: mandalID, Name: mandalName, Villages: []models.Village{}})
			i = len(mandals) - 1
			index[mandalID] = i
		}
		if villageID != nil {
			mandals[i].Villages = append(mandals[i].Villages, models.Village{
				ID: *villageID, Name: *villageName, MandalID: mandalID,
			})
		}
	}
	return mandals, rows.Err()
}

// VillageInMandal reports whether villageID belongs to mandalID.
func (r *LocationRepository) VillageInMandal(ctx context.Context, mandalID, villageID int) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM villages WHERE id=$1 AND mandal_id=$2)`, villageID, mandalID).Scan(&ok)
	return ok, err
}

func (r *LocationRepository) ListCrops(ctx context.Context) ([]models.Crop, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM crops ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	crops := []models.Crop{}
	for rows.Next() {
		var c models.Crop
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}
