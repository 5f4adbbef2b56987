package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"farmfi-backend/internal/database"
	"farmfi-backend/internal/landuse"
	"farmfi-backend/internal/models"
	"farmfi-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testPool connects to DATABASE_URL and applies the embedded migrations.
// Tests that need a real Postgres skip when it is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, database.NewMigratorWithFS(pool, migrations.FS, ".", zap.NewNop()).RunMigrations(ctx))
	return pool
}

func insertTestField(t *testing.T, pool *pgxpool.Pool, area float64) *models.Field {
	t.Helper()
	ctx := context.Background()

	var mandalID, villageID int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT mandal_id, id FROM villages ORDER BY id LIMIT 1`).Scan(&mandalID, &villageID))

	var farmerID int
	phone := fmt.Sprintf("9%09d", time.Now().UnixNano()%1_000_000_000)
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO farmers(name, phone, password_hash, mandal_id, village_id)
         VALUES('Concurrency Farmer', $1, 'x', $2, $3) RETURNING id`,
		phone, mandalID, villageID).Scan(&farmerID))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM farmers WHERE id=$1`, farmerID)
	})

	f := &models.Field{
		FarmerID:  farmerID,
		FieldName: "North plot",
		Area:      area,
		Latitude:  15.8,
		Longitude: 78.0,
		MandalID:  mandalID,
		VillageID: villageID,
	}
	require.NoError(t, NewFieldRepository(pool).Create(ctx, f))
	return f
}

// fitsRemaining approves a candidate only when it fits in the unplanted area.
func fitsRemaining(area float64) models.LandCheck {
	return func(field *models.Field, active []*models.CropData) error {
		occupied := 0.0
		for _, c := range active {
			occupied += c.Area
		}
		if occupied+area > field.Area+1e-9 {
			return fmt.Errorf("no room: %.2f planted of %.2f", occupied, field.Area)
		}
		return nil
	}
}

func TestCropDataRepository_ConcurrentCreateCheckedSerializesOnFieldLock(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	field := insertTestField(t, pool, 10)

	var cropID int
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM crops ORDER BY id LIMIT 1`).Scan(&cropID))

	repo := NewCropDataRepository(pool)
	seasons := []string{string(landuse.Kharif), string(landuse.Rabi)}
	errs := make([]error, len(seasons))

	var start, wg sync.WaitGroup
	start.Add(1)
	for i, season := range seasons {
		wg.Add(1)
		go func(i int, season string) {
			defer wg.Done()
			start.Wait()
			c := &models.CropData{
				FieldID:       field.ID,
				CropID:        cropID,
				CropYear:      2024,
				Season:        season,
				Area:          6,
				CreatedByRole: models.RoleFarmer,
			}
			errs[i] = repo.CreateChecked(ctx, c, fitsRemaining(c.Area))
		}(i, season)
	}
	start.Done()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "errors: %v", errs)

	active, err := repo.ActiveForField(ctx, field.ID, 2024)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.InDelta(t, 6, active[0].Area, 1e-9)
}
