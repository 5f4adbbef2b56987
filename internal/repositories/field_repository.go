package repositories

import (
	"context"
	"fmt"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FieldRepository struct {
	DB *pgxpool.Pool
}

func NewFieldRepository(db *pgxpool.Pool) *FieldRepository {
	return &FieldRepository{DB: db}
}

const fieldColumns = `f.id, f.farmer_id, f.field_name, f.area, f.latitude, f.longitude, f.mandal_id, f.village_id,
	f.status, f.verified, COALESCE(f.rejection_reason, ''), f.created_at, f.updated_at, f.approval_date,
	COALESCE(fr.name, ''), COALESCE(m.name, ''), COALESCE(v.name, '')`

const fieldFrom = `FROM fields f
	LEFT JOIN farmers fr ON fr.id = f.farmer_id
	LEFT JOIN mandals m ON m.id = f.mandal_id
	LEFT JOIN villages v ON v.id = f.village_id`

func scanField(row scanner) (*models.Field, error) {
	var f models.Field
	err := row.Scan(&f.ID, &f.FarmerID, &f.FieldName, &f.Area, &f.Latitude, &f.Longitude, &f.MandalID, &f.VillageID,
		&f.Status, &f.Verified, &f.RejectionReason, &f.CreatedAt, &f.UpdatedAt, &f.ApprovalDate,
		&f.FarmerName, &f.MandalName, &f.VillageName)
	return &f, err
}

// lockField loads the bare field row with FOR UPDATE. Joined names are left
// empty because row locks cannot cover the nullable side of an outer join.
func lockField(ctx context.Context, q querier, id int) (*models.Field, error) {
	var f models.Field
	err := q.QueryRow(ctx,
		`SELECT id, farmer_id, field_name, area, latitude, longitude, mandal_id, village_id,
		        status, verified, COALESCE(rejection_reason, ''), created_at, updated_at, approval_date
         FROM fields WHERE id=$1 FOR UPDATE`, id,
	).Scan(&f.ID, &f.FarmerID, &f.FieldName, &f.Area, &f.Latitude, &f.Longitude, &f.MandalID, &f.VillageID,
		&f.Status, &f.Verified, &f.RejectionReason, &f.CreatedAt, &f.UpdatedAt, &f.ApprovalDate)
	if err != nil {
		return nil, notFound(err, "field not found")
	}
	return &f, nil
}

func (r *FieldRepository) Create(ctx context.Context, f *models.Field) error {
	f.Status = models.StatusPending
	f.Verified = false
	err := r.DB.QueryRow(ctx,
		`INSERT INTO fields(farmer_id, field_name, area, latitude, longitude, mandal_id, village_id, status, verified)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, false)
         RETURNING id, created_at, updated_at`,
		f.FarmerID, f.FieldName, f.Area, f.Latitude, f.Longitude, f.MandalID, f.VillageID, f.Status,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown mandal or village")
	}
	return err
}

func (r *FieldRepository) Get(ctx context.Context, id int) (*models.Field, error) {
	f, err := scanField(r.DB.QueryRow(ctx, `SELECT `+fieldColumns+` `+fieldFrom+` WHERE f.id=$1`, id))
	if err != nil {
		return nil, notFound(err, "field not found")
	}
	return f, nil
}

// List applies the non-zero members of filter, newest first.
func (r *FieldRepository) List(ctx context.Context, filter models.FieldFilter) ([]*models.Field, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.FarmerID > 0 {
		add("f.farmer_id=$%d", filter.FarmerID)
	}
	if filter.Status != "" {
		add("f.status=$%d", filter.Status)
	}
	if filter.MandalID > 0 {
		add("f.mandal_id=$%d", filter.MandalID)
	}
	if filter.VillageID > 0 {
		add("f.village_id=$%d", filter.VillageID)
	}

	query := `SELECT ` + fieldColumns + ` ` + fieldFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY f.created_at DESC, f.id DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := []*models.Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// Update rewrites the editable columns of an unverified field. The field
// row is locked while check sees the planted area per crop year, so a crop
// write cannot slip in between the check and the new area. A rejected
// field goes back to pending so it re-enters the review queue.
func (r *FieldRepository) Update(ctx context.Context, f *models.Field, check models.AreaCheck) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockField(ctx, tx, f.ID)
	if err != nil {
		return err
	}
	if current.Verified {
		return apperr.NotFound("field not found or already verified")
	}

	occupied, err := occupiedByYear(ctx, tx, f.ID)
	if err != nil {
		return err
	}
	if err := check(current, occupied); err != nil {
		return err
	}

	err = tx.QueryRow(ctx,
		`UPDATE fields
         SET field_name=$1, area=$2, latitude=$3, longitude=$4, mandal_id=$5, village_id=$6,
             status = CASE WHEN status = 'rejected' THEN 'pending' ELSE status END,
             rejection_reason = NULL,
             updated_at = NOW()
         WHERE id=$7 AND verified = false
         RETURNING status, updated_at`,
		f.FieldName, f.Area, f.Latitude, f.Longitude, f.MandalID, f.VillageID, f.ID,
	).Scan(&f.Status, &f.UpdatedAt)
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown mandal or village")
	}
	if err != nil {
		return notFound(err, "field not found or already verified")
	}
	f.RejectionReason = ""
	return tx.Commit(ctx)
}

// occupiedByYear sums the active crop area on a field for every crop year.
func occupiedByYear(ctx context.Context, q querier, fieldID int) (map[int]float64, error) {
	rows, err := q.Query(ctx,
		`SELECT crop_year, SUM(area) FROM crop_data
         WHERE field_id=$1 AND status <> 'rejected'
         GROUP BY crop_year`, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]float64{}
	for rows.Next() {
		var year int
		var sum float64
		if err := rows.Scan(&year, &sum); err != nil {
			return nil, err
		}
		out[year] = sum
	}
	return out, rows.Err()
}

func (r *FieldRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM fields WHERE id=$1 AND verified = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("field not found or already verified")
	}
	return nil
}

// Transition moves a field from one status to another and writes the audit
// row in the same transaction. It fails with Conflict if the status changed
// since the caller read it.
func (r *FieldRepository) Transition(ctx context.Context, id int, from string, change models.StatusChange, log *models.ApprovalLog) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE fields
         SET status=$1, verified=$2, rejection_reason=$3,
             approval_date = CASE WHEN $4 THEN NOW() ELSE approval_date END,
             updated_at = NOW()
         WHERE id=$5 AND status=$6`,
		change.Status, change.Verified, nullString(change.Reason), change.Approved, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("field status changed, reload and retry")
	}

	if err := insertApprovalLog(ctx, tx, log); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
