package repositories

import (
	"context"
	"fmt"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CropDataRepository struct {
	DB *pgxpool.Pool
}

func NewCropDataRepository(db *pgxpool.Pool) *CropDataRepository {
	return &CropDataRepository{DB: db}
}

const cropDataColumns = `cd.id, cd.field_id, cd.crop_id, cd.crop_year, cd.season, cd.area, cd.production, cd.yield,
	cd.verified, cd.status, COALESCE(cd.rejection_reason, ''), cd.created_by_role, cd.created_at, cd.updated_at,
	COALESCE(c.name, ''), COALESCE(f.field_name, ''), COALESCE(f.farmer_id, 0)`

const cropDataFrom = `FROM crop_data cd
	LEFT JOIN crops c ON c.id = cd.crop_id
	LEFT JOIN fields f ON f.id = cd.field_id`

func scanCropData(row scanner) (*models.CropData, error) {
	var c models.CropData
	err := row.Scan(&c.ID, &c.FieldID, &c.CropID, &c.CropYear, &c.Season, &c.Area, &c.Production, &c.Yield,
		&c.Verified, &c.Status, &c.RejectionReason, &c.CreatedByRole, &c.CreatedAt, &c.UpdatedAt,
		&c.CropName, &c.FieldName, &c.FarmerID)
	return &c, err
}

func collectCropData(rows pgx.Rows) ([]*models.CropData, error) {
	defer rows.Close()
	crops := []*models.CropData{}
	for rows.Next() {
		c, err := scanCropData(rows)
		if err != nil {
			return nil, err
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}

// activeCrops returns the records occupying land on a field in a year:
// everything not rejected, minus excludeID (the record being updated).
func activeCrops(ctx context.Context, q querier, fieldID, cropYear, excludeID int) ([]*models.CropData, error) {
	rows, err := q.Query(ctx,
		`SELECT `+cropDataColumns+` `+cropDataFrom+`
         WHERE cd.field_id=$1 AND cd.crop_year=$2 AND cd.status <> 'rejected' AND cd.id <> $3
         ORDER BY cd.id`, fieldID, cropYear, excludeID)
	if err != nil {
		return nil, err
	}
	return collectCropData(rows)
}

// ActiveForField is the unlocked read used by the land-info view.
func (r *CropDataRepository) ActiveForField(ctx context.Context, fieldID, cropYear int) ([]*models.CropData, error) {
	return activeCrops(ctx, r.DB, fieldID, cropYear, 0)
}

// CreateChecked inserts c after check approves it. The field row stays
// locked from the read of the active crops until commit, so two concurrent
// writes on one field are serialized and cannot both pass the check.
func (r *CropDataRepository) CreateChecked(ctx context.Context, c *models.CropData, check models.LandCheck) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	field, err := lockField(ctx, tx, c.FieldID)
	if err != nil {
		return err
	}
	active, err := activeCrops(ctx, tx, c.FieldID, c.CropYear, 0)
	if err != nil {
		return err
	}
	if err := check(field, active); err != nil {
		return err
	}

	c.Status = models.StatusPending
	c.Verified = false
	err = tx.QueryRow(ctx,
		`INSERT INTO crop_data(field_id, crop_id, crop_year, season, area, production, yield, verified, status, created_by_role)
         VALUES($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
         RETURNING id, created_at, updated_at`,
		c.FieldID, c.CropID, c.CropYear, c.Season, c.Area, c.Production, c.Yield, c.Status, c.CreatedByRole,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation(fmt.Sprintf("a %s crop already exists on this field for %d", c.Season, c.CropYear))
	}
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown crop")
	}
	if err != nil {
		return err
	}

	c.FieldName = field.FieldName
	c.FarmerID = field.FarmerID
	return tx.Commit(ctx)
}

// UpdateChecked rewrites an unverified record under the same field lock as
// CreateChecked. The record itself is excluded from the active set passed to
// check. A rejected record returns to pending.
func (r *CropDataRepository) UpdateChecked(ctx context.Context, c *models.CropData, check models.LandCheck) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	field, err := lockField(ctx, tx, c.FieldID)
	if err != nil {
		return err
	}

	var verified bool
	err = tx.QueryRow(ctx, `SELECT verified FROM crop_data WHERE id=$1 AND field_id=$2 FOR UPDATE`, c.ID, c.FieldID).
		Scan(&verified)
	if err != nil {
		return notFound(err, "crop record not found")
	}
	if verified {
		return apperr.Forbidden("verified crop records cannot be modified")
	}

	active, err := activeCrops(ctx, tx, c.FieldID, c.CropYear, c.ID)
	if err != nil {
		return err
	}
	if err := check(field, active); err != nil {
		return err
	}

	err = tx.QueryRow(ctx,
		`UPDATE crop_data
         SET crop_id=$1, crop_year=$2, season=$3, area=$4, production=$5, yield=$6,
             status = CASE WHEN status = 'rejected' THEN 'pending' ELSE status END,
             rejection_reason = NULL,
             updated_at = NOW()
         WHERE id=$7
         RETURNING status, updated_at`,
		c.CropID, c.CropYear, c.Season, c.Area, c.Production, c.Yield, c.ID,
	).Scan(&c.Status, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation(fmt.Sprintf("a %s crop already exists on this field for %d", c.Season, c.CropYear))
	}
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown crop")
	}
	if err != nil {
		return err
	}

	c.RejectionReason = ""
	c.FieldName = field.FieldName
	c.FarmerID = field.FarmerID
	return tx.Commit(ctx)
}

func (r *CropDataRepository) Get(ctx context.Context, id int) (*models.CropData, error) {
	c, err := scanCropData(r.DB.QueryRow(ctx, `SELECT `+cropDataColumns+` `+cropDataFrom+` WHERE cd.id=$1`, id))
	if err != nil {
		return nil, notFound(err, "crop record not found")
	}
	return c, nil
}

func (r *CropDataRepository) List(ctx context.Context, filter models.CropDataFilter) ([]*models.CropData, error) {
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
	if filter.FieldID > 0 {
		add("cd.field_id=$%d", filter.FieldID)
	}
	if filter.CropYear > 0 {
		add("cd.crop_year=$%d", filter.CropYear)
	}
	if filter.Status != "" {
		add("cd.status=$%d", filter.Status)
	}

	query := `SELECT ` + cropDataColumns + ` ` + cropDataFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY cd.crop_year DESC, cd.created_at DESC, cd.id DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectCropData(rows)
}

// CropIDByName resolves a catalog name case-insensitively.
func (r *CropDataRepository) CropIDByName(ctx context.Context, name string) (int, error) {
	var id int
	err := r.DB.QueryRow(ctx, `SELECT id FROM crops WHERE LOWER(name)=LOWER($1)`, strings.TrimSpace(name)).Scan(&id)
	if err != nil {
		return 0, notFound(err, fmt.Sprintf("unknown crop %q", name))
	}
	return id, nil
}

func (r *CropDataRepository) CropExists(ctx context.Context, id int) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM crops WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func (r *CropDataRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM crop_data WHERE id=$1 AND verified = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("crop record not found or already verified")
	}
	return nil
}

// Transition is the crop counterpart of FieldRepository.Transition.
func (r *CropDataRepository) Transition(ctx context.Context, id int, from string, change models.StatusChange, log *models.ApprovalLog) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE crop_data
         SET status=$1, verified=$2, rejection_reason=$3, updated_at=NOW()
         WHERE id=$4 AND status=$5`,
		change.Status, change.Verified, nullString(change.Reason), id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("crop record status changed, reload and retry")
	}

	if err := insertApprovalLog(ctx, tx, log); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
