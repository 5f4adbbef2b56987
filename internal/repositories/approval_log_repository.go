package repositories

import (
	"context"

	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ApprovalLogRepository struct {
	DB *pgxpool.Pool
}

func NewApprovalLogRepository(db *pgxpool.Pool) *ApprovalLogRepository {
	return &ApprovalLogRepository{DB: db}
}

// insertApprovalLog is shared by the field and crop transitions so the log
// row commits together with the status change.
func insertApprovalLog(ctx context.Context, q querier, l *models.ApprovalLog) error {
	return q.QueryRow(ctx,
		`INSERT INTO approval_logs(entity_type, entity_id, action, from_status, to_status, actor_role, actor_id, reason)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, created_at`,
		l.EntityType, l.EntityID, l.Action, l.FromStatus, l.ToStatus, l.ActorRole, l.ActorID, nullString(l.Reason),
	).Scan(&l.ID, &l.CreatedAt)
}

// ListForEntity returns the audit trail of one record, oldest first.
func (r *ApprovalLogRepository) ListForEntity(ctx context.Context, entityType string, entityID int) ([]*models.ApprovalLog, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, entity_type, entity_id, action, from_status, to_status, actor_role, actor_id, COALESCE(reason, ''), created_at
         FROM approval_logs
         WHERE entity_type=$1 AND entity_id=$2
         ORDER BY created_at, id`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.ApprovalLog{}
	for rows.Next() {
		var l models.ApprovalLog
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action, &l.FromStatus, &l.ToStatus,
			&l.ActorRole, &l.ActorID, &l.Reason, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
