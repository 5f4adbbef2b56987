package repositories

import (
	"context"

	"farmfi-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LoginLogRepository struct {
	DB *pgxpool.Pool
}

func NewLoginLogRepository(db *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

// CreateLoginLog records a new login event
func (r *LoginLogRepository) CreateLoginLog(ctx context.Context, l *models.LoginLog) error {
	query := `
		INSERT INTO login_logs (principal_role, principal_id, login_time, ip_address, user_agent)
		VALUES ($1, $2, NOW(), $3, $4)
		RETURNING id, login_time
	`
	return r.DB.QueryRow(ctx, query, l.PrincipalRole, l.PrincipalID, l.IPAddress, l.UserAgent).
		Scan(&l.ID, &l.LoginTime)
}

// ListRecent retrieves the latest login events across all roles
func (r *LoginLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, principal_role, principal_id, login_time, COALESCE(ip_address, ''), COALESCE(user_agent, '')
		FROM login_logs
		ORDER BY login_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.LoginLog{}
	for rows.Next() {
		var l models.LoginLog
		if err := rows.Scan(&l.ID, &l.PrincipalRole, &l.PrincipalID, &l.LoginTime, &l.IPAddress, &l.UserAgent); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
