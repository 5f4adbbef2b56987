package handlers

import (
	"context"
	"net/http"

	"farmfi-backend/internal/models"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

const defaultLoginLogLimit = 100

type LoginLogLister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.LoginLog, error)
}

type LoginLogHandler struct {
	Repo LoginLogLister
	log  *zap.Logger
}

func NewLoginLogHandler(repo LoginLogLister, log *zap.Logger) *LoginLogHandler {
	return &LoginLogHandler{Repo: repo, log: log}
}

// ListLoginLogs returns the most recent logins (?limit=, at most 500)
func (h *LoginLogHandler) ListLoginLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if limit == 0 {
		limit = defaultLoginLogLimit
	}
	if limit > 500 {
		limit = 500
	}

	logs, err := h.Repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}
