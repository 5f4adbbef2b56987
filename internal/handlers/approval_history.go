package handlers

import (
	"context"
	"net/http"

	"farmfi-backend/internal/models"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

// ApprovalLogLister is satisfied by repositories.ApprovalLogRepository.
type ApprovalLogLister interface {
	ListForEntity(ctx context.Context, entityType string, entityID int) ([]*models.ApprovalLog, error)
}

// approvalHistory writes the audit trail of a record after visible confirms
// the caller may see it.
func approvalHistory(w http.ResponseWriter, r *http.Request, log *zap.Logger, lister ApprovalLogLister,
	entity string, visible func(ctx context.Context, actor models.Identity, id int) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	if err := visible(r.Context(), identity(r), id); err != nil {
		writeError(w, r, log, err)
		return
	}
	logs, err := lister.ListForEntity(r.Context(), entity, id)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}
