package handlers

import (
	"context"
	"net/http"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/services"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

type FieldHandler struct {
	Service   *services.FieldService
	Approvals ApprovalLogLister
	log       *zap.Logger
}

func NewFieldHandler(s *services.FieldService, approvals ApprovalLogLister, log *zap.Logger) *FieldHandler {
	return &FieldHandler{Service: s, Approvals: approvals, log: log}
}

func (h *FieldHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.FieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	f, err := h.Service.Create(r.Context(), identity(r), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusCreated, f)
}

// List accepts ?status=&mandal_id=&village_id= (staff) or ?status= (farmer)
func (h *FieldHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.FieldFilter{Status: r.URL.Query().Get("status")}
	var err error
	if filter.MandalID, err = queryInt(r, "mandal_id"); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if filter.VillageID, err = queryInt(r, "village_id"); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if filter.FarmerID, err = queryInt(r, "farmer_id"); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	fields, err := h.Service.List(r.Context(), identity(r), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, fields)
}

func (h *FieldHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	f, err := h.Service.Get(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, f)
}

func (h *FieldHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req models.FieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	f, err := h.Service.Update(r.Context(), identity(r), id, &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, f)
}

func (h *FieldHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.Service.Delete(r.Context(), identity(r), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FieldHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Verify)
}

func (h *FieldHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Approve)
}

func (h *FieldHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req models.RejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, apperr.Validation("rejection reason is required"))
		return
	}
	f, err := h.Service.Reject(r.Context(), identity(r), id, req.Reason)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, f)
}

// History lists the approval trail of a field
func (h *FieldHandler) History(w http.ResponseWriter, r *http.Request) {
	approvalHistory(w, r, h.log, h.Approvals, models.EntityField,
		func(ctx context.Context, actor models.Identity, id int) error {
			_, err := h.Service.Get(ctx, actor, id)
			return err
		})
}

func (h *FieldHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor models.Identity, id int) (*models.Field, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	f, err := fn(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, f)
}
