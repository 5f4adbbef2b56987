package handlers

import (
	"net/http"

	"farmfi-backend/internal/models"
	"farmfi-backend/internal/services"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

// EmployeeHandler lets admins manage employee accounts.
type EmployeeHandler struct {
	Service *services.AuthService
	log     *zap.Logger
}

func NewEmployeeHandler(s *services.AuthService, log *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{Service: s, log: log}
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, list)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	emp, err := h.Service.CreateEmployee(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusCreated, emp)
}
