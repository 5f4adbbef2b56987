package handlers

import (
	"net/http"

	"farmfi-backend/internal/models"
	"farmfi-backend/internal/services"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

// TOTPHandler serves admin two-factor setup. Routes are admin-only.
type TOTPHandler struct {
	TOTPService *services.TOTPService
	log         *zap.Logger
}

func NewTOTPHandler(totpService *services.TOTPService, log *zap.Logger) *TOTPHandler {
	return &TOTPHandler{TOTPService: totpService, log: log}
}

// SetupTOTP returns a new secret and QR code; 2FA stays off until enabled
func (h *TOTPHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.TOTPService.GenerateSetup(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *TOTPHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.TOTPService.Enable(r.Context(), identity(r).ID, req.Code); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"totp_enabled": true})
}

func (h *TOTPHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.TOTPService.Disable(r.Context(), identity(r).ID, req.Code); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"totp_enabled": false})
}
