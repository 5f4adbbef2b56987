package handlers

import (
	"net/http"

	"farmfi-backend/internal/middleware"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/services"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	Service         *services.AuthService
	LocationService *services.LocationService
	log             *zap.Logger
}

func NewAuthHandler(s *services.AuthService, locations *services.LocationService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Service: s, LocationService: locations, log: log}
}

// Register handles farmer registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// Login authenticates any role and records the login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp, err := h.Service.Login(r.Context(), &req, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Locations lists mandals with their villages (public)
func (h *AuthHandler) Locations(w http.ResponseWriter, r *http.Request) {
	mandals, err := h.LocationService.Mandals(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, mandals)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Profile(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	p, err := h.Service.UpdateProfile(r.Context(), identity(r), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), identity(r), &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
