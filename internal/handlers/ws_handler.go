package handlers

import (
	"context"
	"net/http"
	"strings"

	"farmfi-backend/internal/middleware"
	"farmfi-backend/internal/notify"
	"farmfi-backend/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler upgrades authenticated dashboards onto the notification hub.
// Browsers cannot set headers on a websocket handshake so the token travels
// in the query string.
type WSHandler struct {
	hub      *notify.Hub
	auth     *middleware.AuthMiddleware
	upgrader websocket.Upgrader
	// base outlives single requests and is cancelled on shutdown
	base context.Context
	log  *zap.Logger
}

func NewWSHandler(base context.Context, hub *notify.Hub, auth *middleware.AuthMiddleware, allowedOrigins []string, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		base: base,
		log:  log,
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if parts := strings.Fields(r.Header.Get("Authorization")); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		utils.Error(w, http.StatusUnauthorized, "token is required", nil)
		return
	}
	id, err := h.auth.Identify(token)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid or expired token", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	h.log.Debug("websocket connected", zap.String("role", id.Role), zap.Int("user_id", id.ID))
	h.hub.ServeConn(h.base, conn, id)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
