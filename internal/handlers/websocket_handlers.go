package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// WebSocketHandler serves the admin activity feed. The feed carries the
// same deposit data as the admin API, so the upgrade requires the same
// admin token.
type WebSocketHandler struct {
	logger           *slog.Logger
	websocketManager *WebSocketManager
	auth             *AuthMiddleware
}

func NewWebSocketHandler(logger *slog.Logger, websocketManager *WebSocketManager, auth *AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		logger:           logger,
		websocketManager: websocketManager,
		auth:             auth,
	}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/activity", h.HandleConnection)
}

// feedToken extracts the bearer token. Browser websocket clients cannot set
// the Authorization header, so the token may also arrive as a query param.
func feedToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := feedToken(r)
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	admin, err := h.auth.Authenticate(token)
	if err != nil {
		h.logger.Warn("Rejected activity feed connection", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.websocketManager.Upgrade(w, r)
	if err != nil {
		h.logger.Error("Error upgrading connection", "error", err)
		return
	}

	h.logger.Info("New activity feed connection", "remote", r.RemoteAddr, "admin_id", admin.ID)

	// Keep the connection open; we only ever push, so the read loop just
	// detects disconnection.
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			h.logger.Info("Activity feed connection closed", "remote", r.RemoteAddr)
			h.websocketManager.Remove(conn)
			break
		}
	}
}
