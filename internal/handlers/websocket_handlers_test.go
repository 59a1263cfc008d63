package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

func newActivityFeedServer(t *testing.T) (*httptest.Server, *WebSocketManager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewWebSocketManager(logger)
	auth := NewAuthMiddleware(logger, testSecret)
	handler := NewWebSocketHandler(logger, manager, auth)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go manager.Start(ctx)

	return server, manager
}

func feedURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/activity"
}

// The feed carries deposit amounts and user emails, so it must refuse the
// upgrade without a valid admin token.
func TestActivityFeedRejectsUnauthenticated(t *testing.T) {
	server, _ := newActivityFeedServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(feedURL(server), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestActivityFeedRejectsNonAdminToken(t *testing.T) {
	server, _ := newActivityFeedServer(t)

	token := signToken(t, "1", "user@example.com", "user", testSecret)
	conn, resp, err := websocket.DefaultDialer.Dial(feedURL(server)+"?token="+token, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestActivityFeedDeliversEventsToAdmin(t *testing.T) {
	server, manager := newActivityFeedServer(t)

	token := signToken(t, "1", "admin@example.com", "admin", testSecret)
	conn, _, err := websocket.DefaultDialer.Dial(feedURL(server)+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server registers the connection just after the handshake; wait
	// for it before publishing.
	require.Eventually(t, func() bool {
		manager.mu.Lock()
		defer manager.mu.Unlock()
		return len(manager.clients) == 1
	}, time.Second, 10*time.Millisecond)

	deposit := &entities.Deposit{ID: 11, UserID: 7, Amount: decimal.RequireFromString("100.00")}
	user := &entities.User{ID: 7, Email: "alice@example.com"}
	manager.PublishDepositCreated(deposit, user)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var event ActivityEvent
	require.NoError(t, conn.ReadJSON(&event))

	require.Equal(t, "deposit_created", event.Type)
	require.Equal(t, "alice@example.com", event.UserEmail)
	require.Equal(t, int64(11), event.Deposit.ID)
}

func TestActivityFeedAcceptsBearerHeader(t *testing.T) {
	server, _ := newActivityFeedServer(t)

	token := signToken(t, "1", "admin@example.com", "admin", testSecret)
	header := http.Header{"Authorization": []string{"Bearer " + token}}

	conn, _, err := websocket.DefaultDialer.Dial(feedURL(server), header)
	require.NoError(t, err)
	conn.Close()
}