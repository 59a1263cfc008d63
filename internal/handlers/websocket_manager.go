package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

const (
	writeDeadline    = 5 * time.Second
	activityQueueLen = 64
)

// ActivityEvent is one entry of the admin activity feed.
type ActivityEvent struct {
	Type      string            `json:"type"`
	Deposit   *entities.Deposit `json:"deposit"`
	UserEmail string            `json:"user_email,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	At        time.Time         `json:"at"`
}

// WebSocketManager tracks connected admin dashboards and broadcasts
// activity events to them. Implements ports.ActivityPublisher. Publishing
// only enqueues; the Start loop performs the network writes, so a stalled
// dashboard never delays the request that produced the event. Slow or
// broken connections are dropped rather than blocking the broadcast.
type WebSocketManager struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	events   chan ActivityEvent

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewWebSocketManager(logger *slog.Logger) *WebSocketManager {
	return &WebSocketManager{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		events:  make(chan ActivityEvent, activityQueueLen),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Start drains the event queue and broadcasts until the context is
// cancelled.
func (m *WebSocketManager) Start(ctx context.Context) {
	m.logger.Info("Starting activity feed broadcaster")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Activity feed broadcaster stopped")
			return
		case event := <-m.events:
			m.broadcast(event)
		}
	}
}

// Upgrade upgrades an HTTP request and registers the connection.
func (m *WebSocketManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()

	return conn, nil
}

// Remove unregisters and closes a connection.
func (m *WebSocketManager) Remove(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	conn.Close()
}

// PublishDepositCreated queues a deposit-created event.
func (m *WebSocketManager) PublishDepositCreated(deposit *entities.Deposit, user *entities.User) {
	m.enqueue(ActivityEvent{
		Type:      "deposit_created",
		Deposit:   deposit,
		UserEmail: user.Email,
		At:        time.Now().UTC(),
	})
}

// PublishDepositCancelled queues a deposit-cancelled event.
func (m *WebSocketManager) PublishDepositCancelled(deposit *entities.Deposit, reason string) {
	m.enqueue(ActivityEvent{
		Type:    "deposit_cancelled",
		Deposit: deposit,
		Reason:  reason,
		At:      time.Now().UTC(),
	})
}

func (m *WebSocketManager) enqueue(event ActivityEvent) {
	select {
	case m.events <- event:
	default:
		m.logger.Error("Activity feed queue full, dropping event", "type", event.Type)
	}
}

func (m *WebSocketManager) broadcast(event ActivityEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteJSON(event); err != nil {
			m.logger.Error("Dropping activity feed subscriber", "error", err)
			delete(m.clients, conn)
			conn.Close()
		}
	}
}
