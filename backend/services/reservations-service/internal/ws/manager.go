package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/events"
)

// Update is the message pushed to subscribers after every committed change.
type Update struct {
	Type           events.Type `json:"type"`
	ResourceID     uuid.UUID   `json:"resource_id"`
	TotalSlots     int         `json:"total_slots"`
	AvailableSlots int         `json:"available_slots"`
	At             time.Time   `json:"at"`
}

// Manager tracks subscriber connections.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

// NewManager builds connection manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Add registers new connection.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
}

// Remove removes connection.
func (m *Manager) Remove(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, conn.ID())
}

// Count returns the number of live subscribers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Notify pushes the resource's counters to every interested subscriber.
func (m *Manager) Notify(_ context.Context, ev events.Event) {
	msg, err := json.Marshal(Update{
		Type:           ev.Type,
		ResourceID:     ev.ResourceID,
		TotalSlots:     ev.TotalSlots,
		AvailableSlots: ev.AvailableSlots,
		At:             ev.OccurredAt,
	})
	if err != nil {
		m.logger.Warn("encode availability update", zap.Error(err))
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.Wants(ev.ResourceID) {
			conn.Send(msg)
		}
	}
}
