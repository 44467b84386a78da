package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"greencharge/backend/services/reservations-service/internal/events"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/availability" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestServer(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	manager := NewManager(nil)
	server := NewServer(manager, time.Second, nil, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/availability", server.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return manager, srv
}

func TestSubscriberReceivesUpdates(t *testing.T) {
	manager, srv := newTestServer(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return manager.Count() == 1 }, time.Second, 10*time.Millisecond)

	resourceID := uuid.New()
	manager.Notify(context.Background(), events.Event{
		Type:           events.BookingCreated,
		ResourceID:     resourceID,
		TotalSlots:     4,
		AvailableSlots: 3,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update Update
	require.NoError(t, json.Unmarshal(data, &update))
	require.Equal(t, resourceID, update.ResourceID)
	require.Equal(t, 3, update.AvailableSlots)
	require.Equal(t, events.BookingCreated, update.Type)
}

func TestResourceFilter(t *testing.T) {
	manager, srv := newTestServer(t)
	watched := uuid.New()
	conn := dial(t, srv, "?resource_id="+watched.String())
	require.Eventually(t, func() bool { return manager.Count() == 1 }, time.Second, 10*time.Millisecond)

	manager.Notify(context.Background(), events.Event{Type: events.BookingCreated, ResourceID: uuid.New(), AvailableSlots: 9})
	manager.Notify(context.Background(), events.Event{Type: events.BookingCancelled, ResourceID: watched, AvailableSlots: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var update Update
	require.NoError(t, json.Unmarshal(data, &update))
	require.Equal(t, watched, update.ResourceID)
	require.Equal(t, 1, update.AvailableSlots)
}

func TestInvalidResourceIDRejected(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws/availability?resource_id=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDisconnectRemovesSubscriber(t *testing.T) {
	manager, srv := newTestServer(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return manager.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
