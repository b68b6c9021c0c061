package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastSlotWithoutSubscribers(t *testing.T) {
	hub := NewHub()

	s := &models.TimeSlot{DoctorID: 7, StartTime: "08:00", MaxCapacity: 5, CurrentBookings: 1}
	s.ID = 12

	assert.NotPanics(t, func() {
		hub.BroadcastSlot(s)
		hub.BroadcastSlot(nil)
	})
}

func TestSlotFeedDeliversUpdates(t *testing.T) {
	hub := NewHub()
	router := mux.NewRouter()
	NewWebSocketHandler(hub).RegisterRoutes(router)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/slots?doctor_id=7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	s := &models.TimeSlot{
		DoctorID:        7,
		Date:            time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:       "08:00",
		EndTime:         "08:30",
		IsAvailable:     true,
		MaxCapacity:     5,
		CurrentBookings: 3,
	}
	s.ID = 12

	// The subscription lands right after the handshake; rebroadcast until the
	// client sees a message.
	var raw []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.BroadcastSlot(s)
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		if _, raw, err = conn.ReadMessage(); err == nil {
			break
		}
	}
	require.NoError(t, err)

	var update map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &update))
	assert.Equal(t, "slot_update", update["type"])
	assert.Equal(t, float64(12), update["slot_id"])
	assert.Equal(t, float64(7), update["doctor_id"])
	assert.Equal(t, "2026-03-10", update["date"])
	assert.Equal(t, float64(3), update["current_bookings"])
	assert.Equal(t, float64(2), update["remaining_capacity"])
}

func TestSlotFeedScopedToDoctor(t *testing.T) {
	hub := NewHub()
	router := mux.NewRouter()
	NewWebSocketHandler(hub).RegisterRoutes(router)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/slots?doctor_id=7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	other := &models.TimeSlot{DoctorID: 8, StartTime: "08:00", MaxCapacity: 5}
	other.ID = 13

	// Give the handler a moment to register the subscription.
	time.Sleep(100 * time.Millisecond)
	hub.BroadcastSlot(other)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "a client watching doctor 7 must not see doctor 8's slots")
}

func TestSlotFeedRequiresDoctorID(t *testing.T) {
	hub := NewHub()
	router := mux.NewRouter()
	NewWebSocketHandler(hub).RegisterRoutes(router)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/slots"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, 400, resp.StatusCode)
		resp.Body.Close()
	}
}
