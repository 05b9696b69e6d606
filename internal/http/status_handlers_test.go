package httpx

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"regexp"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bisw0319/HippoChat/internal/relay"
)

type fakeCounter int

func (f fakeCounter) Count() int { return int(f) }

// nopPeer seeds relay state without a real socket
type nopPeer string

func (p nopPeer) ID() string          { return string(p) }
func (p nopPeer) TrySend([]byte) bool { return true }
func (p nopPeer) Open() bool          { return true }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatus(t *testing.T) {
	rl := relay.New(testLogger())
	rl.HandleMessage(nopPeer("A"), []byte(`{"type":"create_room","roomId":"R1","username":"alice"}`))
	rl.HandleMessage(nopPeer("B"), []byte(`{"type":"create_room","roomId":"R2","username":"bob"}`))
	rl.HandleMessage(nopPeer("C"), []byte(`{"type":"join_room","roomId":"R2","username":"carol"}`))
	api := &StatusAPI{Relay: rl, Conns: fakeCounter(3)}

	rec := httptest.NewRecorder()
	api.Status(rec, httptest.NewRequest("GET", "/api/status", nil))

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TotalRooms)
	assert.Equal(t, 3, got.TotalConnections)
	assert.Greater(t, got.Timestamp, int64(0))
	require.Len(t, got.Rooms, 2)
	assert.Equal(t, relay.RoomStatus{RoomID: "R1", ParticipantCount: 1, Creator: "alice"}, got.Rooms[0])
	assert.Equal(t, relay.RoomStatus{RoomID: "R2", ParticipantCount: 2, Creator: "bob"}, got.Rooms[1])
}

func TestStatusEmpty(t *testing.T) {
	api := &StatusAPI{Relay: relay.New(testLogger()), Conns: fakeCounter(0)}

	rec := httptest.NewRecorder()
	api.Status(rec, httptest.NewRequest("GET", "/api/status", nil))

	var got struct {
		Rooms []relay.RoomStatus `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotNil(t, got.Rooms, "rooms must encode as [] when empty, not null")
	assert.Empty(t, got.Rooms)
}

func TestRoomCode(t *testing.T) {
	api := &StatusAPI{Relay: relay.New(testLogger()), Conns: fakeCounter(0)}
	codeShape := regexp.MustCompile(`^[23456789ABCDEFGHJKLMNPQRSTUVWXYZ]{8}$`)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		api.RoomCode(rec, httptest.NewRequest("GET", "/api/room-code", nil))
		require.Equal(t, 200, rec.Code)

		var got map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		code := got["roomCode"]
		assert.Regexp(t, codeShape, code)
		assert.False(t, seen[code], "codes should not repeat")
		seen[code] = true
	}
}
