package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	gonanoid "github.com/jaevor/go-nanoid"

	"github.com/Bisw0319/HippoChat/internal/relay"
)

// ConnCounter reports how many client connections are currently open
type ConnCounter interface {
	Count() int
}

// StatusAPI serves the read-only observability endpoints. It never
// mutates relay state.
type StatusAPI struct {
	Relay *relay.Relay
	Conns ConnCounter
}

type statusResponse struct {
	Rooms            []relay.RoomStatus `json:"rooms"`
	TotalRooms       int                `json:"totalRooms"`
	TotalConnections int                `json:"totalConnections"`
	Timestamp        int64              `json:"timestamp"`
}

// Status lists every live room plus aggregate counts
func (a *StatusAPI) Status(w http.ResponseWriter, r *http.Request) {
	rooms := a.Relay.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{
		Rooms:            rooms,
		TotalRooms:       len(rooms),
		TotalConnections: a.Conns.Count(),
		Timestamp:        time.Now().UnixMilli(),
	})
}

// Room codes skip look-alike characters (0/O, 1/I/L) so they survive
// being read aloud.
var newRoomCode = mustCodeGenerator()

func mustCodeGenerator() func() string {
	g, err := gonanoid.CustomASCII("23456789ABCDEFGHJKLMNPQRSTUVWXYZ", 8)
	if err != nil {
		panic(err)
	}
	return g
}

// RoomCode hands out a fresh collision-resistant room id. Nothing is
// reserved server-side; the room exists once someone creates it.
func (a *StatusAPI) RoomCode(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"roomCode": newRoomCode()})
}
