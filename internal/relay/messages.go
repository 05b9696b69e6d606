package relay

import (
	"encoding/json"
	"strings"
	"time"
)

// Client → server message kinds. chat_message is also echoed back out to
// room peers, so the constant serves both directions.
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeChat       = "chat_message"
	TypeLeaveRoom  = "leave_room"
	TypePing       = "ping"
)

// Server → client message kinds.
const (
	TypeRoomCreated  = "room_created"
	TypeJoinSuccess  = "join_success"
	TypeJoinError    = "join_error"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeLeaveSuccess = "leave_success"
	TypeError        = "error"
	TypePong         = "pong"
)

// Envelope is one inbound client message. The chat payload stays raw; the
// relay treats message.content as an opaque blob and never inspects it.
type Envelope struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	Username string          `json:"username"`
	Message  json.RawMessage `json:"message"`
}

// ServerEvent is one outbound message. Every event carries the server
// receipt time in epoch milliseconds.
type ServerEvent struct {
	Type             string `json:"type"`
	RoomID           string `json:"roomId,omitempty"`
	Username         string `json:"username,omitempty"`
	Message          any    `json:"message,omitempty"`
	ParticipantCount int    `json:"participantCount,omitempty"`
	IsCreator        bool   `json:"isCreator,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Timestamp        int64  `json:"timestamp"`
}

// nowMillis is the protocol timestamp: epoch milliseconds
func nowMillis() int64 { return time.Now().UnixMilli() }

// encode marshals an event for the wire. Events hold marshalable fields
// only, so the error is discarded.
func encode(ev ServerEvent) []byte {
	b, _ := json.Marshal(ev)
	return b
}

// hasPayload reports whether a raw chat payload is actually present
// (JSON null counts as absent, matching the required-field check).
func hasPayload(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// stampServerTime parses a chat payload object and adds the relay receipt
// timestamp. The rest of the payload passes through untouched.
func stampServerTime(raw json.RawMessage, ts int64) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["serverTimestamp"] = ts
	return payload, nil
}

func roomCreated(roomID, username string) ServerEvent {
	return ServerEvent{
		Type:      TypeRoomCreated,
		RoomID:    roomID,
		Username:  username,
		Message:   "Room created successfully",
		Timestamp: nowMillis(),
	}
}

func joinSuccess(roomID, username string, count int) ServerEvent {
	return ServerEvent{
		Type:             TypeJoinSuccess,
		RoomID:           roomID,
		Username:         username,
		ParticipantCount: count,
		Message:          "Joined room successfully",
		Timestamp:        nowMillis(),
	}
}

func joinError(roomID, msg string) ServerEvent {
	return ServerEvent{Type: TypeJoinError, RoomID: roomID, Message: msg, Timestamp: nowMillis()}
}

func userJoined(roomID, username string, count int, creator bool) ServerEvent {
	return ServerEvent{
		Type:             TypeUserJoined,
		RoomID:           roomID,
		Username:         username,
		ParticipantCount: count,
		IsCreator:        creator,
		Timestamp:        nowMillis(),
	}
}

func userLeft(roomID, username string, count int, reason string) ServerEvent {
	return ServerEvent{
		Type:             TypeUserLeft,
		RoomID:           roomID,
		Username:         username,
		ParticipantCount: count,
		Reason:           reason,
		Timestamp:        nowMillis(),
	}
}

func chatMessage(roomID string, payload map[string]any) ServerEvent {
	return ServerEvent{Type: TypeChat, RoomID: roomID, Message: payload, Timestamp: nowMillis()}
}

func leaveSuccess(roomID string) ServerEvent {
	return ServerEvent{
		Type:      TypeLeaveSuccess,
		RoomID:    roomID,
		Message:   "Left room successfully",
		Timestamp: nowMillis(),
	}
}

func errorEvent(roomID, msg string) ServerEvent {
	return ServerEvent{Type: TypeError, RoomID: roomID, Message: msg, Timestamp: nowMillis()}
}

func pong() ServerEvent {
	return ServerEvent{Type: TypePong, Timestamp: nowMillis()}
}
