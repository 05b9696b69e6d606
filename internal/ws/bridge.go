package ws

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Bisw0319/HippoChat/internal/app"
)

// BusMessage is one room frame mirrored across relay instances
type BusMessage struct {
	Origin  string `json:"origin"`
	RoomID  string `json:"roomId"`
	Payload []byte `json:"payload"`
}

// Bridge mirrors room broadcasts through redis pub/sub so members of the
// same room on different instances see each other's traffic. Forward is
// called while the relay holds its mutex, so publishing is decoupled
// through a queue drained by Run.
type Bridge struct {
	rdb    *redis.Client
	log    *slog.Logger
	origin string
	outQ   chan BusMessage
}

// NewBridge connects to redis and verifies connectivity
func NewBridge(ctx context.Context, cfg app.Config, log *slog.Logger) (*Bridge, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Bridge{
		rdb:    rdb,
		log:    log,
		origin: uuid.NewString(),
		outQ:   make(chan BusMessage, 256),
	}, nil
}

// Forward queues a room frame for publication without blocking. A full
// queue drops the frame; local delivery already happened.
func (b *Bridge) Forward(roomID string, payload []byte) {
	select {
	case b.outQ <- BusMessage{Origin: b.origin, RoomID: roomID, Payload: payload}:
	default:
		b.log.Warn("bridge.queue.full", "room", roomID)
	}
}

// Run publishes queued frames and hands subscribed ones to deliver until
// ctx is cancelled. Frames this instance published are skipped on
// receive; deliver gets only remote traffic.
func (b *Bridge) Run(ctx context.Context, deliver func(roomID string, payload []byte)) {
	go b.publishLoop(ctx)

	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg := <-ch:
			var bm BusMessage
			_ = json.Unmarshal([]byte(msg.Payload), &bm)
			if bm.RoomID == "" || bm.Origin == b.origin {
				continue
			}
			deliver(bm.RoomID, bm.Payload)
		}
	}
}

func (b *Bridge) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.outQ:
			raw, _ := json.Marshal(m)
			if err := b.rdb.Publish(ctx, channel(m.RoomID), raw).Err(); err != nil {
				b.log.Warn("bridge.publish", "room", m.RoomID, "err", err)
			}
		}
	}
}

// Close shuts down the redis connection
func (b *Bridge) Close() { _ = b.rdb.Close() }

// channel namespacing for room pub/sub
func channel(roomID string) string { return "room:" + roomID }
