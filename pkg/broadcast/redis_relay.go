package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const relayChannelPrefix = "gridflow.broadcast."

// RedisRelay fans broadcasts out across API instances through Redis pub/sub.
// Each instance publishes to a per-sheet channel and forwards received
// messages into its local room manager, so an observer connected to any
// instance sees every update.
type RedisRelay struct {
	client *redis.Client
	rooms  *RoomManager
	logger *slog.Logger
}

func NewRedisRelay(client *redis.Client, rooms *RoomManager, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		rooms:  rooms,
		logger: logger.With("module", "broadcast_relay"),
	}
}

// Broadcast publishes the payload to the sheet's Redis channel. Local
// delivery happens when the subscription loop receives the message back.
func (r *RedisRelay) Broadcast(ctx context.Context, sheetID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to marshal broadcast payload", "sheet_id", sheetID, "error", err)

		return
	}

	err = r.client.Publish(ctx, relayChannelPrefix+sheetID, data).Err()
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish broadcast", "sheet_id", sheetID, "error", err)
	}
}

// Listen subscribes to all sheet channels and forwards messages to the local
// rooms. Blocks until the context is cancelled.
func (r *RedisRelay) Listen(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, relayChannelPrefix+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	r.logger.InfoContext(ctx, "Broadcast relay listening")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			sheetID := strings.TrimPrefix(msg.Channel, relayChannelPrefix)
			r.rooms.BroadcastRaw(ctx, sheetID, []byte(msg.Payload))
		}
	}
}
