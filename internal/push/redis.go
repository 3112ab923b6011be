package push

import (
	"context"
	"log/slog"

	"whatsapp-console/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on a redis pub/sub channel so every
// API instance's hub sees them, not just the one handling the mutation.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}
	return utils.PublishJSON(ctx, p.rdb, p.channel, payload)
}

// RunBridge subscribes the hub to the redis channel and blocks until
// ctx is cancelled. Frames that fail to parse are logged and dropped.
func RunBridge(ctx context.Context, rdb *redis.Client, channel string, hub *Hub, log *slog.Logger) error {
	return utils.SubscribeJSON(ctx, rdb, channel, func(payload []byte) {
		if _, err := ParseEvent(payload); err != nil {
			log.Warn("dropping malformed push frame", "err", err)
			return
		}
		hub.BroadcastRaw(payload)
	})
}
