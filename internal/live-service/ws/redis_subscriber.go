package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/pkg/contracts/live"
)

// StartRedisSubscriber escuta o canal de broadcast no Redis Pub/Sub e repassa
// cada live.Update para os clientes do Hub. onDelivered (opcional) recebe o
// número de clientes atingidos.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub, onDelivered func(int)) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var upd live.Update
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				n := hub.Broadcast(upd)
				if onDelivered != nil {
					onDelivered(n)
				}
			}
		}
	}()
}
