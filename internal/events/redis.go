package events

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "nanobanana:events:"

// RedisBroker fans events out through Redis pub/sub so a completion recorded
// by one instance reaches sockets held by another. Local delivery goes
// through the wrapped Hub.
type RedisBroker struct {
	rdb *redis.Client
	hub *Hub
	log zerolog.Logger
}

func NewRedisBroker(rdb *redis.Client, hub *Hub, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, hub: hub, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, msg []byte) error {
	return b.rdb.Publish(ctx, redisChannelPrefix+topic, msg).Err()
}

func (b *RedisBroker) Subscribe(topic string) (<-chan []byte, func()) {
	return b.hub.Subscribe(topic)
}

// Run forwards Redis messages to the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) {
	ps := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	defer ps.Close()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				b.log.Warn().Msg("redis event subscription closed")
				return
			}
			topic := strings.TrimPrefix(m.Channel, redisChannelPrefix)
			if err := b.hub.Publish(ctx, topic, []byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
