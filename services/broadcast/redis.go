package broadcastsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/michezo/core"
)

type redisBroadcaster struct {
	rdb    *goredis.Client
	prefix string
}

var _ core.Broadcaster = (*redisBroadcaster)(nil)

// NewRedisBroadcaster connects to redis and publishes session-scoped events
// on "<prefix>:<sessionID>" channels; every participant client subscribed to
// its session channel receives the fan-out.
func NewRedisBroadcaster(conf *core.Config) (*redisBroadcaster, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Broadcast.RedisAddr,
		Password:    conf.Broadcast.RedisPassword,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	return &redisBroadcaster{rdb: rdb, prefix: conf.Broadcast.ChannelPrefix}, nil
}

func (b *redisBroadcaster) Publish(ctx context.Context, evt core.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	return b.rdb.Publish(ctx, b.prefix+":"+evt.SessionID, raw).Err()
}

// Subscribe hands each event published on the session's channel to onEvent
// until ctx is done. Used by the realtime edge (SSE/websocket gateways).
func (b *redisBroadcaster) Subscribe(ctx context.Context, sessionID string, onEvent func(core.Event)) error {
	sub := b.rdb.Subscribe(ctx, b.prefix+":"+sessionID)

	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Wrap(err, "redis subscribe")
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var evt core.Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					continue // bad payload; skip
				}
				onEvent(evt)
			}
		}
	}()

	return nil
}

func (b *redisBroadcaster) Close() error {
	return b.rdb.Close()
}
