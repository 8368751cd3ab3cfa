package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/housepoints/internal/board"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "housepoints:items"

// RedisNotifier fans item changes out across API replicas through redis pub/sub.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisNotifier(rdb *redis.Client, channel string, log *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisNotifier{rdb: rdb, channel: channel, log: log}
}

func (n *RedisNotifier) Publish(ctx context.Context, c board.Change) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, b).Err()
}

// Listen subscribes and forwards every change to next until ctx is done, resubscribing with
// backoff when the connection drops.
func (n *RedisNotifier) Listen(ctx context.Context, next board.ChangeNotifier) {
	attempt := 0

	for {
		err := n.listenOnce(ctx, next, func() { attempt = 0 })
		if ctx.Err() != nil {
			return
		}

		delay := ExponentialBackoff(attempt)
		attempt++
		n.log.WarnContext(ctx, "live_redis_subscription_lost", "err", err, "retry_in", delay.String())

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

var errSubscriptionClosed = errors.New("redis subscription closed")

func (n *RedisNotifier) listenOnce(ctx context.Context, next board.ChangeNotifier, onReady func()) error {
	sub := n.rdb.Subscribe(ctx, n.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	onReady()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}

			c, err := decodeChange(msg.Payload)
			if err != nil {
				n.log.WarnContext(ctx, "live_redis_bad_payload", "err", err)
				continue
			}

			if err := next.Publish(ctx, c); err != nil {
				n.log.WarnContext(ctx, "live_forward_failed", "err", err)
			}
		}
	}
}

func decodeChange(payload string) (board.Change, error) {
	var c board.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return board.Change{}, err
	}
	if c.Op == "" {
		return board.Change{}, errors.New("change without op")
	}
	return c, nil
}
