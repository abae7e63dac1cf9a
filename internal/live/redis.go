package live

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// DefaultChannelPrefix namespaces the pub/sub channels, one per invitation.
const DefaultChannelPrefix = "activid:wishes:"

// RedisNotifier publishes change signals on a Redis channel per invitation.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisNotifier creates a notifier over client. logger may be nil.
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, prefix: DefaultChannelPrefix, logger: logger}
}

// DialRedis creates a client for addr. The connection is made lazily.
func DialRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Channel returns the pub/sub channel of invitationID.
func (n *RedisNotifier) Channel(invitationID string) string {
	return n.prefix + invitationID
}

// Notify publishes a signal for invitationID.
func (n *RedisNotifier) Notify(ctx context.Context, invitationID string) error {
	if err := n.client.Publish(ctx, n.Channel(invitationID), invitationID).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.Channel(invitationID), err)
	}
	return nil
}

// Subscribe subscribes to invitationID's channel. It waits for Redis to
// confirm the subscription so that no Notify issued after Subscribe returns
// is missed. Signals are coalesced like Hub's.
func (n *RedisNotifier) Subscribe(ctx context.Context, invitationID string) (<-chan struct{}, error) {
	channel := n.Channel(invitationID)
	pubsub := n.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					n.logger.Debug("redis subscription closed", "channel", channel)
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the connection.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
