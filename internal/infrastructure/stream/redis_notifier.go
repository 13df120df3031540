package stream

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	domainRepo "github.com/sangkips/posledger-api/internal/domain/repository"
)

const channelPrefix = "ledger:changed:"

type redisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a ledger change stream backed by Redis pub/sub,
// so projector callers on other nodes see this node's commits. Delivery is
// at-least-once and unordered; subscribers re-read the ledger on each event.
func NewRedisNotifier(client *redis.Client) domainRepo.LedgerNotifier {
	return &redisNotifier{client: client}
}

func (n *redisNotifier) Publish(ctx context.Context, customerKey string) error {
	return n.client.Publish(ctx, channelPrefix+customerKey, "1").Err()
}

func (n *redisNotifier) Subscribe(ctx context.Context, customerKey string, onChange func()) (func(), error) {
	pubsub := n.client.Subscribe(ctx, channelPrefix+customerKey)

	// Force the subscription to be established before returning so a commit
	// right after Subscribe is not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %q: %w", customerKey, err)
	}

	go func() {
		for range pubsub.Channel() {
			onChange()
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}
