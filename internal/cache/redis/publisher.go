package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockfolio/internal/domain"
)

// QuotesChannel is the pub/sub channel carrying quote-changed events.
const QuotesChannel = "quotes"

// Publisher implements domain.QuotePublisher over Redis pub/sub. Delivery is
// at-most-once and unordered; subscribers are expected to be idempotent.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher backed by the given Client.
func NewPublisher(c *Client) *Publisher {
	return &Publisher{rdb: c.Underlying()}
}

// Publish sends the quote as JSON on the quotes channel.
func (p *Publisher) Publish(ctx context.Context, q domain.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s: %w", q.Symbol, err)
	}
	if err := p.rdb.Publish(ctx, QuotesChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish quote %s: %w", q.Symbol, err)
	}
	return nil
}

// Subscribe creates a pub/sub subscription on the quotes channel and returns
// a read-only channel of raw payloads. The subscription closes, and the
// returned channel with it, when the context is cancelled.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := p.rdb.Subscribe(ctx, QuotesChannel)

	// Receive the subscription confirmation before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", QuotesChannel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.QuotePublisher = (*Publisher)(nil)
