// Package bus carries JSON-serializable change events between the API server
// and the pipeline consumer over Redis pub/sub.
//
// Delivery is at-least-once with best-effort ordering within a topic; there
// is no ordering guarantee across topics. Payloads are copies: a publisher
// never shares mutable state with a subscriber.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher fans events out on named topics.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a publisher on the given Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish marshals payload to JSON and publishes it on topic. The error is
// the caller's to classify; this layer never retries.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}
	if err := p.rdb.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Handler processes one raw event payload from a topic. An error aborts only
// the current event, never the subscription.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Subscriber runs a receive loop over one Redis pub/sub subscription.
type Subscriber struct {
	rdb *redis.Client
}

// NewSubscriber creates a subscriber on the given Redis client.
func NewSubscriber(rdb *redis.Client) *Subscriber {
	return &Subscriber{rdb: rdb}
}

// Run subscribes to the given topics and dispatches every received message
// to handler until ctx is cancelled. Handler failures are logged and the
// loop moves on; one bad event must not stall the stream.
func (s *Subscriber) Run(ctx context.Context, handler Handler, topics ...string) error {
	pubsub := s.rdb.Subscribe(ctx, topics...)
	defer pubsub.Close()

	// Force the subscription onto the wire before the caller assumes
	// events will be seen.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %v: %w", topics, err)
	}

	log.Printf("[bus] subscribed to %v", topics)
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				log.Printf("[bus] handler error on %s: %v", msg.Channel, err)
			}
		}
	}
}
