// Package consumer drains the event bus into Postgres. Customer and order
// events are written through one at a time; communication-log events are
// coalesced into timed batches before they hit the database.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/metrics"
)

// Store is the persistence boundary of the consumer. Every write must be
// idempotent: the bus delivers at-least-once.
type Store interface {
	UpsertCustomer(ctx context.Context, c domain.Customer) error
	InsertOrder(ctx context.Context, o domain.Order) error
	RecordDeliveryAttempt(ctx context.Context, a domain.DeliveryAttempt) error
}

// Config holds the batching knobs for the communication-log topic.
type Config struct {
	// BatchWindow is how long the first queued event waits before a flush.
	BatchWindow time.Duration
	// MaxQueue bounds the in-memory batch queue; events past it are dropped.
	MaxQueue int
}

// DefaultConfig returns the production batching parameters.
func DefaultConfig() Config {
	return Config{
		BatchWindow: 5 * time.Second,
		MaxQueue:    10000,
	}
}

// Consumer subscribes to the change topics and persists what arrives.
//
// The communication-log path runs a small state machine: the queue is idle
// until an event arrives, the first event arms a one-shot timer, and when
// the timer fires the whole queue is flushed in one pass. Events landing
// while a flush is in progress start the next window.
type Consumer struct {
	store Store
	sub   *bus.Subscriber
	cfg   Config

	mu    sync.Mutex
	queue []domain.DeliveryAttempt
	timer *time.Timer

	// flushWG tracks in-flight flushes so Run can drain them on shutdown.
	flushWG sync.WaitGroup
}

// New creates a consumer over the given subscriber and store.
func New(sub *bus.Subscriber, store Store, cfg Config) *Consumer {
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = 5 * time.Second
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = 10000
	}
	return &Consumer{store: store, sub: sub, cfg: cfg}
}

// Run blocks dispatching bus events until ctx is cancelled, then flushes
// whatever is still queued before returning.
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("[Consumer] Starting (batch_window=%s, max_queue=%d)", c.cfg.BatchWindow, c.cfg.MaxQueue)

	err := c.sub.Run(ctx, c.handle,
		domain.TopicCustomers, domain.TopicOrders, domain.TopicCommLogs)

	// Final flush runs outside the cancelled ctx so queued events still land.
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.flush(context.Background())
	c.flushWG.Wait()

	log.Println("[Consumer] Stopped")
	return err
}

func (c *Consumer) handle(ctx context.Context, topic string, payload []byte) error {
	metrics.EventsConsumed.WithLabelValues(topic).Inc()

	switch topic {
	case domain.TopicCustomers:
		var cust domain.Customer
		if err := json.Unmarshal(payload, &cust); err != nil {
			metrics.EventsDropped.WithLabelValues("decode").Inc()
			return fmt.Errorf("decode customer event: %w", err)
		}
		return c.store.UpsertCustomer(ctx, cust)

	case domain.TopicOrders:
		var order domain.Order
		if err := json.Unmarshal(payload, &order); err != nil {
			metrics.EventsDropped.WithLabelValues("decode").Inc()
			return fmt.Errorf("decode order event: %w", err)
		}
		return c.store.InsertOrder(ctx, order)

	case domain.TopicCommLogs:
		var attempt domain.DeliveryAttempt
		if err := json.Unmarshal(payload, &attempt); err != nil {
			metrics.EventsDropped.WithLabelValues("decode").Inc()
			return fmt.Errorf("decode delivery attempt event: %w", err)
		}
		c.enqueue(attempt)
		return nil

	default:
		metrics.EventsDropped.WithLabelValues("unknown_topic").Inc()
		return fmt.Errorf("unknown topic %q", topic)
	}
}

// enqueue adds a delivery attempt to the batch queue and arms the flush
// timer if this is the first event of a window.
func (c *Consumer) enqueue(a domain.DeliveryAttempt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) >= c.cfg.MaxQueue {
		metrics.EventsDropped.WithLabelValues("queue_full").Inc()
		log.Printf("[Consumer] Batch queue full (%d), dropping delivery attempt %s", c.cfg.MaxQueue, a.ID)
		return
	}

	c.queue = append(c.queue, a)
	metrics.BatchQueueDepth.Set(float64(len(c.queue)))

	if c.timer == nil {
		c.timer = time.AfterFunc(c.cfg.BatchWindow, func() {
			c.flush(context.Background())
		})
	}
}

// flush swaps the queue out under the lock, then writes every item in
// parallel. A failed item is logged and skipped; it never blocks the rest
// of the batch, and the batch is cleared either way.
func (c *Consumer) flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.timer = nil
	metrics.BatchQueueDepth.Set(0)
	if len(batch) > 0 {
		// Register under the lock so a shutdown Wait cannot slip past an
		// in-flight timer flush.
		c.flushWG.Add(1)
		defer c.flushWG.Done()
	}
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	metrics.BatchFlushes.Inc()
	metrics.BatchFlushSize.Observe(float64(len(batch)))
	log.Printf("[Consumer] Flushing %d delivery attempts", len(batch))

	var wg sync.WaitGroup
	for _, a := range batch {
		wg.Add(1)
		go func(a domain.DeliveryAttempt) {
			defer wg.Done()
			if err := c.store.RecordDeliveryAttempt(ctx, a); err != nil {
				metrics.EventsDropped.WithLabelValues("persist").Inc()
				log.Printf("[Consumer] Persist delivery attempt %s failed: %v", a.ID, err)
			}
		}(a)
	}
	wg.Wait()
}
