package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/domain"
)

type memStore struct {
	mu        sync.Mutex
	customers []domain.Customer
	orders    []domain.Order
	attempts  []domain.DeliveryAttempt
	failFor   map[string]error
}

func newMemStore() *memStore {
	return &memStore{failFor: map[string]error{}}
}

func (s *memStore) UpsertCustomer(_ context.Context, c domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append(s.customers, c)
	return nil
}

func (s *memStore) InsertOrder(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

func (s *memStore) RecordDeliveryAttempt(_ context.Context, a domain.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[a.ID]; ok {
		return err
	}
	s.attempts = append(s.attempts, a)
	return nil
}

func (s *memStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func attempt(id string) domain.DeliveryAttempt {
	return domain.DeliveryAttempt{
		ID:          id,
		LogID:       "log-1",
		CustomerID:  "cust-1",
		Status:      domain.DeliverySent,
		AttemptedAt: time.Now(),
	}
}

func TestConsumer_BatchesWithinWindow(t *testing.T) {
	store := newMemStore()
	c := New(nil, store, Config{BatchWindow: 50 * time.Millisecond, MaxQueue: 100})

	c.enqueue(attempt("a"))
	c.enqueue(attempt("b"))
	c.enqueue(attempt("c"))

	if got := store.attemptCount(); got != 0 {
		t.Errorf("attempts persisted before window elapsed: %d", got)
	}

	c.mu.Lock()
	queued := len(c.queue)
	c.mu.Unlock()
	if queued != 3 {
		t.Errorf("queue length = %d, want 3", queued)
	}

	// Wait out the window.
	deadline := time.Now().Add(2 * time.Second)
	for store.attemptCount() != 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.attemptCount(); got != 3 {
		t.Fatalf("attempts after flush = %d, want 3", got)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) != 0 || c.timer != nil {
		t.Error("queue should be idle after flush")
	}
}

func TestConsumer_DropsWhenQueueFull(t *testing.T) {
	store := newMemStore()
	c := New(nil, store, Config{BatchWindow: time.Hour, MaxQueue: 2})

	c.enqueue(attempt("a"))
	c.enqueue(attempt("b"))
	c.enqueue(attempt("c")) // over capacity, dropped

	c.flush(context.Background())

	if got := store.attemptCount(); got != 2 {
		t.Errorf("attempts persisted = %d, want 2", got)
	}
}

func TestConsumer_FlushIsolatesFailures(t *testing.T) {
	store := newMemStore()
	store.failFor["bad"] = context.DeadlineExceeded

	c := New(nil, store, Config{BatchWindow: time.Hour, MaxQueue: 100})
	c.enqueue(attempt("a"))
	c.enqueue(attempt("bad"))
	c.enqueue(attempt("b"))

	c.flush(context.Background())

	if got := store.attemptCount(); got != 2 {
		t.Errorf("attempts persisted = %d, want 2 (one failure skipped)", got)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) != 0 {
		t.Error("queue must be cleared even when items fail")
	}
}

func TestConsumer_SecondWindowAfterFlush(t *testing.T) {
	store := newMemStore()
	c := New(nil, store, Config{BatchWindow: 30 * time.Millisecond, MaxQueue: 100})

	c.enqueue(attempt("a"))

	deadline := time.Now().Add(2 * time.Second)
	for store.attemptCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.attemptCount() != 1 {
		t.Fatal("first window never flushed")
	}

	// A fresh event must arm a fresh timer.
	c.enqueue(attempt("b"))
	for store.attemptCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := store.attemptCount(); got != 2 {
		t.Errorf("attempts after second window = %d, want 2", got)
	}
}

func TestConsumer_EndToEndOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := newMemStore()
	c := New(bus.NewSubscriber(rdb), store, Config{BatchWindow: 30 * time.Millisecond, MaxQueue: 100})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	// Give the subscription time to land.
	time.Sleep(50 * time.Millisecond)

	pub := bus.NewPublisher(rdb)
	cust := domain.Customer{ID: "cust-1", Name: "Ada", Email: "ada@example.com", TotalVisits: 1, LastVisit: time.Now()}
	if err := pub.Publish(ctx, domain.TopicCustomers, cust); err != nil {
		t.Fatalf("publish customer: %v", err)
	}
	if err := pub.Publish(ctx, domain.TopicOrders, domain.Order{ID: "order-1", Product: "widget", CustomerID: "cust-1"}); err != nil {
		t.Fatalf("publish order: %v", err)
	}
	if err := pub.Publish(ctx, domain.TopicCommLogs, attempt("att-1")); err != nil {
		t.Fatalf("publish attempt: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		ok := len(store.customers) == 1 && len(store.orders) == 1
		store.mu.Unlock()
		if ok && store.attemptCount() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	store.mu.Lock()
	customers, orders := len(store.customers), len(store.orders)
	store.mu.Unlock()
	if customers != 1 || orders != 1 {
		t.Errorf("pass-through writes = %d customers, %d orders; want 1 and 1", customers, orders)
	}
	if got := store.attemptCount(); got != 1 {
		t.Errorf("batched attempts = %d, want 1", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("consumer did not stop after cancel")
	}
}
