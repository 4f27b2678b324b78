// internal/adapter/dispatch/nats.go

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Dispatcher schedules units of work for asynchronous execution. Delivery is
// at-least-once; handlers must be idempotent against redelivery.
type Dispatcher interface {
	// Schedule enqueues payload on the named queue after the given delay.
	Schedule(ctx context.Context, queue string, payload interface{}, delay time.Duration) error
}

// Handler processes a dispatched payload. A returned error is logged; the
// task is not redelivered inline (the next scheduled run picks up the slack).
type Handler func(ctx context.Context, payload []byte) error

// NATSDispatcher implements Dispatcher on a NATS connection. Workers join a
// queue group per subject so each task lands on exactly one subscriber at a
// time. Delays are armed locally with timers before publishing.
type NATSDispatcher struct {
	conn   *nats.Conn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []*nats.Subscription
	mu     sync.Mutex
}

// NewNATSDispatcher creates a dispatcher on the given connection.
func NewNATSDispatcher(conn *nats.Conn) *NATSDispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &NATSDispatcher{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule enqueues the payload on the named queue after the given delay.
// Zero delay publishes immediately. Delays are held in process: tasks whose
// timer has not fired are lost on restart and recovered by the next
// scheduled run.
func (d *NATSDispatcher) Schedule(ctx context.Context, queue string, payload interface{}, delay time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding task payload: %w", err)
	}

	if delay <= 0 {
		if err := d.conn.Publish(subjectFor(queue), data); err != nil {
			return fmt.Errorf("error publishing task: %w", err)
		}
		return nil
	}

	d.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer d.wg.Done()

		if d.ctx.Err() != nil {
			return
		}

		if err := d.conn.Publish(subjectFor(queue), data); err != nil {
			slog.Error("failed to publish delayed task", "queue", queue, "error", err)
		}
	})

	// Stop the timer if the dispatcher shuts down before it fires.
	go func() {
		select {
		case <-d.ctx.Done():
			if timer.Stop() {
				d.wg.Done()
			}
		case <-time.After(delay + time.Second):
		}
	}()

	return nil
}

// Subscribe registers a handler for the named queue. Subscribers with the
// same queue name form a queue group: each task is delivered to one of them.
func (d *NATSDispatcher) Subscribe(queue string, handler Handler) error {
	sub, err := d.conn.QueueSubscribe(subjectFor(queue), queue, func(msg *nats.Msg) {
		if err := handler(d.ctx, msg.Data); err != nil {
			slog.Error("task handler failed", "queue", queue, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error subscribing to queue %s: %w", queue, err)
	}

	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()

	return nil
}

// Close drains subscriptions and waits for pending delayed publishes.
func (d *NATSDispatcher) Close(ctx context.Context) error {
	d.cancel()

	d.mu.Lock()
	for _, sub := range d.subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe", "error", err)
		}
	}
	d.subs = nil
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func subjectFor(queue string) string {
	return fmt.Sprintf("tasks.%s", queue)
}
