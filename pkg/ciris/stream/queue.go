package stream

import (
	"context"
	"log/slog"
	"sync"
)

// DropPolicy selects which message is discarded when the delivery queue
// overflows.
type DropPolicy int

const (
	// DropOldest evicts the oldest buffered message to make room for the
	// incoming one. This is the default.
	DropOldest DropPolicy = iota

	// DropNewest discards the incoming message and keeps the buffer as is.
	DropNewest
)

// String returns the string representation of the policy.
func (p DropPolicy) String() string {
	switch p {
	case DropOldest:
		return "oldest"
	case DropNewest:
		return "newest"
	default:
		return "unknown"
	}
}

// deliveryQueue is the fixed-capacity FIFO between the read loop and the
// consumer. push never blocks and never fails, so a slow consumer cannot
// stall the network receive path. pop blocks until a message is available or
// the queue is closed; buffered messages remain drainable after close.
type deliveryQueue struct {
	mu      sync.Mutex
	items   []*Message
	cap     int
	high    int
	warned  bool
	closed  bool
	dropped uint64
	policy  DropPolicy
	logger  *slog.Logger

	notify chan struct{}
	done   chan struct{}
}

func newDeliveryQueue(capacity int, policy DropPolicy, highWater float64, logger *slog.Logger) *deliveryQueue {
	high := int(float64(capacity) * highWater)
	if high < 1 {
		high = 1
	}
	if high > capacity {
		high = capacity
	}
	return &deliveryQueue{
		items:  make([]*Message, 0, capacity),
		cap:    capacity,
		high:   high,
		policy: policy,
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push inserts a message, applying the drop policy on overflow. Pushes after
// close are ignored.
func (q *deliveryQueue) push(m *Message) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if len(q.items) >= q.cap {
		q.dropped++
		if q.policy == DropNewest {
			q.mu.Unlock()
			q.logger.Warn("delivery queue full, dropped incoming message",
				"capacity", q.cap, "policy", q.policy.String())
			return
		}
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, m)
	warn := false
	if len(q.items) >= q.high && !q.warned {
		q.warned = true
		warn = true
	}
	size := len(q.items)
	q.mu.Unlock()

	if warn {
		q.logger.Warn("delivery queue crossed high-water mark",
			"buffered", size, "capacity", q.cap)
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop removes and returns the oldest buffered message, blocking until one is
// available. After close it drains the remaining buffer, then returns
// ErrStreamClosed.
func (q *deliveryQueue) pop(ctx context.Context) (*Message, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) < q.high {
				q.warned = false
			}
			q.mu.Unlock()
			return m, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, ErrStreamClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-q.done:
		}
	}
}

// close marks the queue terminal and wakes every blocked consumer.
func (q *deliveryQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

func (q *deliveryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *deliveryQueue) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
