package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// InMemoryQueue is a process-local queue with the same delivery semantics as
// SQS (per-message delay, ack-to-delete, redelivery of unacked messages).
// Used in tests and local development.
type InMemoryQueue struct {
	mu       sync.Mutex
	seq      int
	pending  map[string]*memMessage
	inflight map[string]*memMessage
	clock    func() time.Time
}

type memMessage struct {
	handle  string
	task    Task
	readyAt time.Time
}

// NewInMemoryQueue constructs an empty in-memory queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		pending:  make(map[string]*memMessage),
		inflight: make(map[string]*memMessage),
		clock:    time.Now,
	}
}

var (
	_ Publisher = (*InMemoryQueue)(nil)
	_ Consumer  = (*InMemoryQueue)(nil)
)

func (q *InMemoryQueue) Publish(ctx context.Context, task Task, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	handle := "msg-" + strconv.Itoa(q.seq)
	q.pending[handle] = &memMessage{handle: handle, task: task, readyAt: q.clock().Add(delay)}
	return nil
}

func (q *InMemoryQueue) Receive(ctx context.Context) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock()
	var out []Message
	for handle, m := range q.pending {
		if m.readyAt.After(now) {
			continue
		}
		delete(q.pending, handle)
		q.inflight[handle] = m
		out = append(out, Message{Task: m.task, Handle: handle})
	}
	return out, nil
}

func (q *InMemoryQueue) Ack(ctx context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, handle)
	return nil
}

// Redeliver returns every unacknowledged in-flight message to the pending
// set, simulating a visibility-timeout expiry.
func (q *InMemoryQueue) Redeliver() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for handle, m := range q.inflight {
		delete(q.inflight, handle)
		m.readyAt = q.clock()
		q.pending[handle] = m
	}
}

// Len reports how many messages are waiting for delivery (including delayed).
func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// SetClock overrides the queue's time source in tests.
func (q *InMemoryQueue) SetClock(clock func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clock = clock
}
