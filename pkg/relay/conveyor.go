package relay

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity bounds how many fragments may sit between the ingest and
// dispatch workers before the producer blocks.
const DefaultCapacity = 100

// ErrConveyorClosed is returned by Put after CloseSend; enqueueing past
// close indicates a producer bug, not a runtime condition.
var ErrConveyorClosed = errors.New("conveyor: send side closed")

// Conveyor is the bounded, ordered, single-producer/single-consumer queue
// of fragments between the ingest and dispatch workers. Its capacity is the
// pipeline's only backpressure mechanism: Put blocks (never drops) while
// the consumer is behind.
type Conveyor struct {
	fragments chan Fragment

	sendClosed chan struct{}
	closeOnce  sync.Once

	gone     chan struct{}
	goneOnce sync.Once
}

// NewConveyor creates a conveyor with the given capacity, falling back to
// DefaultCapacity for non-positive values.
func NewConveyor(capacity int) *Conveyor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Conveyor{
		fragments:  make(chan Fragment, capacity),
		sendClosed: make(chan struct{}),
		gone:       make(chan struct{}),
	}
}

// Put enqueues one fragment, blocking while the conveyor is full. It fails
// with ErrConsumerGone once the consumer has terminated and with the
// context error on cancellation.
func (c *Conveyor) Put(ctx context.Context, fragment Fragment) error {
	select {
	case <-c.sendClosed:
		return ErrConveyorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.gone:
		return ErrConsumerGone
	case c.fragments <- fragment:
		return nil
	}
}

// Next dequeues the oldest fragment, blocking while the conveyor is open
// and empty. ok is false once the conveyor is closed and drained, or when
// the context is canceled; callers distinguish the two via ctx.Err().
func (c *Conveyor) Next(ctx context.Context) (Fragment, bool) {
	select {
	case <-ctx.Done():
		return Fragment{}, false
	case fragment, ok := <-c.fragments:
		return fragment, ok
	}
}

// CloseSend marks the end of the fragment sequence. Closing is final: the
// consumer drains whatever is buffered and then observes end-of-stream.
// Only the producer goroutine may call CloseSend.
func (c *Conveyor) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.sendClosed)
		close(c.fragments)
	})
}

// ConsumerGone records that the dispatch side has terminated, unblocking
// any pending or future Put with ErrConsumerGone.
func (c *Conveyor) ConsumerGone() {
	c.goneOnce.Do(func() {
		close(c.gone)
	})
}
