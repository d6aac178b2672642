package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Pipeline wires an ingest worker and a dispatch worker around a fresh
// conveyor for each invocation. Nothing is shared across invocations.
type Pipeline struct {
	capacity int
	log      *slog.Logger
}

// NewPipeline creates a pipeline whose conveyors hold up to capacity
// fragments (DefaultCapacity when non-positive).
func NewPipeline(capacity int, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		capacity: capacity,
		log:      log.With("component", "relay.pipeline"),
	}
}

// Run relays every fragment from the inference stream to the client
// connection, in arrival order, until the stream ends or either side fails.
//
// Both workers always reach a terminal state before Run returns (a join,
// not a race); on partial failure only the first observed error is
// reported. The stream handle is closed before returning.
func (p *Pipeline) Run(ctx context.Context, stream FrameStream, sink Sink, connectionID string) error {
	if stream == nil {
		return NewError(ErrorInput, "inference stream is required")
	}
	if sink == nil {
		return NewError(ErrorInput, "push sink is required")
	}
	defer func() {
		_ = stream.Close()
	}()

	log := p.log.With("connection_id", connectionID)
	conveyor := NewConveyor(p.capacity)

	var (
		wg          sync.WaitGroup
		ingestErr   error
		dispatchErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		ingestErr = runWorker("ingest", func() error {
			return runIngest(ctx, stream, conveyor, log)
		})
	}()
	go func() {
		defer wg.Done()
		defer conveyor.ConsumerGone()
		dispatchErr = runWorker("dispatch", func() error {
			return runDispatch(ctx, conveyor, sink, connectionID, log)
		})
	}()
	wg.Wait()

	// When ingest stopped only because the consumer disappeared, the
	// dispatch failure is the first observed one and wins.
	switch {
	case dispatchErr != nil && errors.Is(ingestErr, ErrConsumerGone):
		return dispatchErr
	case ingestErr != nil:
		return ingestErr
	default:
		return dispatchErr
	}
}

// runWorker converts a worker panic into a reportable fault instead of
// taking down the whole invocation.
func runWorker(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrorWorkerFault, fmt.Sprintf("%s worker panicked: %v", name, r))
		}
	}()

	return fn()
}
