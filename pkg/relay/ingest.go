package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// runIngest pulls frames from the inference stream, decodes them, and
// enqueues the fragments in arrival order. It closes the conveyor's send
// side on every exit so the dispatch worker always observes end-of-stream.
func runIngest(ctx context.Context, stream FrameStream, conveyor *Conveyor, log *slog.Logger) error {
	defer conveyor.CloseSend()

	ingested := 0
	for {
		frame, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Debug("Inference stream complete", "fragments", ingested)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read inference frame: %w", err)
		}

		if frame.Kind != FrameChunk {
			return NewError(ErrorProtocol, fmt.Sprintf("unsupported frame kind %q", frame.Kind))
		}

		fragment, err := DecodeFragment(frame.Payload)
		if err != nil {
			return err
		}

		if err := conveyor.Put(ctx, fragment); err != nil {
			// ErrConsumerGone means the sink side already failed; stop
			// reading upstream rather than buffering indefinitely.
			return err
		}
		ingested++
	}
}
