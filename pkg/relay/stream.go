package relay

import "context"

// FrameKind tags one upstream frame. Only FrameChunk carries fragment data;
// any other kind is treated as a protocol violation by the ingest worker.
type FrameKind string

// FrameChunk is a data-bearing frame whose payload decodes to a Fragment.
const FrameChunk FrameKind = "chunk"

// Frame is one opaque unit received from the inference stream.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// FrameStream is a pull iterator over an open inference response stream.
// Next returns io.EOF once the stream has ended cleanly.
type FrameStream interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}
