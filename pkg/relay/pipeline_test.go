package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func chunkFrame(t *testing.T, text string) Frame {
	t.Helper()

	payload, err := EncodeFragment(Fragment{Kind: "completion", Text: text})
	if err != nil {
		t.Fatalf("encode frame payload: %v", err)
	}

	return Frame{Kind: FrameChunk, Payload: payload}
}

type scriptedStream struct {
	frames []Frame
	errAt  int // frame index at which Next fails; -1 disables
	err    error

	pos    int
	peek   func(pos int)
	closed bool
}

func (s *scriptedStream) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.errAt >= 0 && s.pos == s.errAt {
		return Frame{}, s.err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}

	frame := s.frames[s.pos]
	s.pos++
	if s.peek != nil {
		s.peek(s.pos)
	}

	return frame, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	payloads [][]byte
	failAt   int // 1-based delivery index that fails; 0 disables
	delay    time.Duration
	pushErr  error
}

func (s *recordingSink) Push(_ context.Context, _ string, payload []byte) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAt > 0 && len(s.payloads)+1 == s.failAt {
		if s.pushErr == nil {
			s.pushErr = errors.New("post to connection failed")
		}
		return s.pushErr
	}

	s.payloads = append(s.payloads, append([]byte(nil), payload...))
	return nil
}

func (s *recordingSink) delivered() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivered := make([][]byte, len(s.payloads))
	copy(delivered, s.payloads)
	return delivered
}

func newScriptedStream(t *testing.T, texts ...string) *scriptedStream {
	t.Helper()

	frames := make([]Frame, 0, len(texts))
	for _, text := range texts {
		frames = append(frames, chunkFrame(t, text))
	}

	return &scriptedStream{frames: frames, errAt: -1}
}

func TestPipelineRelaysFragmentsInOrder(t *testing.T) {
	stream := newScriptedStream(t, "Once", " upon", " a", " time")
	sink := &recordingSink{}
	pipeline := NewPipeline(2, slog.Default())

	if err := pipeline.Run(context.Background(), stream, sink, "conn-1"); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	delivered := sink.delivered()
	if len(delivered) != 4 {
		t.Fatalf("delivered %d fragments, want 4", len(delivered))
	}

	wantTexts := []string{"Once", " upon", " a", " time"}
	for i, payload := range delivered {
		fragment, err := DecodeFragment(payload)
		if err != nil {
			t.Fatalf("decode delivered payload %d: %v", i, err)
		}
		if fragment.Text != wantTexts[i] {
			t.Fatalf("fragment %d text = %q, want %q", i, fragment.Text, wantTexts[i])
		}
	}

	if !stream.closed {
		t.Fatal("expected stream handle to be closed")
	}
}

func TestPipelineEmptyStream(t *testing.T) {
	stream := newScriptedStream(t)
	sink := &recordingSink{}
	pipeline := NewPipeline(0, slog.Default())

	if err := pipeline.Run(context.Background(), stream, sink, "conn-1"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := len(sink.delivered()); got != 0 {
		t.Fatalf("delivered %d fragments, want 0", got)
	}
}

func TestPipelineMalformedFrameAbortsAfterPriorDeliveries(t *testing.T) {
	stream := newScriptedStream(t, "one", "two")
	stream.frames = append(stream.frames, Frame{Kind: FrameChunk, Payload: []byte(`{"type":`)})
	sink := &recordingSink{}
	pipeline := NewPipeline(1, slog.Default())

	err := pipeline.Run(context.Background(), stream, sink, "conn-1")
	if err == nil {
		t.Fatal("expected pipeline failure")
	}
	if got := CategoryFromError(err); got != ErrorProtocol {
		t.Fatalf("category = %q, want %q", got, ErrorProtocol)
	}
	if got := len(sink.delivered()); got != 2 {
		t.Fatalf("delivered %d fragments, want 2", got)
	}
}

func TestPipelineUnsupportedFrameKind(t *testing.T) {
	stream := &scriptedStream{
		frames: []Frame{{Kind: "metadata"}},
		errAt:  -1,
	}
	sink := &recordingSink{}
	pipeline := NewPipeline(1, slog.Default())

	err := pipeline.Run(context.Background(), stream, sink, "conn-1")
	if got := CategoryFromError(err); got != ErrorProtocol {
		t.Fatalf("category = %q, want %q (err=%v)", got, ErrorProtocol, err)
	}
	if got := len(sink.delivered()); got != 0 {
		t.Fatalf("delivered %d fragments, want 0", got)
	}
}

func TestPipelineUpstreamErrorPropagates(t *testing.T) {
	wantErr := errors.New("stream reset")
	stream := newScriptedStream(t, "one")
	stream.errAt = 1
	stream.err = wantErr
	sink := &recordingSink{}
	pipeline := NewPipeline(1, slog.Default())

	err := pipeline.Run(context.Background(), stream, sink, "conn-1")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}
	if got := len(sink.delivered()); got != 1 {
		t.Fatalf("delivered %d fragments, want 1", got)
	}
}

func TestPipelineSinkFailureReportedFirst(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("part-%d", i)
	}
	stream := newScriptedStream(t, texts...)
	sink := &recordingSink{failAt: 3}
	pipeline := NewPipeline(2, slog.Default())

	err := pipeline.Run(context.Background(), stream, sink, "conn-1")
	if err == nil {
		t.Fatal("expected pipeline failure")
	}
	if got := CategoryFromError(err); got != ErrorSinkDelivery {
		t.Fatalf("category = %q, want %q (err=%v)", got, ErrorSinkDelivery, err)
	}
	if errors.Is(err, ErrConsumerGone) {
		t.Fatalf("sink failure must not surface as consumer-gone: %v", err)
	}
	if got := len(sink.delivered()); got != 2 {
		t.Fatalf("delivered %d fragments, want 2", got)
	}
	if stream.pos == len(stream.frames) {
		t.Fatal("ingest kept reading upstream after the consumer terminated")
	}
}

func TestPipelineBackpressureBoundsProducerLead(t *testing.T) {
	const capacity = 2

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("part-%d", i)
	}

	sink := &recordingSink{delay: 3 * time.Millisecond}
	stream := newScriptedStream(t, texts...)

	maxLead := 0
	stream.peek = func(pos int) {
		if lead := pos - len(sink.delivered()); lead > maxLead {
			maxLead = lead
		}
	}

	pipeline := NewPipeline(capacity, slog.Default())
	if err := pipeline.Run(context.Background(), stream, sink, "conn-1"); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if got := len(sink.delivered()); got != len(texts) {
		t.Fatalf("delivered %d fragments, want %d", got, len(texts))
	}

	// The producer can be ahead by at most the conveyor capacity plus one
	// fragment held by the dispatch worker plus the frame it just read.
	if maxLead > capacity+2 {
		t.Fatalf("producer lead = %d, want <= %d", maxLead, capacity+2)
	}
}

func TestPipelineSinkPanicReportedAsWorkerFault(t *testing.T) {
	stream := newScriptedStream(t, "one")
	pipeline := NewPipeline(1, slog.Default())

	err := pipeline.Run(context.Background(), stream, panickingSink{}, "conn-1")
	if got := CategoryFromError(err); got != ErrorWorkerFault {
		t.Fatalf("category = %q, want %q (err=%v)", got, ErrorWorkerFault, err)
	}
}

type panickingSink struct{}

func (panickingSink) Push(context.Context, string, []byte) error {
	panic("unreachable connection table")
}
