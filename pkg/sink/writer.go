package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"storystream/pkg/relay"
)

// Writer is a local push sink that prints fragment text to an io.Writer.
// It backs the one-shot `storystream story` command.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter wraps an io.Writer as a push sink.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Push decodes the wire payload and writes its text.
func (w *Writer) Push(_ context.Context, _ string, payload []byte) error {
	fragment, err := relay.DecodeFragment(payload)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprint(w.out, fragment.Text); err != nil {
		return fmt.Errorf("write fragment: %w", err)
	}

	return nil
}
