package zipstream

import (
	"context"
	"io"
)

// Sink is the write-only, possibly-suspending byte destination of spec.md
// §4.7: a single operation that either consumes all of p or fails. The
// assembler never reads from a Sink, never seeks on it, and never
// truncates it; any error propagates as a fatal SinkFailure (§7) that
// poisons the archive.
//
// This mirrors, inverted, the teacher's own ReaderAt/context split in
// io.go: there a context-aware random-access *read* interface is adapted
// to and from plain io.ReaderAt so that HTTP range requests can carry a
// request-scoped context through to storage. Here the same adapter shape
// carries a context through to a forward-only *write* destination, so a
// Sink backed by a network call can honor cancellation mid-entry.
type Sink interface {
	// WriteContext writes all of p to the sink, or returns an error. It
	// must not report a short write without a non-nil error.
	WriteContext(ctx context.Context, p []byte) error
}

// NewSink adapts any io.Writer — a socket, an HTTP response body, a pipe,
// os.Stdout, or a regular file — into a Sink that ignores ctx. If w
// already implements Sink, it is returned unchanged.
func NewSink(w io.Writer) Sink {
	if s, ok := w.(Sink); ok {
		return s
	}
	return writerSink{w: w}
}

// writerSink is the equivalent of the teacher's ignoreContext adapter,
// applied to the write side instead of the read side.
type writerSink struct {
	w io.Writer
}

func (s writerSink) WriteContext(_ context.Context, p []byte) error {
	_, err := s.w.Write(p)
	return err
}

// sinkWriter adapts a Sink bound to a fixed context back to a plain
// io.Writer. This is the equivalent of the teacher's withContext adapter: a
// context-free surface scoped to the lifetime of one append. The Writer
// (writer.go) layers its own running-offset bookkeeping on top of a
// sinkWriter via sinkAt, so every byte the record writers and compressors
// emit — which only know about io.Writer — passes through here on its way
// to the Sink.
type sinkWriter struct {
	ctx  context.Context
	sink Sink
}

func (s sinkWriter) Write(p []byte) (int, error) {
	if err := s.sink.WriteContext(s.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
