package shell

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type sinkKey struct{}

// ContextWithSink attaches a per-call output sink. It takes precedence over
// the sink a Runner was constructed with.
func ContextWithSink(ctx context.Context, sink LineSink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFromContext returns the sink attached by ContextWithSink, if any.
func SinkFromContext(ctx context.Context) LineSink {
	sink, _ := ctx.Value(sinkKey{}).(LineSink)
	return sink
}

// SinkWriter adapts a LineSink to an io.Writer, splitting on \n and \r so
// progress-bar style output arrives as separate lines.
func SinkWriter(sink LineSink, stream Stream) io.Writer {
	return &lineWriter{sink: sink, stream: stream}
}

type lineWriter struct {
	mu     sync.Mutex
	sink   LineSink
	stream Stream
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range p {
		if b == '\n' || b == '\r' {
			if w.buf.Len() > 0 {
				w.sink(w.stream, w.buf.String())
				w.buf.Reset()
			}
			continue
		}
		w.buf.WriteByte(b)
	}
	return len(p), nil
}
