package toast

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/propnest/propnest-client/pkg/logger"
)

// Sink displays a toast.
type Sink interface {
	Show(ctx context.Context, t Toast)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, t Toast)

func (f SinkFunc) Show(ctx context.Context, t Toast) {
	f(ctx, t)
}

// LogSink writes toasts as structured log lines.
type LogSink struct {
	Logger *logger.Logger
}

func (s LogSink) Show(ctx context.Context, t Toast) {
	if s.Logger == nil {
		return
	}
	fields := map[string]any{
		"kind":    string(t.Kind),
		"message": t.Message,
	}
	if t.NotificationID != 0 {
		fields["notification_id"] = t.NotificationID
	}
	if t.Title != "" {
		fields["title"] = t.Title
	}
	s.Logger.Info(s.Logger.WithFields(ctx, fields), "toast")
}

// WriterSink prints one line per toast, e.g. to a terminal.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Show(_ context.Context, t Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Title != "" {
		fmt.Fprintf(s.w, "[%s] %s: %s\n", t.Kind, t.Title, t.Message)
		return
	}
	fmt.Fprintf(s.w, "[%s] %s\n", t.Kind, t.Message)
}

// ChanSink forwards toasts to a channel. Show blocks until the toast is taken
// or ctx ends.
type ChanSink chan Toast

func (s ChanSink) Show(ctx context.Context, t Toast) {
	select {
	case s <- t:
	case <-ctx.Done():
	}
}

// MultiSink fans a toast out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Show(ctx context.Context, t Toast) {
	for _, sink := range m {
		if sink != nil {
			sink.Show(ctx, t)
		}
	}
}
