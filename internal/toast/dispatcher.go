package toast

import (
	"context"
	"sync"
	"time"

	"github.com/propnest/propnest-client/internal/notifications"
	"github.com/propnest/propnest-client/pkg/enums"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
)

// Toast is a transient alert.
type Toast struct {
	NotificationID int64           `json:"notification_id,omitempty"`
	Kind           enums.ToastKind `json:"kind"`
	Title          string          `json:"title,omitempty"`
	Message        string          `json:"message"`
	At             time.Time       `json:"at"`
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithCapacity bounds the seen set.
func WithCapacity(capacity int) Option {
	return func(d *Dispatcher) {
		d.seen = NewSeenSet(capacity)
	}
}

// WithMetrics counts emitted toasts by kind.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// SkipRead marks already-read records as seen without toasting them, so the
// first fetch after login does not replay history.
func SkipRead() Option {
	return func(d *Dispatcher) {
		d.skipRead = true
	}
}

// WithClock overrides the toast timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher surfaces each notification id exactly once until Reset.
type Dispatcher struct {
	mu       sync.Mutex
	seen     *SeenSet
	sink     Sink
	metrics  *metrics.ClientMetrics
	skipRead bool
	now      func() time.Time
}

// NewDispatcher builds a dispatcher writing to sink.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	if sink == nil {
		sink = LogSink{Logger: logger.Nop()}
	}
	d := &Dispatcher{
		seen: NewSeenSet(0),
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe toasts every record whose id has not been seen, oldest first, and
// returns how many toasts were emitted. items are most recent first.
func (d *Dispatcher) Observe(ctx context.Context, items []notifications.Record) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := make(map[int64]struct{}, len(items))
	emitted := 0
	for i := len(items) - 1; i >= 0; i-- {
		rec := items[i]
		current[rec.ID] = struct{}{}
		if !d.seen.Add(rec.ID) {
			continue
		}
		if d.skipRead && rec.IsRead {
			continue
		}
		d.emit(ctx, Toast{
			NotificationID: rec.ID,
			Kind:           enums.ToastKindNotification,
			Title:          rec.Title,
			Message:        rec.Message,
		})
		emitted++
	}
	d.seen.Prune(current)
	return emitted
}

// Prompt shows a toast that is not tied to a notification.
func (d *Dispatcher) Prompt(ctx context.Context, kind enums.ToastKind, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emit(ctx, Toast{Kind: kind, Message: message})
}

// Reset forgets every surfaced id. It pairs with clearing the store.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Reset()
}

// Seen exposes the set for inspection.
func (d *Dispatcher) Seen() *SeenSet {
	return d.seen
}

func (d *Dispatcher) emit(ctx context.Context, t Toast) {
	t.At = d.now()
	d.metrics.IncToast(string(t.Kind))
	d.sink.Show(ctx, t)
}
