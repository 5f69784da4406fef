package subscriber

import (
	"context"
	"sync"

	"github.com/propnest/propnest-client/internal/notifications"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
	"github.com/propnest/propnest-client/pkg/realtime"
)

// ConnSource hands out the current realtime connection, if any.
type ConnSource interface {
	Get() (realtime.Conn, bool)
}

// Sink receives every decoded notification, typically Store.AddFromRealtime.
type Sink func(notifications.Record)

// Option customizes a Subscriber.
type Option func(*Subscriber)

// WithEvents restricts delivery to the named events. Without it every
// application event on the channel is treated as a notification.
func WithEvents(names ...string) Option {
	return func(s *Subscriber) {
		for _, name := range names {
			if name != "" {
				s.events[name] = struct{}{}
			}
		}
	}
}

// WithMetrics counts decoded and rejected payloads.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(s *Subscriber) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logg *logger.Logger) Option {
	return func(s *Subscriber) {
		if logg != nil {
			s.logg = logg
		}
	}
}

// Subscriber keeps at most one subscription to the current user's private
// notification channel and a most-recent-first buffer of what arrived on it.
type Subscriber struct {
	conns   ConnSource
	namer   ChannelNamer
	sink    Sink
	events  map[string]struct{}
	logg    *logger.Logger
	metrics *metrics.ClientMetrics

	// opMu serializes SetUser and Close; mu guards state and is never held
	// across a network call, so event delivery is not blocked by a subscribe.
	opMu sync.Mutex

	mu      sync.Mutex
	userID  *int64
	conn    realtime.Conn
	channel realtime.Channel
	gen     uint64
	buffer  []notifications.Record
}

// New builds a subscriber. sink may be nil when only the buffer is needed.
func New(conns ConnSource, namer ChannelNamer, sink Sink, opts ...Option) (*Subscriber, error) {
	if conns == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "connection source required")
	}
	if namer == nil {
		namer = ModelChannel{}
	}
	s := &Subscriber{
		conns:  conns,
		namer:  namer,
		sink:   sink,
		events: map[string]struct{}{},
		logg:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetUser points the subscriber at userID. The previous channel is always
// unsubscribed before a new one is opened. A nil id leaves nothing subscribed
// and empties the buffer. Without a live connection nothing is subscribed and
// no error is returned. The same user is subscribed again when the connection
// has been replaced since the last subscribe.
func (s *Subscriber) SetUser(ctx context.Context, userID *int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current, _ := s.conns.Get()

	s.mu.Lock()
	if userID != nil && s.userID != nil && *userID == *s.userID && s.channel != nil && s.conn == current {
		s.mu.Unlock()
		return nil
	}
	prev := s.channel
	s.channel = nil
	s.conn = nil
	s.gen++
	gen := s.gen
	if userID == nil || s.userID == nil || *userID != *s.userID {
		s.buffer = nil
	}
	s.userID = copyID(userID)
	s.mu.Unlock()

	if prev != nil {
		logCtx := s.logg.WithChannel(ctx, prev.Name())
		if err := prev.Unsubscribe(); err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "subscriber.unsubscribe_failed")
		} else {
			s.logg.Debug(logCtx, "subscriber.unsubscribed")
		}
	}

	if userID == nil {
		return nil
	}
	logCtx := s.logg.WithUserID(ctx, *userID)
	conn := current
	if conn == nil {
		s.logg.Debug(logCtx, "subscriber.no_connection")
		return nil
	}

	name := s.namer.Channel(*userID)
	logCtx = s.logg.WithChannel(logCtx, name)
	ch, err := conn.Subscribe(ctx, name, s.handler(gen))
	if err != nil {
		if pkgerrors.IsCanceled(err) {
			s.logg.Debug(logCtx, "subscriber.subscribe_canceled")
		} else {
			s.logg.Error(logCtx, "subscriber.subscribe_failed", err)
		}
		return err
	}

	s.mu.Lock()
	s.channel = ch
	s.conn = conn
	s.mu.Unlock()
	s.logg.Info(logCtx, "subscriber.subscribed")
	return nil
}

// Close unsubscribes and clears the buffer.
func (s *Subscriber) Close() error {
	return s.SetUser(context.Background(), nil)
}

// Buffer returns a copy of the received records, most recent first.
func (s *Subscriber) Buffer() []notifications.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Record, len(s.buffer))
	copy(out, s.buffer)
	return out
}

// UserID returns the user the subscriber is pointed at, or nil.
func (s *Subscriber) UserID() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyID(s.userID)
}

// ChannelName returns the subscribed channel name, empty when none.
func (s *Subscriber) ChannelName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return ""
	}
	return s.channel.Name()
}

func (s *Subscriber) handler(gen uint64) realtime.Handler {
	convention := string(s.namer.Convention())
	return func(event realtime.Event) {
		ctx := s.logg.WithFields(context.Background(), map[string]any{
			"channel": event.Channel,
			"event":   event.Name,
		})
		if len(s.events) > 0 {
			if _, ok := s.events[event.Name]; !ok {
				s.logg.Debug(ctx, "subscriber.event_ignored")
				return
			}
		}

		rec, shape, err := notifications.DecodeRealtime(event.Data)
		if err != nil {
			s.metrics.IncRealtimeRejected(convention)
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "subscriber.payload_rejected")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			s.logg.Debug(ctx, "subscriber.stale_event")
			return
		}
		buffer := make([]notifications.Record, 0, len(s.buffer)+1)
		buffer = append(buffer, rec)
		s.buffer = append(buffer, s.buffer...)
		s.metrics.IncRealtimeEvent(convention, shape.String())
		if s.sink != nil {
			s.sink(rec)
		}
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
