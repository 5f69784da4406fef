package listing

import (
	"context"
	"reflect"
	"sync"
	"time"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/pagination"
	"github.com/propnest/propnest-client/pkg/validators"
)

// Page is one page of results plus the backend's pagination fields.
type Page[T any] struct {
	Items []T
	Meta  pagination.Meta
}

// Fetcher loads one page for a query. It must honour ctx cancellation.
type Fetcher[Q, T any] func(ctx context.Context, q Q) (*Page[T], error)

// State is what a list screen renders.
type State[T any] struct {
	Loading bool              `json:"loading"`
	Err     string            `json:"error,omitempty"`
	Items   []T               `json:"items"`
	Window  pagination.Window `json:"pagination"`
	// Loaded is true once any request has completed successfully.
	Loaded bool `json:"loaded"`
}

type settings struct {
	resource string
	debounce time.Duration
	logg     *logger.Logger
	onChange func()
}

// validatable queries carry cross-field rules the struct tags cannot express.
type validatable interface {
	Validate() error
}

// Option customizes a Loader.
type Option func(*settings)

// WithResource names the resource in user-facing errors ("failed to load <resource>").
func WithResource(name string) Option {
	return func(s *settings) {
		s.resource = name
	}
}

// WithDebounce waits d before issuing a request; a newer Load within d
// replaces the pending one without any request being sent.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		s.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(logg *logger.Logger) Option {
	return func(s *settings) {
		if logg != nil {
			s.logg = logg
		}
	}
}

// WithOnChange registers a callback fired after every state change.
func WithOnChange(fn func()) Option {
	return func(s *settings) {
		s.onChange = fn
	}
}

// Loader runs the fetch-on-change pattern: each Load cancels the previous run
// and only the most recent run may commit.
type Loader[Q, T any] struct {
	fetch Fetcher[Q, T]
	opts  settings

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
	state  State[T]
}

// New builds a loader around fetch.
func New[Q, T any](fetch Fetcher[Q, T], opts ...Option) *Loader[Q, T] {
	cfg := settings{resource: "results", logg: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader[Q, T]{fetch: fetch, opts: cfg}
}

// Load supersedes any in-flight run with a run for q. The returned channel is
// closed once this run has settled, whether it committed or not.
func (l *Loader[Q, T]) Load(q Q) <-chan struct{} {
	done := make(chan struct{})

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(done)
		return done
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.state.Loading = true
	l.mu.Unlock()
	l.changed()

	go func() {
		defer close(done)
		defer cancel()
		page, err := l.run(ctx, q)
		l.commit(ctx, gen, page, err)
	}()
	return done
}

func (l *Loader[Q, T]) run(ctx context.Context, q Q) (*Page[T], error) {
	if l.opts.debounce > 0 {
		timer := time.NewTimer(l.opts.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if isStruct(q) {
		if err := validators.Struct(q); err != nil {
			return nil, err
		}
	}
	if v, ok := any(q).(validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return l.fetch(ctx, q)
}

func (l *Loader[Q, T]) commit(ctx context.Context, gen uint64, page *Page[T], err error) {
	l.mu.Lock()
	if gen != l.gen || l.closed {
		l.mu.Unlock()
		return
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	l.state.Loading = false
	l.cancel = nil
	logCtx := l.opts.logg.WithField(context.Background(), "resource", l.opts.resource)
	switch {
	case err == nil:
		l.state.Err = ""
		l.state.Loaded = true
		if page != nil {
			l.state.Items = page.Items
			l.state.Window = pagination.NewWindow(page.Meta)
		} else {
			l.state.Items = nil
			l.state.Window = pagination.Window{}
		}
		l.mu.Unlock()
	case pkgerrors.IsCanceled(err):
		l.mu.Unlock()
		l.opts.logg.Debug(logCtx, "listing.request_canceled")
	default:
		l.state.Err = pkgerrors.UserMessage(err, l.opts.resource)
		l.mu.Unlock()
		if pkgerrors.CodeOf(err) == pkgerrors.CodeValidation {
			l.opts.logg.Warn(l.opts.logg.WithField(logCtx, "error", err.Error()), "listing.query_invalid")
		} else {
			l.opts.logg.Error(logCtx, "listing.request_failed", err)
		}
	}
	l.changed()
}

// State returns a copy of the current state.
func (l *Loader[Q, T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.state
	if l.state.Items != nil {
		out.Items = make([]T, len(l.state.Items))
		copy(out.Items, l.state.Items)
	}
	return out
}

// Close cancels in-flight work. Nothing commits afterwards.
func (l *Loader[Q, T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.gen++
	l.state.Loading = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Loader[Q, T]) changed() {
	if l.opts.onChange != nil {
		l.opts.onChange()
	}
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		if reflect.ValueOf(v).IsNil() {
			return false
		}
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
