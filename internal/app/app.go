package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/propnest/propnest-client/internal/checkout"
	"github.com/propnest/propnest-client/internal/connection"
	"github.com/propnest/propnest-client/internal/notifications"
	"github.com/propnest/propnest-client/internal/session"
	"github.com/propnest/propnest-client/internal/subscriber"
	"github.com/propnest/propnest-client/internal/toast"
	"github.com/propnest/propnest-client/internal/wishlist"
	"github.com/propnest/propnest-client/internal/withdrawals"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
	"github.com/propnest/propnest-client/pkg/realtime"
)

// Backend is every remote API the runtime calls.
type Backend interface {
	notifications.API
	wishlist.API
	withdrawals.API
	checkout.API
}

// Params groups dependencies for the runtime.
type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
	Backend Backend
	// Dialer is nil when realtime is disabled.
	Dialer realtime.Dialer
	Sink   toast.Sink
	// Cache is optional; when set the store is warmed from it on login and
	// saved to it on shutdown.
	Cache    *notifications.Cache
	Redirect func()
	// Session is shared with the backend client as its token source. A fresh
	// holder is created when nil.
	Session *session.Holder
}

// App owns the notification pipeline and the session-bound services.
type App struct {
	cfg   *config.Config
	logg  *logger.Logger
	cache *notifications.Cache

	session     *session.Holder
	conns       *connection.Manager
	subscriber  *subscriber.Subscriber
	store       *notifications.Store
	toasts      *toast.Dispatcher
	wishlist    *wishlist.Service
	withdrawals *withdrawals.Service
	checkout    *checkout.Service

	opMu      sync.Mutex
	stopWatch func()
	closed    bool
}

// New wires the runtime. Nothing is connected until Login.
func New(p Params) (*App, error) {
	if p.Config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config is required")
	}
	if p.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend is required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	sink := p.Sink
	if sink == nil {
		sink = toast.LogSink{Logger: logg}
	}

	holder := p.Session
	if holder == nil {
		holder = &session.Holder{}
	}
	a := &App{cfg: p.Config, logg: logg, cache: p.Cache, session: holder}

	if p.Dialer != nil {
		conns, err := connection.NewManager(p.Dialer, logg, connection.WithMetrics(p.Metrics))
		if err != nil {
			return nil, err
		}
		a.conns = conns
	}

	store, err := notifications.NewStore(p.Backend, logg)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.toasts = toast.NewDispatcher(sink,
		toast.WithCapacity(p.Config.Toast.SeenCapacity),
		toast.WithMetrics(p.Metrics),
	)

	sub, err := subscriber.New(a.conns, subscriber.NamerFor(enums.ChannelConvention(p.Config.Realtime.Convention)), store.AddFromRealtime,
		subscriber.WithEvents(p.Config.Realtime.Events...),
		subscriber.WithMetrics(p.Metrics),
		subscriber.WithLogger(logg),
	)
	if err != nil {
		return nil, err
	}
	a.subscriber = sub

	if a.wishlist, err = wishlist.NewService(wishlist.ServiceParams{
		API:           p.Backend,
		Auth:          a.session,
		Prompter:      a.toasts,
		Logger:        logg,
		Redirect:      p.Redirect,
		RedirectDelay: p.Config.Toast.LoginRedirect,
	}); err != nil {
		return nil, err
	}
	if a.withdrawals, err = withdrawals.NewService(p.Backend, logg); err != nil {
		return nil, err
	}
	if a.checkout, err = checkout.NewService(p.Backend, logg); err != nil {
		return nil, err
	}

	a.stopWatch = store.Watch(func(items []notifications.Record) {
		a.toasts.Observe(context.Background(), items)
	})
	return a, nil
}

// Login binds the runtime to token: the local cache seeds the store, the
// realtime channel for the user is opened and the first page is fetched.
// Realtime failures degrade to fetch-only operation and are not returned.
func (a *App) Login(ctx context.Context, token string) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	if a.closed {
		return pkgerrors.New(pkgerrors.CodeConflict, "runtime is shut down")
	}

	s, err := session.Resolve(token, a.cfg.API.UserID)
	if err != nil {
		return err
	}
	if current, ok := a.session.Current(); ok && current.UserID != s.UserID {
		if err := a.logoutLocked(ctx); err != nil {
			a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "app.switch_user_cleanup_failed")
		}
	}
	a.session.Set(s)
	ctx = a.logg.WithUserID(ctx, s.UserID)

	a.warmStart(ctx, s.UserID)

	if a.conns != nil {
		if _, err := a.conns.Connect(ctx, s.Token); err != nil && !pkgerrors.IsCanceled(err) {
			a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "app.realtime_unavailable")
		}
	}
	id := s.UserID
	if err := a.subscriber.SetUser(ctx, &id); err != nil && !pkgerrors.IsCanceled(err) {
		a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "app.subscribe_unavailable")
	}

	if err := a.store.Fetch(ctx, s.UserID); err != nil {
		return err
	}
	a.logg.Info(a.logg.WithField(ctx, "unread", a.store.UnreadCount()), "app.logged_in")
	return nil
}

// Logout tears down the realtime channel and forgets all user state.
func (a *App) Logout(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	return a.logoutLocked(ctx)
}

func (a *App) logoutLocked(ctx context.Context) error {
	var errs error
	userID := a.store.UserID()
	errs = multierr.Append(errs, a.subscriber.SetUser(ctx, nil))
	errs = multierr.Append(errs, a.conns.Disconnect())
	a.store.Reset()
	a.toasts.Reset()
	a.wishlist.Reset()
	a.session.Clear()
	if a.cache != nil && userID != 0 {
		errs = multierr.Append(errs, a.cache.Forget(ctx, userID))
	}
	a.logg.Info(a.logg.WithUserID(ctx, userID), "app.logged_out")
	return errs
}

// Refresh refetches the first page of notifications.
func (a *App) Refresh(ctx context.Context) error {
	userID, err := a.requireUser()
	if err != nil {
		return err
	}
	return a.store.Fetch(ctx, userID)
}

// MarkRead marks one notification read. Failures surface as an error toast.
func (a *App) MarkRead(ctx context.Context, id int64) error {
	userID, err := a.requireUser()
	if err != nil {
		return err
	}
	if err := a.store.MarkRead(ctx, userID, id); err != nil {
		a.promptFailure(ctx, err)
		return err
	}
	return nil
}

// MarkAllRead marks every notification read.
func (a *App) MarkAllRead(ctx context.Context) error {
	userID, err := a.requireUser()
	if err != nil {
		return err
	}
	if err := a.store.MarkAllRead(ctx, userID); err != nil {
		a.promptFailure(ctx, err)
		return err
	}
	return nil
}

// ClearAll empties the local collection and the toast seen-set together, so
// notifications that come back later toast again.
func (a *App) ClearAll(ctx context.Context) error {
	a.store.ClearWith(a.toasts.Reset)
	if a.cache == nil {
		return nil
	}
	if userID := a.store.UserID(); userID != 0 {
		return a.cache.Forget(ctx, userID)
	}
	return nil
}

// Status is a point-in-time view of the runtime.
type Status struct {
	Authenticated   bool                   `json:"authenticated"`
	UserID          *int64                 `json:"user_id,omitempty"`
	RealtimeEnabled bool                   `json:"realtime_enabled"`
	Connection      enums.ConnectionStatus `json:"connection"`
	ConnectionError string                 `json:"connection_error,omitempty"`
	Channel         string                 `json:"channel,omitempty"`
	Notifications   int                    `json:"notifications"`
	Unread          int                    `json:"unread"`
	Loading         bool                   `json:"loading"`
	Error           string                 `json:"error,omitempty"`
}

// Status reports the current state.
func (a *App) Status() Status {
	connStatus, connErr := a.conns.Status()
	st := Status{
		Authenticated:   a.session.Authenticated(),
		UserID:          a.session.UserID(),
		RealtimeEnabled: a.conns != nil,
		Connection:      connStatus,
		Channel:         a.subscriber.ChannelName(),
		Notifications:   len(a.store.Items()),
		Unread:          a.store.UnreadCount(),
		Loading:         a.store.Loading(),
		Error:           a.store.Err(),
	}
	if connErr != nil {
		st.ConnectionError = pkgerrors.UserMessage(connErr, "realtime connection")
	}
	return st
}

// Shutdown saves the cache snapshot and releases every resource. It is safe
// to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var errs error
	if a.cache != nil {
		if userID := a.store.UserID(); userID != 0 {
			errs = multierr.Append(errs, a.cache.SaveSnapshot(ctx, userID, a.store.Items()))
		}
	}
	if a.stopWatch != nil {
		a.stopWatch()
	}
	errs = multierr.Append(errs, a.subscriber.Close())
	errs = multierr.Append(errs, a.conns.Disconnect())
	a.store.Close()
	a.wishlist.Reset()
	if errs != nil {
		a.logg.Error(ctx, "app.shutdown_incomplete", errs)
	}
	return errs
}

// Notifications returns the local collection, most recent first.
func (a *App) Notifications() []notifications.Record { return a.store.Items() }

func (a *App) Store() *notifications.Store        { return a.store }
func (a *App) Toasts() *toast.Dispatcher          { return a.toasts }
func (a *App) Session() *session.Holder           { return a.session }
func (a *App) Wishlist() *wishlist.Service        { return a.wishlist }
func (a *App) Withdrawals() *withdrawals.Service  { return a.withdrawals }
func (a *App) Checkout() *checkout.Service        { return a.checkout }
func (a *App) Connection() *connection.Manager    { return a.conns }
func (a *App) Subscriber() *subscriber.Subscriber { return a.subscriber }

func (a *App) requireUser() (int64, error) {
	s, ok := a.session.Current()
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return s.UserID, nil
}

func (a *App) warmStart(ctx context.Context, userID int64) {
	if a.cache == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	items, err := a.cache.LoadSnapshot(cacheCtx, userID)
	if err != nil {
		a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "app.cache_load_failed")
		return
	}
	if len(items) > 0 && a.store.Seed(userID, items) {
		a.logg.Debug(a.logg.WithField(ctx, "count", len(items)), "app.cache_seeded")
	}
}

func (a *App) promptFailure(ctx context.Context, err error) {
	if pkgerrors.IsCanceled(err) {
		return
	}
	kind := enums.ToastKindError
	if pkgerrors.CodeOf(err) == pkgerrors.CodeUnauthorized {
		kind = enums.ToastKindLoginPrompt
	}
	a.toasts.Prompt(ctx, kind, pkgerrors.UserMessage(err, "notifications"))
}
