package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/propnest/propnest-client/internal/backend"
	"github.com/propnest/propnest-client/internal/notifications"
	"github.com/propnest/propnest-client/internal/toast"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/db"
	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/realtime"
)

const testToken = "12|opaque-test-token"

type fakeChannel struct {
	name string
	conn *fakeConn
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Unsubscribe() error {
	c.conn.record("unsubscribe:" + c.name)
	return nil
}

type fakeConn struct {
	mu       sync.Mutex
	ops      []string
	handlers map[string]realtime.Handler
}

func (c *fakeConn) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
}

func (c *fakeConn) Subscribe(_ context.Context, channel string, handler realtime.Handler) (realtime.Channel, error) {
	name := realtime.PrivateName(channel)
	c.mu.Lock()
	c.handlers[name] = handler
	c.mu.Unlock()
	c.record("subscribe:" + name)
	return &fakeChannel{name: name, conn: c}, nil
}

func (c *fakeConn) SocketID() string { return "42.1" }

func (c *fakeConn) Close() error {
	c.record("close")
	return nil
}

func (c *fakeConn) emit(channel, data string) {
	c.mu.Lock()
	handler := c.handlers[channel]
	c.mu.Unlock()
	handler(realtime.Event{Channel: channel, Name: "NotificationCreated", Data: []byte(data)})
}

func (c *fakeConn) log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ops...)
}

type recordingSink struct {
	mu     sync.Mutex
	toasts []toast.Toast
}

func (s *recordingSink) Show(_ context.Context, t toast.Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, t)
}

func (s *recordingSink) byKind(kind enums.ToastKind) []toast.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []toast.Toast
	for _, t := range s.toasts {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

type fakeServer struct {
	listStatus atomic.Int32
	markStatus atomic.Int32
	listBody   atomic.Value
}

func newFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	f := &fakeServer{}
	f.listStatus.Store(http.StatusOK)
	f.markStatus.Store(http.StatusNoContent)
	f.listBody.Store(`{"data":[{"id":2,"title":"Payout sent","message":"EUR 120"},{"id":1,"title":"Welcome","message":"hi","is_read":true}],"current_page":1,"last_page":1,"per_page":50,"total":2}`)

	r := chi.NewRouter()
	r.Get("/notifications", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(f.listStatus.Load()))
		_, _ = w.Write([]byte(f.listBody.Load().(string)))
	})
	r.Post("/notifications/{id}/read", func(w http.ResponseWriter, _ *http.Request) {
		status := int(f.markStatus.Load())
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"message":"Server Error"}`))
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

type harness struct {
	app    *App
	conn   *fakeConn
	sink   *recordingSink
	server *fakeServer
}

func newHarness(t *testing.T, dialErr error, cache *notifications.Cache) *harness {
	t.Helper()
	server, baseURL := newFakeServer(t)
	cfg := &config.Config{
		API:      config.APIConfig{BaseURL: baseURL, UserID: 7},
		Realtime: config.RealtimeConfig{Convention: "model", AppKey: "key"},
	}
	h := &harness{
		conn:   &fakeConn{handlers: map[string]realtime.Handler{}},
		sink:   &recordingSink{},
		server: server,
	}
	holderTokens := &tokenBox{}
	client, err := backend.NewClient(baseURL, backend.WithTokenSource(holderTokens))
	require.NoError(t, err)

	dialer := realtime.DialerFunc(func(ctx context.Context, token string) (realtime.Conn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return h.conn, nil
	})
	a, err := New(Params{Config: cfg, Backend: client, Dialer: dialer, Sink: h.sink, Cache: cache})
	require.NoError(t, err)
	holderTokens.holder = a.Session()
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	h.app = a
	return h
}

type tokenBox struct {
	holder interface{ Token() string }
}

func (b *tokenBox) Token() string {
	if b.holder == nil {
		return ""
	}
	return b.holder.Token()
}

func TestLoginFetchesSubscribesAndToasts(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.app.Login(context.Background(), testToken))

	st := h.app.Status()
	assert.True(t, st.Authenticated)
	assert.Equal(t, enums.ConnectionStatusConnected, st.Connection)
	assert.Equal(t, "private-App.Models.User.7", st.Channel)
	assert.Equal(t, 2, st.Notifications)
	assert.Equal(t, 1, st.Unread)
	assert.Len(t, h.sink.byKind(enums.ToastKindNotification), 2)

	h.conn.emit("private-App.Models.User.7", `{"id":3,"title":"New review","message":"5 stars"}`)
	h.conn.emit("private-App.Models.User.7", `{"id":3,"title":"New review","message":"5 stars"}`)

	items := h.app.Store().Items()
	require.Len(t, items, 4)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Len(t, h.sink.byKind(enums.ToastKindNotification), 3, "a repeated id is not toasted twice")
}

func TestReloginSameUserSubscribesOnNewConnection(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, h.app.Login(ctx, testToken))
	first := h.conn

	h.conn = &fakeConn{handlers: map[string]realtime.Handler{}}
	require.NoError(t, h.app.Login(ctx, "12|rotated-test-token"))

	assert.Contains(t, first.log(), "close")
	assert.Equal(t, []string{"subscribe:private-App.Models.User.7"}, h.conn.log())
	assert.Equal(t, "private-App.Models.User.7", h.app.Status().Channel)

	h.conn.emit("private-App.Models.User.7", `{"id":9,"title":"Booking","message":"confirmed"}`)
	items := h.app.Store().Items()
	require.NotEmpty(t, items)
	assert.Equal(t, int64(9), items[0].ID)
}

func TestClearAllResetsStoreAndSeenTogether(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, h.app.Login(ctx, testToken))
	require.Len(t, h.sink.byKind(enums.ToastKindNotification), 2)

	require.NoError(t, h.app.ClearAll(ctx))
	assert.Empty(t, h.app.Store().Items())
	assert.Zero(t, h.app.Toasts().Seen().Len())

	require.NoError(t, h.app.Refresh(ctx))
	assert.Len(t, h.sink.byKind(enums.ToastKindNotification), 4)
}

func TestLogoutUnsubscribesBeforeDisconnecting(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, h.app.Login(ctx, testToken))
	require.NoError(t, h.app.Logout(ctx))

	assert.Equal(t, []string{
		"subscribe:private-App.Models.User.7",
		"unsubscribe:private-App.Models.User.7",
		"close",
	}, h.conn.log())
	st := h.app.Status()
	assert.False(t, st.Authenticated)
	assert.Zero(t, st.Notifications)
	assert.Equal(t, enums.ConnectionStatusDisconnected, st.Connection)

	err := h.app.MarkRead(ctx, 1)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLoginDegradesWithoutRealtime(t *testing.T) {
	h := newHarness(t, pkgerrors.New(pkgerrors.CodeDependency, "socket refused"), nil)
	require.NoError(t, h.app.Login(context.Background(), testToken))

	st := h.app.Status()
	assert.Equal(t, enums.ConnectionStatusError, st.Connection)
	assert.NotEmpty(t, st.ConnectionError)
	assert.Empty(t, st.Channel)
	assert.Equal(t, 2, st.Notifications)
}

func TestLoginRejectsMissingToken(t *testing.T) {
	h := newHarness(t, nil, nil)
	err := h.app.Login(context.Background(), "")
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	assert.Empty(t, h.conn.log())
}

func TestMarkReadFailureKeepsStateAndPrompts(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, h.app.Login(ctx, testToken))
	h.server.markStatus.Store(http.StatusInternalServerError)

	err := h.app.MarkRead(ctx, 2)
	require.Error(t, err)
	for _, rec := range h.app.Store().Items() {
		if rec.ID == 2 {
			assert.False(t, rec.IsRead)
		}
	}
	assert.NotEmpty(t, h.app.Store().Err())
	require.Len(t, h.sink.byKind(enums.ToastKindError), 1)

	h.server.markStatus.Store(http.StatusNoContent)
	require.NoError(t, h.app.MarkRead(ctx, 2))
	assert.Zero(t, h.app.Status().Unread)
}

func TestShutdownSavesSnapshotForWarmStart(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(notifications.Models()...))
	cache, err := notifications.NewCache(db.Wrap(conn))
	require.NoError(t, err)

	ctx := context.Background()
	first := newHarness(t, nil, cache)
	require.NoError(t, first.app.Login(ctx, testToken))
	require.NoError(t, first.app.Shutdown(ctx))

	second := newHarness(t, nil, cache)
	second.server.listStatus.Store(http.StatusUnprocessableEntity)
	second.server.listBody.Store(`{"message":"Invalid page."}`)
	err = second.app.Login(ctx, testToken)
	require.Error(t, err)

	items := second.app.Store().Items()
	require.Len(t, items, 2, "cached snapshot survives a failed first fetch")
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, "Invalid page.", second.app.Store().Err())
}
