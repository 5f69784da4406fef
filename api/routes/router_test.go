package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propnest/propnest-client/api/controllers"
	"github.com/propnest/propnest-client/internal/app"
	"github.com/propnest/propnest-client/internal/notifications"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
)

type fakeRuntime struct {
	status      app.Status
	items       []notifications.Record
	loginFn     func(ctx context.Context, token string) error
	markReadFn  func(ctx context.Context, id int64) error
	refreshes   int
	markedAll   bool
	cleared     bool
	loggedOut   bool
	markedRead  []int64
	loginTokens []string
}

func (f *fakeRuntime) Status() app.Status                    { return f.status }
func (f *fakeRuntime) Notifications() []notifications.Record { return f.items }

func (f *fakeRuntime) Login(ctx context.Context, token string) error {
	f.loginTokens = append(f.loginTokens, token)
	if f.loginFn != nil {
		return f.loginFn(ctx, token)
	}
	f.status.Authenticated = true
	return nil
}

func (f *fakeRuntime) Logout(context.Context) error {
	f.loggedOut = true
	f.status.Authenticated = false
	return nil
}

func (f *fakeRuntime) Refresh(context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeRuntime) MarkRead(ctx context.Context, id int64) error {
	f.markedRead = append(f.markedRead, id)
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id)
	}
	return nil
}

func (f *fakeRuntime) MarkAllRead(context.Context) error {
	f.markedAll = true
	return nil
}

func (f *fakeRuntime) ClearAll(context.Context) error {
	f.cleared = true
	return nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func serve(t *testing.T, h http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func sampleItems() []notifications.Record {
	return []notifications.Record{
		{ID: 3, Title: "Booking confirmed", IsRead: false},
		{ID: 2, Title: "New review", IsRead: true},
		{ID: 1, Title: "Price drop", IsRead: false},
	}
}

func TestHealthLive(t *testing.T) {
	h := NewRouter(testConfig(), logger.Nop(), &fakeRuntime{}, nil, nil)
	rec, _ := serve(t, h, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Propnest-Env"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealthReadyReportsRuntimeStatus(t *testing.T) {
	rt := &fakeRuntime{status: app.Status{Authenticated: true, RealtimeEnabled: true, Connection: enums.ConnectionStatusConnected, Unread: 2}}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, map[string]controllers.Pinger{"cache": stubPinger{}})

	rec, env := serve(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Runtime app.Status        `json:"runtime"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, map[string]string{"cache": "ok"}, body.Checks)
	assert.Equal(t, 2, body.Runtime.Unread)
}

func TestHealthReadyDegradedOnRealtimeError(t *testing.T) {
	rt := &fakeRuntime{status: app.Status{RealtimeEnabled: true, Connection: enums.ConnectionStatusError}}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, _ := serve(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthReadyIgnoresConnectionWhenRealtimeDisabled(t *testing.T) {
	rt := &fakeRuntime{status: app.Status{RealtimeEnabled: false, Connection: enums.ConnectionStatusError}}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, _ := serve(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReadyDegradedOnFailedPing(t *testing.T) {
	h := NewRouter(testConfig(), logger.Nop(), &fakeRuntime{}, nil, map[string]controllers.Pinger{
		"cache": stubPinger{},
		"redis": stubPinger{err: errors.New("connection refused")},
	})

	rec, env := serve(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), `"redis":"unavailable"`)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)
	m.IncToast("notification")

	h := NewRouter(testConfig(), logger.Nop(), &fakeRuntime{}, reg, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "propnest_client_toasts_total")
}

func TestListNotificationsFilters(t *testing.T) {
	rt := &fakeRuntime{items: sampleItems()}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, env := serve(t, h, http.MethodGet, "/api/v1/notifications?unread=true&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items  []notifications.Record `json:"items"`
		Total  int                    `json:"total"`
		Unread int                    `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, int64(3), body.Items[0].ID)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Unread)
	assert.Zero(t, rt.refreshes)
}

func TestListNotificationsRefreshAndBadQuery(t *testing.T) {
	rt := &fakeRuntime{items: sampleItems()}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, _ := serve(t, h, http.MethodGet, "/api/v1/notifications?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, rt.refreshes)

	rec, env := serve(t, h, http.MethodGet, "/api/v1/notifications?limit=0", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), env.Error.Code)
}

func TestMarkReadRoute(t *testing.T) {
	rt := &fakeRuntime{}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, _ := serve(t, h, http.MethodPost, "/api/v1/notifications/42/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, rt.markedRead)

	rec, _ = serve(t, h, http.MethodPost, "/api/v1/notifications/abc/read", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []int64{42}, rt.markedRead)
}

func TestMarkReadUnauthorizedSurfacesMessage(t *testing.T) {
	rt := &fakeRuntime{markReadFn: func(context.Context, int64) error {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, env := serve(t, h, http.MethodPost, "/api/v1/notifications/7/read", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login required", env.Error.Message)
}

func TestMarkAllAndClear(t *testing.T) {
	rt := &fakeRuntime{}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, _ := serve(t, h, http.MethodPost, "/api/v1/notifications/read-all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, rt.markedAll)

	rec, _ = serve(t, h, http.MethodPost, "/api/v1/notifications/clear", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, rt.cleared)
}

func TestSessionLoginAndLogout(t *testing.T) {
	rt := &fakeRuntime{}
	h := NewRouter(testConfig(), logger.Nop(), rt, nil, nil)

	rec, env := serve(t, h, http.MethodPost, "/api/v1/session", `{"token":"12|abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"12|abc"}, rt.loginTokens)
	assert.Contains(t, string(env.Data), `"authenticated":true`)

	rec, env = serve(t, h, http.MethodPost, "/api/v1/session", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "token is required.", env.Error.Message)

	rec, _ = serve(t, h, http.MethodDelete, "/api/v1/session", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, rt.loggedOut)
}

func TestControlRoutesRequireStatusToken(t *testing.T) {
	cfg := testConfig()
	cfg.Status.Token = "local-secret"
	rt := &fakeRuntime{items: sampleItems()}
	h := NewRouter(cfg, logger.Nop(), rt, nil, nil)

	rec, _ := serve(t, h, http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/api/v1/notifications", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/api/v1/notifications", "", "Authorization", "Bearer local-secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
