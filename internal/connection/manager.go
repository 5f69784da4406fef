package connection

import (
	"context"
	"strings"
	"sync"

	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
	"github.com/propnest/propnest-client/pkg/realtime"
)

// Manager owns at most one live realtime connection. It is an ordinary value:
// callers construct and inject it, so isolated instances can coexist.
type Manager struct {
	dialer  realtime.Dialer
	logg    *logger.Logger
	metrics *metrics.ClientMetrics

	mu      sync.Mutex
	conn    realtime.Conn
	status  enums.ConnectionStatus
	lastErr error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithMetrics records connection outcomes.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// NewManager builds a manager around dialer.
func NewManager(dialer realtime.Dialer, logg *logger.Logger, opts ...Option) (*Manager, error) {
	if dialer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime dialer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	m := &Manager{dialer: dialer, logg: logg, status: enums.ConnectionStatusDisconnected}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Connect closes any live connection and dials a new one bound to token.
// Dial failures are returned as-is; the manager never retries.
func (m *Manager) Connect(ctx context.Context, token string) (realtime.Conn, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "realtime.close_previous_failed")
		}
		m.conn = nil
	}

	conn, err := m.dialer.Dial(ctx, token)
	if err != nil {
		m.status = enums.ConnectionStatusError
		m.lastErr = err
		m.metrics.IncConnection("failed")
		if pkgerrors.IsCanceled(err) {
			m.logg.Debug(ctx, "realtime.connect_canceled")
		} else {
			m.logg.Error(ctx, "realtime.connect_failed", err)
		}
		return nil, err
	}

	m.conn = conn
	m.status = enums.ConnectionStatusConnected
	m.lastErr = nil
	m.metrics.IncConnection("connected")
	m.logg.Info(m.logg.WithField(ctx, "socket_id", conn.SocketID()), "realtime.connected")
	return conn, nil
}

// Get returns the live connection, or false when there is none.
func (m *Manager) Get() (realtime.Conn, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkDroppedLocked()
	return m.conn, m.conn != nil
}

// Disconnect closes and forgets the live connection. It is a no-op without one.
func (m *Manager) Disconnect() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.status = enums.ConnectionStatusDisconnected
	m.lastErr = nil
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close realtime connection")
	}
	return nil
}

// Status reports the connection state and the last error, if any. A
// connection the server dropped reports ConnectionStatusError.
func (m *Manager) Status() (enums.ConnectionStatus, error) {
	if m == nil {
		return enums.ConnectionStatusDisconnected, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkDroppedLocked()
	return m.status, m.lastErr
}

// checkDroppedLocked forgets a connection that ended on its own. m.mu must be held.
func (m *Manager) checkDroppedLocked() {
	t, ok := m.conn.(realtime.Terminable)
	if !ok {
		return
	}
	select {
	case <-t.Done():
	default:
		return
	}
	socketID := m.conn.SocketID()
	m.conn = nil
	m.status = enums.ConnectionStatusError
	m.lastErr = pkgerrors.New(pkgerrors.CodeDependency, "realtime connection closed")
	m.metrics.IncConnection("dropped")
	m.logg.Warn(m.logg.WithField(context.Background(), "socket_id", socketID), "realtime.connection_dropped")
}
