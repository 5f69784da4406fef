package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
)

const (
	protocolVersion = "7"
	clientName      = "propnest-go"
	clientVersion   = "1.0.0"

	eventConnectionEstablished = "pusher:connection_established"
	eventError                 = "pusher:error"
	eventPing                  = "pusher:ping"
	eventPong                  = "pusher:pong"
	eventSubscribe             = "pusher:subscribe"
	eventUnsubscribe           = "pusher:unsubscribe"
	eventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	eventSubscribedLegacy      = "pusher:subscription_succeeded"
	eventSubscriptionError     = "pusher:subscription_error"

	defaultActivityTimeout = 120 * time.Second
	writeTimeout           = 10 * time.Second
)

type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type protocolError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PusherDialer connects to a Pusher-protocol server (Pusher, Soketi, Laravel Reverb).
type PusherDialer struct {
	// URL is the websocket endpoint, e.g. wss://host:443/app/<key>.
	URL        string
	Authorizer Authorizer
	Logger     *logger.Logger
	WSDialer   *websocket.Dialer
}

var _ Dialer = (*PusherDialer)(nil)

// Dial opens the socket and waits for the server to assign a socket id.
func (d *PusherDialer) Dial(ctx context.Context, token string) (Conn, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required for realtime connection")
	}
	if d.Authorizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "realtime authorizer required")
	}
	target, err := d.socketURL()
	if err != nil {
		return nil, err
	}

	wsDialer := d.WSDialer
	if wsDialer == nil {
		wsDialer = websocket.DefaultDialer
	}
	ws, _, err := wsDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial realtime server")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
	}
	var hello frame
	if err := ws.ReadJSON(&hello); err != nil {
		ws.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read realtime handshake")
	}
	_ = ws.SetReadDeadline(time.Time{})

	switch hello.Event {
	case eventConnectionEstablished:
	case eventError:
		ws.Close()
		var perr protocolError
		_ = json.Unmarshal(unwrapData(hello.Data), &perr)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("realtime server refused connection: %s (%d)", perr.Message, perr.Code))
	default:
		ws.Close()
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unexpected realtime handshake event "+hello.Event)
	}

	var established connectionEstablished
	if err := json.Unmarshal(unwrapData(hello.Data), &established); err != nil || established.SocketID == "" {
		ws.Close()
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime handshake missing socket id")
	}

	activity := defaultActivityTimeout
	if established.ActivityTimeout > 0 {
		activity = time.Duration(established.ActivityTimeout) * time.Second
	}

	logg := d.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	conn := &pusherConn{
		ws:       ws,
		socketID: established.SocketID,
		token:    token,
		auth:     d.Authorizer,
		logg:     logg,
		activity: activity,
		channels: map[string]*pusherChannel{},
		done:     make(chan struct{}),
	}
	go conn.readLoop()
	go conn.pingLoop()
	return conn, nil
}

func (d *PusherDialer) socketURL() (string, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid realtime url")
	}
	q := u.Query()
	q.Set("protocol", protocolVersion)
	q.Set("client", clientName)
	q.Set("version", clientVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type pusherConn struct {
	ws       *websocket.Conn
	socketID string
	token    string
	auth     Authorizer
	logg     *logger.Logger
	activity time.Duration

	writeMu sync.Mutex

	mu       sync.Mutex
	channels map[string]*pusherChannel

	closeOnce sync.Once
	done      chan struct{}
}

type pusherChannel struct {
	conn    *pusherConn
	name    string
	handler Handler
	ready   chan error

	once sync.Once
}

func (c *pusherConn) SocketID() string {
	return c.socketID
}

func (c *pusherConn) Subscribe(ctx context.Context, channel string, handler Handler) (Channel, error) {
	name := PrivateName(channel)
	if handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel handler required")
	}

	c.mu.Lock()
	if _, exists := c.channels[name]; exists {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already subscribed to "+name)
	}
	ch := &pusherChannel{conn: c, name: name, handler: handler, ready: make(chan error, 1)}
	c.channels[name] = ch
	c.mu.Unlock()

	signature, err := c.auth.Authorize(ctx, c.socketID, name, c.token)
	if err != nil {
		c.drop(ch)
		return nil, err
	}

	payload, _ := json.Marshal(map[string]string{"channel": name, "auth": signature})
	if err := c.send(frame{Event: eventSubscribe, Data: payload}); err != nil {
		c.drop(ch)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send subscribe")
	}

	select {
	case err := <-ch.ready:
		if err != nil {
			c.drop(ch)
			return nil, err
		}
		return ch, nil
	case <-ctx.Done():
		c.drop(ch)
		return nil, pkgerrors.Wrap(pkgerrors.CodeCanceled, ctx.Err(), "subscribe canceled")
	case <-c.done:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime connection closed")
	}
}

// Done is closed when the socket is closed locally or by the server.
func (c *pusherConn) Done() <-chan struct{} {
	return c.done
}

func (c *pusherConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()

		c.mu.Lock()
		c.channels = map[string]*pusherChannel{}
		c.mu.Unlock()
	})
	return err
}

func (c *pusherConn) drop(ch *pusherChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.channels[ch.name]; ok && current == ch {
		delete(c.channels, ch.name)
	}
}

func (c *pusherConn) lookup(name string) *pusherChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[name]
}

func (c *pusherConn) send(f frame) error {
	select {
	case <-c.done:
		return pkgerrors.New(pkgerrors.CodeDependency, "realtime connection closed")
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(f)
}

func (c *pusherConn) readLoop() {
	defer c.Close()
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				c.logg.Warn(c.logg.WithField(context.Background(), "error", err.Error()), "realtime.read_failed")
			}
			return
		}
		c.handle(f)
	}
}

func (c *pusherConn) handle(f frame) {
	switch f.Event {
	case eventPing:
		if err := c.send(frame{Event: eventPong, Data: json.RawMessage("{}")}); err != nil {
			c.logg.Warn(context.Background(), "realtime.pong_failed")
		}
	case eventPong:
	case eventSubscriptionSucceeded, eventSubscribedLegacy:
		if ch := c.lookup(f.Channel); ch != nil {
			ch.resolve(nil)
		}
	case eventSubscriptionError:
		if ch := c.lookup(f.Channel); ch != nil {
			ch.resolve(subscriptionError(f))
		}
	case eventError:
		var perr protocolError
		_ = json.Unmarshal(unwrapData(f.Data), &perr)
		ctx := c.logg.WithFields(context.Background(), map[string]any{"code": perr.Code, "message": perr.Message})
		c.logg.Warn(ctx, "realtime.protocol_error")
	default:
		if strings.HasPrefix(f.Event, "pusher:") || strings.HasPrefix(f.Event, "pusher_internal:") {
			return
		}
		ch := c.lookup(f.Channel)
		if ch == nil {
			return
		}
		ch.handler(Event{Channel: f.Channel, Name: f.Event, Data: unwrapData(f.Data)})
	}
}

func (c *pusherConn) pingLoop() {
	ticker := time.NewTicker(c.activity)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(frame{Event: eventPing, Data: json.RawMessage("{}")}); err != nil {
				return
			}
		}
	}
}

func (ch *pusherChannel) Name() string {
	return ch.name
}

func (ch *pusherChannel) Unsubscribe() error {
	var err error
	ch.once.Do(func() {
		ch.conn.drop(ch)
		payload, _ := json.Marshal(map[string]string{"channel": ch.name})
		if sendErr := ch.conn.send(frame{Event: eventUnsubscribe, Data: payload}); sendErr != nil {
			select {
			case <-ch.conn.done:
			default:
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, sendErr, "send unsubscribe")
			}
		}
	})
	return err
}

func (ch *pusherChannel) resolve(err error) {
	select {
	case ch.ready <- err:
	default:
	}
}

func subscriptionError(f frame) error {
	var detail struct {
		Type   string `json:"type"`
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
	_ = json.Unmarshal(unwrapData(f.Data), &detail)
	if detail.Status > 0 {
		return pkgerrors.FromStatus(detail.Status, "subscription to "+f.Channel+" rejected")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "subscription to "+f.Channel+" rejected")
}

// unwrapData strips the JSON-string wrapping Pusher applies to event payloads.
func unwrapData(raw json.RawMessage) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			return []byte(inner)
		}
	}
	return []byte(raw)
}
