package redis

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/realtime"
)

// broadcastPayload is the envelope Laravel's redis broadcaster publishes.
type broadcastPayload struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Socket *string         `json:"socket"`
}

// BroadcastDialer reads private channels straight from the backend's redis
// broadcaster. Authorization is left to the network boundary, so the token is
// only checked for presence.
type BroadcastDialer struct {
	Client *Client
	// Prefix is prepended to every channel name (Laravel's database.redis.options.prefix).
	Prefix string
	Logger *logger.Logger
}

var _ realtime.Dialer = (*BroadcastDialer)(nil)

func (d *BroadcastDialer) Dial(ctx context.Context, token string) (realtime.Conn, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required for realtime connection")
	}
	if d.Client == nil || d.Client.subscribe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis client not initialized")
	}
	if err := d.Client.Ping(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ping redis broadcaster")
	}
	logg := d.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &broadcastConn{
		client:   d.Client,
		prefix:   d.Prefix,
		socketID: uuid.NewString(),
		logg:     logg,
		channels: map[string]*broadcastChannel{},
	}, nil
}

type broadcastConn struct {
	client   *Client
	prefix   string
	socketID string
	logg     *logger.Logger

	mu       sync.Mutex
	closed   bool
	channels map[string]*broadcastChannel
}

type broadcastChannel struct {
	conn    *broadcastConn
	name    string
	ps      pubSub
	handler realtime.Handler
	done    chan struct{}

	once sync.Once
}

func (c *broadcastConn) SocketID() string {
	return c.socketID
}

func (c *broadcastConn) Subscribe(ctx context.Context, channel string, handler realtime.Handler) (realtime.Channel, error) {
	if handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel handler required")
	}
	name := realtime.PrivateName(channel)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime connection closed")
	}
	if _, exists := c.channels[name]; exists {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already subscribed to "+name)
	}
	ch := &broadcastChannel{conn: c, name: name, handler: handler, done: make(chan struct{})}
	c.channels[name] = ch
	c.mu.Unlock()

	ps := c.client.subscribe(context.WithoutCancel(ctx), c.prefix+name)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		c.drop(ch)
		if ctx.Err() != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeCanceled, ctx.Err(), "subscribe canceled")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe "+name)
	}
	ch.ps = ps
	go ch.run()
	return ch, nil
}

func (c *broadcastConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	open := make([]*broadcastChannel, 0, len(c.channels))
	for _, ch := range c.channels {
		open = append(open, ch)
	}
	c.mu.Unlock()

	var firstErr error
	for _, ch := range open {
		if err := ch.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *broadcastConn) drop(ch *broadcastChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.channels[ch.name]; ok && current == ch {
		delete(c.channels, ch.name)
	}
}

func (ch *broadcastChannel) Name() string {
	return ch.name
}

func (ch *broadcastChannel) Unsubscribe() error {
	var err error
	ch.once.Do(func() {
		ch.conn.drop(ch)
		if ch.ps != nil {
			if closeErr := ch.ps.Close(); closeErr != nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, closeErr, "unsubscribe "+ch.name)
			}
		}
	})
	return err
}

func (ch *broadcastChannel) run() {
	defer close(ch.done)
	for msg := range ch.ps.Channel() {
		event, ok := ch.decode(msg)
		if !ok {
			continue
		}
		ch.handler(event)
	}
}

func (ch *broadcastChannel) decode(msg *redis.Message) (realtime.Event, bool) {
	var payload broadcastPayload
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil || payload.Event == "" {
		ctx := ch.conn.logg.WithFields(context.Background(), map[string]any{"channel": ch.name})
		ch.conn.logg.Warn(ctx, "realtime.redis_payload_invalid")
		return realtime.Event{}, false
	}
	if payload.Socket != nil && *payload.Socket == ch.conn.socketID {
		return realtime.Event{}, false
	}
	return realtime.Event{Channel: ch.name, Name: payload.Event, Data: []byte(payload.Data)}, true
}
