// Package realtime defines the transport-neutral surface for authorization-gated
// per-user event streams and ships a Pusher-protocol websocket implementation.
package realtime

import (
	"context"
	"strings"
)

// PrivatePrefix marks authorization-gated channels.
const PrivatePrefix = "private-"

// Event is one application event delivered on a channel. Data holds the raw
// JSON payload with any transport-level string wrapping removed.
type Event struct {
	Channel string
	Name    string
	Data    []byte
}

// Handler receives events in arrival order. Handlers run on the transport's
// read goroutine and must not block for long.
type Handler func(Event)

// Channel is an active subscription.
type Channel interface {
	Name() string
	// Unsubscribe stops delivery. Calling it more than once is a no-op.
	Unsubscribe() error
}

// Conn is a live realtime connection bound to one bearer token.
type Conn interface {
	// Subscribe opens a private channel. The handler is registered before the
	// subscription request is sent so no early event is missed.
	Subscribe(ctx context.Context, channel string, handler Handler) (Channel, error)
	SocketID() string
	Close() error
}

// Terminable is implemented by connections that can end without Close being
// called, for example when the server drops the socket. Done is closed once
// the connection is gone.
type Terminable interface {
	Done() <-chan struct{}
}

// Dialer opens connections configured with a bearer token for private-channel authorization.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, token string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, token string) (Conn, error) {
	return f(ctx, token)
}

// PrivateName returns the fully qualified private channel name.
func PrivateName(channel string) string {
	channel = strings.TrimSpace(channel)
	if strings.HasPrefix(channel, PrivatePrefix) {
		return channel
	}
	return PrivatePrefix + channel
}
