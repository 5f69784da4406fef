package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/realtime"
)

type fakePubSub struct {
	channel    string
	messages   chan *redis.Message
	receiveErr error

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func (f *fakePubSub) Receive(context.Context) (interface{}, error) {
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	return &redis.Subscription{Kind: "subscribe", Channel: f.channel, Count: 1}, nil
}

func (f *fakePubSub) Channel(...redis.ChannelOption) <-chan *redis.Message {
	return f.messages
}

func (f *fakePubSub) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.messages)
	})
	return nil
}

func (f *fakePubSub) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeBroker struct {
	mu         sync.Mutex
	subs       map[string]*fakePubSub
	receiveErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: map[string]*fakePubSub{}}
}

func (b *fakeBroker) subscribe(_ context.Context, channels ...string) pubSub {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := &fakePubSub{channel: channels[0], messages: make(chan *redis.Message, 8), receiveErr: b.receiveErr}
	b.subs[channels[0]] = ps
	return ps
}

func (b *fakeBroker) get(channel string) *fakePubSub {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[channel]
}

func (b *fakeBroker) publish(channel, payload string) {
	b.get(channel).messages <- &redis.Message{Channel: channel, Payload: payload}
}

func dialBroadcast(t *testing.T, broker *fakeBroker) realtime.Conn {
	t.Helper()
	dialer := &BroadcastDialer{
		Client: &Client{store: &mockCmdable{}, subscribe: broker.subscribe},
		Prefix: "propnest_database_",
	}
	conn, err := dialer.Dial(context.Background(), "token")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastDialRequiresToken(t *testing.T) {
	dialer := &BroadcastDialer{Client: &Client{store: &mockCmdable{}, subscribe: newFakeBroker().subscribe}}
	_, err := dialer.Dial(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestBroadcastDialPingFailure(t *testing.T) {
	dialer := &BroadcastDialer{Client: &Client{
		store:     &mockCmdable{pingErr: errors.New("refused")},
		subscribe: newFakeBroker().subscribe,
	}}
	_, err := dialer.Dial(context.Background(), "token")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestBroadcastSubscribeDeliversEvents(t *testing.T) {
	broker := newFakeBroker()
	conn := dialBroadcast(t, broker)

	events := make(chan realtime.Event, 4)
	ch, err := conn.Subscribe(context.Background(), "App.Models.User.5", func(e realtime.Event) { events <- e })
	require.NoError(t, err)
	assert.Equal(t, "private-App.Models.User.5", ch.Name())

	key := "propnest_database_private-App.Models.User.5"
	require.NotNil(t, broker.get(key))

	broker.publish(key, `not json`)
	broker.publish(key, `{"event":"Illuminate\\Notifications\\Events\\BroadcastNotificationCreated","data":{"id":"n-1","message":"hello"},"socket":null}`)
	broker.publish(key, `{"event":"NotificationCreated","data":{"id":"n-2"},"socket":"`+conn.SocketID()+`"}`)

	select {
	case got := <-events:
		assert.Equal(t, "private-App.Models.User.5", got.Channel)
		assert.Equal(t, `Illuminate\Notifications\Events\BroadcastNotificationCreated`, got.Name)
		assert.JSONEq(t, `{"id":"n-1","message":"hello"}`, string(got.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	require.NoError(t, ch.Unsubscribe())
	select {
	case got := <-events:
		t.Fatalf("events published by this socket must be skipped, got %+v", got)
	default:
	}
}

func TestBroadcastSubscribeTwiceIsConflict(t *testing.T) {
	conn := dialBroadcast(t, newFakeBroker())
	_, err := conn.Subscribe(context.Background(), "user.3", func(realtime.Event) {})
	require.NoError(t, err)
	_, err = conn.Subscribe(context.Background(), "user.3", func(realtime.Event) {})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestBroadcastSubscribeFailureReleasesChannel(t *testing.T) {
	broker := newFakeBroker()
	conn := dialBroadcast(t, broker)

	broker.receiveErr = errors.New("NOPERM")
	_, err := conn.Subscribe(context.Background(), "user.3", func(realtime.Event) {})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	broker.receiveErr = nil
	_, err = conn.Subscribe(context.Background(), "user.3", func(realtime.Event) {})
	require.NoError(t, err)
}

func TestBroadcastCloseUnsubscribesAll(t *testing.T) {
	broker := newFakeBroker()
	conn := dialBroadcast(t, broker)

	_, err := conn.Subscribe(context.Background(), "user.1", func(realtime.Event) {})
	require.NoError(t, err)
	_, err = conn.Subscribe(context.Background(), "user.2", func(realtime.Event) {})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.True(t, broker.get("propnest_database_private-user.1").isClosed())
	assert.True(t, broker.get("propnest_database_private-user.2").isClosed())

	_, err = conn.Subscribe(context.Background(), "user.3", func(realtime.Event) {})
	require.Error(t, err)
	require.NoError(t, conn.Close())
}
