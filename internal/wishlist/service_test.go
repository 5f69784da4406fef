package wishlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propnest/propnest-client/internal/properties"
	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

type fakeAPI struct {
	mu       sync.Mutex
	added    []int64
	removed  []int64
	listFn   func(ctx context.Context) ([]properties.Property, error)
	addErr   error
	removeFn func(ctx context.Context, id int64) error
}

func (f *fakeAPI) ListWishlist(ctx context.Context) ([]properties.Property, error) {
	return f.listFn(ctx)
}

func (f *fakeAPI) AddToWishlist(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.added = append(f.added, id)
	f.mu.Unlock()
	return f.addErr
}

func (f *fakeAPI) RemoveFromWishlist(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.removed = append(f.removed, id)
	f.mu.Unlock()
	if f.removeFn != nil {
		return f.removeFn(ctx, id)
	}
	return nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added) + len(f.removed)
}

type fakeAuth bool

func (a fakeAuth) Authenticated() bool { return bool(a) }

type prompt struct {
	kind    enums.ToastKind
	message string
}

type recordingPrompter struct {
	mu      sync.Mutex
	prompts []prompt
}

func (r *recordingPrompter) Prompt(_ context.Context, kind enums.ToastKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt{kind: kind, message: message})
}

func (r *recordingPrompter) all() []prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]prompt(nil), r.prompts...)
}

func TestToggleUnauthenticatedPromptsLoginWithoutRequest(t *testing.T) {
	api := &fakeAPI{}
	prompter := &recordingPrompter{}
	redirected := make(chan struct{}, 1)
	svc, err := NewService(ServiceParams{
		API:           api,
		Auth:          fakeAuth(false),
		Prompter:      prompter,
		Redirect:      func() { redirected <- struct{}{} },
		RedirectDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	in, err := svc.Toggle(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	assert.False(t, in)
	assert.Zero(t, api.calls())
	assert.Equal(t, []prompt{{kind: enums.ToastKindLoginPrompt, message: loginPromptMessage}}, prompter.all())

	select {
	case <-redirected:
	case <-time.After(5 * time.Second):
		t.Fatal("redirect never fired")
	}
}

func TestToggleAddsAndRemoves(t *testing.T) {
	api := &fakeAPI{}
	svc, err := NewService(ServiceParams{API: api, Auth: fakeAuth(true)})
	require.NoError(t, err)

	in, err := svc.Toggle(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, in)
	assert.True(t, svc.Contains(5))

	in, err = svc.Toggle(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, in)
	assert.False(t, svc.Contains(5))
	assert.Equal(t, []int64{5}, api.added)
	assert.Equal(t, []int64{5}, api.removed)
}

func TestToggleRollsBackOnFailure(t *testing.T) {
	api := &fakeAPI{addErr: pkgerrors.New(pkgerrors.CodeDependency, "upstream down")}
	prompter := &recordingPrompter{}
	svc, err := NewService(ServiceParams{API: api, Auth: fakeAuth(true), Prompter: prompter})
	require.NoError(t, err)

	in, err := svc.Toggle(context.Background(), 8)
	require.Error(t, err)
	assert.False(t, in)
	assert.False(t, svc.Contains(8))
	assert.Equal(t, []prompt{{kind: enums.ToastKindError, message: "failed to load wishlist"}}, prompter.all())
}

func TestToggleIsOptimisticAndRejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]properties.Property, error) {
			return []properties.Property{{ID: 3}}, nil
		},
		removeFn: func(ctx context.Context, id int64) error {
			close(entered)
			<-release
			return nil
		},
	}
	svc, err := NewService(ServiceParams{API: api, Auth: fakeAuth(true)})
	require.NoError(t, err)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	require.True(t, svc.Contains(3))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Toggle(context.Background(), 3)
		done <- err
	}()
	<-entered
	assert.False(t, svc.Contains(3), "removal is visible before the server confirms")

	_, err = svc.Toggle(context.Background(), 3)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, svc.Contains(3), "reload keeps the in-flight optimistic value")

	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, svc.IDs())
}

func TestResetDiscardsInFlightToggle(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	listed := []properties.Property{{ID: 3}}
	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]properties.Property, error) {
			return listed, nil
		},
		removeFn: func(ctx context.Context, id int64) error {
			if id != 3 {
				return nil
			}
			close(entered)
			<-release
			return pkgerrors.New(pkgerrors.CodeDependency, "backend unavailable")
		},
	}
	svc, err := NewService(ServiceParams{API: api, Auth: fakeAuth(true)})
	require.NoError(t, err)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Toggle(context.Background(), 3)
		done <- err
	}()
	<-entered

	svc.Reset()
	listed = []properties.Property{{ID: 5}}
	_, err = svc.Load(context.Background())
	require.NoError(t, err)

	close(release)
	require.Error(t, <-done)
	assert.Equal(t, []int64{5}, svc.IDs(), "the old session's rollback must not leak into the new set")

	member, err := svc.Toggle(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestLoadRequiresLogin(t *testing.T) {
	svc, err := NewService(ServiceParams{API: &fakeAPI{}, Auth: fakeAuth(false)})
	require.NoError(t, err)
	_, err = svc.Load(context.Background())
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Auth: fakeAuth(true)})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{API: &fakeAPI{}})
	assert.Error(t, err)
}
