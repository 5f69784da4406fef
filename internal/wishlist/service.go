package wishlist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/propnest/propnest-client/internal/properties"
	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
)

const loginPromptMessage = "Please log in to save properties to your wishlist."

// API is the slice of the backend the wishlist uses.
type API interface {
	ListWishlist(ctx context.Context) ([]properties.Property, error)
	AddToWishlist(ctx context.Context, propertyID int64) error
	RemoveFromWishlist(ctx context.Context, propertyID int64) error
}

// Auth reports whether a user is logged in.
type Auth interface {
	Authenticated() bool
}

// Prompter shows non-notification toasts.
type Prompter interface {
	Prompt(ctx context.Context, kind enums.ToastKind, message string)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	API      API
	Auth     Auth
	Prompter Prompter
	Logger   *logger.Logger
	// Redirect runs RedirectDelay after a login prompt; nil disables it.
	Redirect      func()
	RedirectDelay time.Duration
}

// Service keeps the set of wishlisted property ids and toggles membership
// optimistically.
type Service struct {
	api      API
	auth     Auth
	prompter Prompter
	logg     *logger.Logger
	redirect func()
	delay    time.Duration

	mu      sync.Mutex
	ids     map[int64]struct{}
	pending map[int64]struct{}
	timer   *time.Timer
	// epoch changes on Reset; toggles started before it do not write back.
	epoch uint64
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist api is required")
	}
	if params.Auth == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist auth is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		api:      params.API,
		auth:     params.Auth,
		prompter: params.Prompter,
		logg:     logg,
		redirect: params.Redirect,
		delay:    params.RedirectDelay,
		ids:      map[int64]struct{}{},
		pending:  map[int64]struct{}{},
	}, nil
}

// Load replaces the local set with the server's wishlist. Ids with a toggle
// in flight keep their optimistic value.
func (s *Service) Load(ctx context.Context) ([]properties.Property, error) {
	if !s.auth.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	items, err := s.api.ListWishlist(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	next := make(map[int64]struct{}, len(items))
	for _, item := range items {
		next[item.ID] = struct{}{}
	}
	for id := range s.pending {
		if _, ok := s.ids[id]; ok {
			next[id] = struct{}{}
		} else {
			delete(next, id)
		}
	}
	s.ids = next
	s.mu.Unlock()
	return items, nil
}

// Toggle flips membership of propertyID. Logged-out users get a login prompt
// and no request is made. On failure the previous membership is restored.
// It returns the membership after the call.
func (s *Service) Toggle(ctx context.Context, propertyID int64) (bool, error) {
	if propertyID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "property id is required")
	}
	if !s.auth.Authenticated() {
		s.promptLogin(ctx)
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	s.mu.Lock()
	if _, busy := s.pending[propertyID]; busy {
		s.mu.Unlock()
		return s.Contains(propertyID), pkgerrors.New(pkgerrors.CodeConflict, "wishlist update already in progress")
	}
	_, was := s.ids[propertyID]
	if was {
		delete(s.ids, propertyID)
	} else {
		s.ids[propertyID] = struct{}{}
	}
	s.pending[propertyID] = struct{}{}
	epoch := s.epoch
	s.mu.Unlock()

	var err error
	if was {
		err = s.api.RemoveFromWishlist(ctx, propertyID)
	} else {
		err = s.api.AddToWishlist(ctx, propertyID)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		delete(s.pending, propertyID)
		if err != nil {
			if was {
				s.ids[propertyID] = struct{}{}
			} else {
				delete(s.ids, propertyID)
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		logCtx := s.logg.WithField(ctx, "property_id", propertyID)
		if pkgerrors.IsCanceled(err) {
			s.logg.Debug(logCtx, "wishlist.toggle_canceled")
		} else {
			s.logg.Error(logCtx, "wishlist.toggle_failed", err)
			if pkgerrors.CodeOf(err) == pkgerrors.CodeUnauthorized {
				s.promptLogin(ctx)
			} else if s.prompter != nil {
				s.prompter.Prompt(ctx, enums.ToastKindError, pkgerrors.UserMessage(err, "wishlist"))
			}
		}
		return was, err
	}
	return !was, nil
}

// Contains reports whether propertyID is wishlisted.
func (s *Service) Contains(propertyID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[propertyID]
	return ok
}

// IDs returns the wishlisted property ids in ascending order.
func (s *Service) IDs() []int64 {
	s.mu.Lock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset forgets the local set, in-flight toggles and a pending redirect.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = map[int64]struct{}{}
	s.pending = map[int64]struct{}{}
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Service) promptLogin(ctx context.Context) {
	if s.prompter != nil {
		s.prompter.Prompt(ctx, enums.ToastKindLoginPrompt, loginPromptMessage)
	}
	if s.redirect == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.redirect)
}
