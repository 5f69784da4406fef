package notifications

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/pagination"
)

const (
	defaultPerPage = 50
	resourceName   = "notifications"
)

// API is the slice of the backend the store talks to.
type API interface {
	ListNotifications(ctx context.Context, params pagination.Params) (*Page, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Option customizes a Store.
type Option func(*Store)

// WithPerPage sets the page size requested by Fetch.
func WithPerPage(perPage int) Option {
	return func(s *Store) {
		s.perPage = pagination.NormalizePerPage(perPage)
	}
}

// WithClock overrides the time source used to stamp realtime arrivals.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store owns the notification collection for the signed-in user. Every
// mutation goes through its methods; readers get copies.
type Store struct {
	api     API
	logg    *logger.Logger
	perPage int
	now     func() time.Time

	mu      sync.Mutex
	userID  int64
	items   []Record
	err     string
	loading bool
	closed  bool
	// gen identifies the current fetch; a fetch commits only while it is still current.
	gen    uint64
	cancel context.CancelFunc
	// epoch changes whenever the collection is replaced wholesale.
	epoch    uint64
	headAdds uint64
	// confirmed holds ids the backend acknowledged as read for the current user.
	confirmed map[int64]struct{}

	notifyMu  sync.Mutex
	watchers  map[int]func([]Record)
	nextWatch int
}

// NewStore wires the store to the backend API.
func NewStore(api API, logg *logger.Logger, opts ...Option) (*Store, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{
		api:       api,
		logg:      logg,
		perPage:   defaultPerPage,
		now:       time.Now,
		watchers:  map[int]func([]Record){},
		confirmed: map[int64]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fetch loads the authoritative list for userID and merges it into local state.
// A newer Fetch, ClearAll of the user or Close supersedes it; a superseded fetch
// never touches state and returns a canceled error.
func (s *Store) Fetch(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeCanceled, "notification store closed")
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.userID != 0 && s.userID != userID {
		s.items = nil
		s.epoch++
	}
	s.userID = userID
	s.loading = true
	started := s.now()
	s.mu.Unlock()
	defer cancel()

	page, err := s.api.ListNotifications(runCtx, pagination.Params{Page: 1, PerPage: s.perPage})

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeCanceled, "notification fetch superseded")
	}
	s.loading = false
	s.cancel = nil
	logCtx := s.logg.WithUserID(ctx, userID)
	if err == nil && runCtx.Err() != nil {
		err = runCtx.Err()
	}
	if err != nil {
		if pkgerrors.IsCanceled(err) {
			s.mu.Unlock()
			s.logg.Debug(logCtx, "notifications.fetch_canceled")
			return err
		}
		s.err = pkgerrors.UserMessage(err, resourceName)
		s.mu.Unlock()
		s.logg.Error(logCtx, "notifications.fetch_failed", err)
		return err
	}

	var fetched []Record
	if page != nil {
		fetched = page.Items
	}
	s.items = merge(fetched, s.items, started)
	s.err = ""
	s.epoch++
	s.publishLocked()
	return nil
}

// MarkRead confirms with the backend first and only then flips IsRead on every
// record carrying id. A failure leaves the collection untouched.
func (s *Store) MarkRead(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if err := s.checkUser(userID); err != nil {
		return err
	}

	err := s.api.MarkNotificationRead(ctx, id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		if !pkgerrors.IsCanceled(err) {
			s.err = pkgerrors.UserMessage(err, "notification")
		}
		s.mu.Unlock()
		s.logFailure(ctx, userID, "notifications.mark_read_failed", err)
		return err
	}
	s.confirmed[id] = struct{}{}
	changed := false
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].IsRead {
			s.items[i].IsRead = true
			changed = true
		}
	}
	s.err = ""
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.publishLocked()
	return nil
}

// MarkAllRead flips every record before calling the backend and restores the
// pre-call snapshot if the call fails.
func (s *Store) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.checkUser(userID); err != nil {
		return err
	}
	err := s.applyOptimistic(ctx, func(items []Record) []Record {
		for i := range items {
			items[i].IsRead = true
		}
		return items
	}, s.api.MarkAllNotificationsRead)
	if err != nil {
		s.logFailure(ctx, userID, "notifications.mark_all_read_failed", err)
	}
	return err
}

// applyOptimistic applies mutate locally, runs call and on failure restores the
// snapshot taken before mutate. Records pushed at the head while call was in
// flight survive the rollback; a wholesale replacement (fetch, clear) wins over it.
// Reads the backend confirmed meanwhile stay read.
func (s *Store) applyOptimistic(ctx context.Context, mutate func([]Record) []Record, call func(context.Context) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeCanceled, "notification store closed")
	}
	snapshot := cloneRecords(s.items)
	epoch := s.epoch
	adds := s.headAdds
	s.items = mutate(cloneRecords(s.items))
	s.publishLocked()

	err := call(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err == nil {
		s.err = ""
		s.mu.Unlock()
		return nil
	}
	if !pkgerrors.IsCanceled(err) {
		s.err = pkgerrors.UserMessage(err, resourceName)
	}
	if s.epoch != epoch {
		s.mu.Unlock()
		return err
	}
	arrived := int(s.headAdds - adds)
	if arrived > len(s.items) {
		arrived = len(s.items)
	}
	for i := range snapshot {
		if _, ok := s.confirmed[snapshot[i].ID]; ok {
			snapshot[i].IsRead = true
		}
	}
	restored := make([]Record, 0, arrived+len(snapshot))
	restored = append(restored, s.items[:arrived]...)
	restored = append(restored, snapshot...)
	s.items = restored
	s.publishLocked()
	return err
}

// AddFromRealtime prepends rec. Duplicate ids are kept.
func (s *Store) AddFromRealtime(rec Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now()
	}
	items := make([]Record, 0, len(s.items)+1)
	items = append(items, rec)
	s.items = append(items, s.items...)
	s.headAdds++
	s.publishLocked()
}

// Seed fills an empty store, typically from the local cache at startup. It is
// ignored once the store holds anything.
func (s *Store) Seed(userID int64, items []Record) bool {
	s.mu.Lock()
	if s.closed || len(s.items) > 0 || (s.userID != 0 && s.userID != userID) {
		s.mu.Unlock()
		return false
	}
	s.userID = userID
	s.items = cloneRecords(items)
	s.epoch++
	s.publishLocked()
	return true
}

// ClearAll empties the local collection without calling the backend.
func (s *Store) ClearAll() {
	s.ClearWith(nil)
}

// ClearWith empties the collection like ClearAll and runs fn after the clear
// but before watchers or any later mutation observe the store. fn must not
// call back into the store.
func (s *Store) ClearWith(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.items = nil
	s.err = ""
	s.epoch++
	s.publishLockedWith(fn)
}

// Reset forgets the current user entirely and cancels any in-flight fetch.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.userID = 0
	s.items = nil
	s.confirmed = map[int64]struct{}{}
	s.err = ""
	s.loading = false
	s.epoch++
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.publishLocked()
}

// Close cancels in-flight work; nothing commits afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.loading = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Items returns a copy of the collection, most recent first.
func (s *Store) Items() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.items)
}

// UnreadCount counts distinct unread notification ids.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{}, len(s.items))
	for _, rec := range s.items {
		if rec.IsRead {
			continue
		}
		seen[rec.ID] = struct{}{}
	}
	return len(seen)
}

// UserID returns the user the collection belongs to, 0 when none.
func (s *Store) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Err returns the last user-facing error, empty when the last operation succeeded.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Watch registers fn to receive a copy of the collection after every change.
// Callbacks run in mutation order and must not call back into the store's
// mutating methods.
func (s *Store) Watch(fn func([]Record)) (cancel func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.watchers, id)
	}
}

// publishLocked hands a snapshot to watchers. It must be called with s.mu held
// and releases it; notifyMu keeps deliveries in mutation order.
func (s *Store) publishLocked() {
	s.publishLockedWith(nil)
}

// publishLockedWith runs before ahead of the watchers, still in mutation order.
func (s *Store) publishLockedWith(before func()) {
	snapshot := cloneRecords(s.items)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	if before != nil {
		before()
	}
	for _, fn := range s.watchers {
		fn(cloneRecords(snapshot))
	}
}

func (s *Store) checkUser(userID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != 0 && s.userID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "notifications belong to another user")
	}
	return nil
}

func (s *Store) logFailure(ctx context.Context, userID int64, msg string, err error) {
	logCtx := s.logg.WithUserID(ctx, userID)
	if pkgerrors.IsCanceled(err) {
		s.logg.Debug(logCtx, msg)
		return
	}
	s.logg.Error(logCtx, msg, err)
}

// merge combines a fetched page with the local collection. The server list is
// authoritative; records received over realtime since the fetch started and
// missing from the page stay at the head. IsRead is OR-ed per id.
func merge(fetched, local []Record, since time.Time) []Record {
	serverIDs := make(map[int64]struct{}, len(fetched))
	for _, rec := range fetched {
		serverIDs[rec.ID] = struct{}{}
	}
	readIDs := map[int64]struct{}{}
	var head []Record
	for _, rec := range local {
		if rec.IsRead {
			readIDs[rec.ID] = struct{}{}
		}
		if rec.ReceivedAt.IsZero() || rec.ReceivedAt.Before(since) {
			continue
		}
		if _, ok := serverIDs[rec.ID]; ok {
			continue
		}
		head = append(head, rec)
	}

	out := make([]Record, 0, len(head)+len(fetched))
	out = append(out, head...)
	for _, rec := range fetched {
		if _, ok := readIDs[rec.ID]; ok {
			rec.IsRead = true
		}
		out = append(out, rec)
	}
	return out
}

func cloneRecords(items []Record) []Record {
	if items == nil {
		return nil
	}
	out := make([]Record, len(items))
	copy(out, items)
	return out
}
