package auth

import (
	"context"
	"sync"
)

// State holds the auth status of one workspace. It starts loading, subscribes to
// the provider, then resolves with the provider's current session.
// After Close, provider events are ignored and listeners are dropped.
type State struct {
	provider Provider

	mu          sync.RWMutex
	status      Status
	session     *Session
	listeners   map[int]func(Status, *Session)
	nextID      int
	unsubscribe func()
	closed      bool
}

func NewState(provider Provider) *State {
	return &State{
		provider:  provider,
		status:    StatusLoading,
		listeners: map[int]func(Status, *Session){},
	}
}

// Start subscribes to provider changes and loads the initial session.
// A load error resolves to unauthenticated and is returned.
// An event that arrives while loading wins over the loaded value.
func (s *State) Start(ctx context.Context) error {
	unsubscribe := s.provider.OnAuthStateChange(s.handleEvent)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		sess = nil
	}
	s.resolve(sess, false)
	return err
}

// Refresh reads the provider's session again, picking up sign-outs and expiries
// that were never broadcast to this process. A lookup error resolves to unauthenticated.
func (s *State) Refresh(ctx context.Context) error {
	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		sess = nil
	}
	s.resolve(sess, true)
	return err
}

func (s *State) handleEvent(_ Event, sess *Session) {
	s.resolve(sess, true)
}

// resolve applies sess. Without force it only applies while still loading.
func (s *State) resolve(sess *Session, force bool) {
	s.mu.Lock()
	if s.closed || (!force && s.status != StatusLoading) {
		s.mu.Unlock()
		return
	}
	s.session = sess
	if sess != nil {
		s.status = StatusAuthenticated
	} else {
		s.status = StatusUnauthenticated
	}
	status := s.status
	listeners := make([]func(Status, *Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(status, sess)
	}
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Session returns a copy of the current session, or nil.
func (s *State) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// User returns the signed-in user, or nil.
func (s *State) User() *User {
	sess := s.Session()
	if sess == nil {
		return nil
	}
	return &sess.User
}

// UserID is the signed-in user's id, or "".
func (s *State) UserID() string {
	if u := s.User(); u != nil {
		return u.ID
	}
	return ""
}

// Subscribe registers fn for status changes.
func (s *State) Subscribe(fn func(Status, *Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close unsubscribes from the provider. Safe to call more than once.
func (s *State) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.listeners = map[int]func(Status, *Session){}
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
