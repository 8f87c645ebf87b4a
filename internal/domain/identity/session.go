package identity

import (
	"context"
	"sync"
	"time"

	"firelog/backend/internal/logger"
)

// Session holds the current user and fans sign-in state out to subscribers.
// Subscribers are called synchronously and must not call back into the
// session.
type Session struct {
	provider Provider
	log      logger.Logger
	now      func() time.Time

	// emitMu serializes notifications so every subscriber sees its snapshot
	// before any transition.
	emitMu sync.Mutex

	mu     sync.Mutex
	user   *User
	subs   map[int]func(*User)
	nextID int
}

// NewSession returns a session over p. initial restores a previously
// persisted user and may be nil.
func NewSession(p Provider, log logger.Logger, initial *User) *Session {
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		provider: p,
		log:      log.With(map[string]string{"component": "identity"}),
		now:      time.Now,
		user:     initial.clone(),
		subs:     map[int]func(*User){},
	}
}

// SignIn runs the provider's interactive flow and makes the result the
// current user.
func (s *Session) SignIn(ctx context.Context) (*User, error) {
	u, err := s.provider.SignIn(ctx)
	if err != nil {
		s.log.Errorf("error signing in: %v", err)
		return nil, authError("signIn", err)
	}
	s.log.Infof("user %s signed in", u.UID)
	s.transition(u)
	return u.clone(), nil
}

// SignOut ends the current session. Signing out while signed out is a no-op.
func (s *Session) SignOut(ctx context.Context) error {
	u := s.CurrentUser()
	if u == nil {
		return nil
	}
	if err := s.provider.SignOut(ctx, u); err != nil {
		s.log.Errorf("error signing out: %v", err)
		return authError("signOut", err)
	}
	s.log.Infof("user %s signed out", u.UID)
	s.transition(nil)
	return nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.clone()
}

// Subscribe calls fn with the current user right away and again on every
// sign-in or sign-out. The returned func stops delivery; calling it more than
// once is harmless.
func (s *Session) Subscribe(fn func(*User)) (cancel func()) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	current := s.user.clone()
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Token returns a valid ID token for the current user, refreshing it first
// when it is about to expire and the provider supports refresh.
func (s *Session) Token(ctx context.Context) (string, error) {
	u := s.CurrentUser()
	if u == nil {
		return "", ErrNotSignedIn
	}
	if !u.Expired(s.now()) {
		return u.IDToken, nil
	}
	r, ok := s.provider.(Refresher)
	if !ok || u.RefreshToken == "" {
		return "", authError("token", errTokenExpired)
	}
	fresh, err := r.Refresh(ctx, u)
	if err != nil {
		s.log.Errorf("error refreshing token for %s: %v", u.UID, err)
		return "", authError("token", err)
	}

	s.mu.Lock()
	if s.user != nil && s.user.UID == fresh.UID {
		s.user = fresh.clone()
	}
	s.mu.Unlock()
	return fresh.IDToken, nil
}

func (s *Session) transition(u *User) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.user = u.clone()
	subs := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(u.clone())
	}
}
