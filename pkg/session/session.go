// Package session owns the authenticated identity and its credential.
//
// Nothing else in the module reads ambient state for auth: every consumer
// gets the Session injected and observes login/logout through it.
package session

import "sync"

// Identity is the authenticated user as the backend reported it.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Session holds the active identity and bearer token. A zero session is
// unauthenticated. Logout tears down the realtime channel before clearing
// the identity, via the registered closer.
type Session struct {
	mu       sync.RWMutex
	identity *Identity
	token    string
	closer   func()
}

func New() *Session {
	return &Session{}
}

// Login establishes the identity and credential for subsequent requests.
func (s *Session) Login(id Identity, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &id
	s.token = token
}

// SetRealtimeCloser registers the function Logout calls to disconnect the
// realtime channel before the credential is cleared.
func (s *Session) SetRealtimeCloser(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closer = fn
}

// Logout disconnects the realtime channel first, then clears identity and
// credential. Safe to call when not logged in.
func (s *Session) Logout() {
	s.mu.Lock()
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()

	// Graceful disconnect before the credential disappears.
	if closer != nil {
		closer()
	}

	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.mu.Unlock()
}

// CurrentIdentity returns the active identity, or false when the session is
// not authenticated.
func (s *Session) CurrentIdentity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Token returns the stored bearer token. Satisfies api.TokenSource.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	return s.token, true
}
