package spotify

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// SessionStore holds per-session OAuth tokens in memory. Sessions are keyed
// by an opaque random id handed to the client as a cookie.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*oauth2.Token
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*oauth2.Token)}
}

// Create stores a token under a fresh session id and returns the id.
func (s *SessionStore) Create(token *oauth2.Token) string {
	id := newSessionID()
	s.mu.Lock()
	s.sessions[id] = token
	s.mu.Unlock()
	return id
}

// Token returns the token for a session, if any.
func (s *SessionStore) Token(id string) (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.sessions[id]
	return token, ok
}

// Update replaces the token for an existing session, keeping refreshed
// credentials across calls.
func (s *SessionStore) Update(id string, token *oauth2.Token) {
	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		s.sessions[id] = token
	}
	s.mu.Unlock()
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Expired reports whether a session's token is past its expiry. Tokens with
// no expiry never report expired.
func (s *SessionStore) Expired(id string) bool {
	token, ok := s.Token(id)
	if !ok {
		return true
	}
	return !token.Expiry.IsZero() && time.Now().After(token.Expiry)
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process has bigger problems.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
