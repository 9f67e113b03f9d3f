// Package session keeps server-side browsing state keyed by an opaque cookie.
// A session carries the signed-in user summary and the shopping cart; nothing
// outlives its TTL and nothing is shared across sessions.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/artetradicao/storefront/internal/cart"
	"github.com/artetradicao/storefront/internal/user"
)

// UserInfo is the slice of the account stored in the session after login.
type UserInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
}

type Session struct {
	ID        string
	User      *UserInfo
	Cart      *cart.Cart
	expiresAt time.Time
}

// IsAdmin reports whether the session belongs to a signed-in admin.
func (s *Session) IsAdmin() bool {
	return s.User != nil && s.User.Role == user.RoleAdmin
}

type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	cookieName string
	ttl        time.Duration
}

func NewManager(cookieName string, ttl time.Duration) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		cookieName: cookieName,
		ttl:        ttl,
	}
}

// Load returns the request's session, creating one (and setting the cookie)
// when none exists or the existing one has expired.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(m.cookieName); err == nil {
		m.mu.RLock()
		s, ok := m.sessions[c.Value]
		m.mu.RUnlock()
		if ok && time.Now().Before(s.expiresAt) {
			return s
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand failing is not recoverable at this level
		log.Error().Err(err).Msg("session: failed to generate session id")
		return &Session{Cart: cart.New()}
	}

	s := &Session{
		ID:        id.String(),
		Cart:      cart.New(),
		expiresAt: time.Now().Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})

	return s
}

// Destroy forgets the session and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return
	}

	m.mu.Lock()
	delete(m.sessions, c.Value)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Purge drops expired sessions. Meant to be called periodically from main.
func (m *Manager) Purge() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if now.After(s.expiresAt) {
			delete(m.sessions, id)
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
