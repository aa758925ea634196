// Package session holds the per-browser state the storefront core operates
// on: the current user, the cart, any staged checkout, and the transient
// payment markers. Each session is owned by exactly one browser and is never
// shared between users.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rhobart/minimart/internal/domain"
)

const (
	// CookieName is the session cookie set on first touch.
	CookieName = "minimart_session"

	// DefaultTTL is how long an idle session survives.
	DefaultTTL = 7 * 24 * time.Hour
)

// Severity classifies a flash message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Flash is a one-shot message for the next rendered page.
type Flash struct {
	Severity Severity
	Text     string
}

// Session is the typed per-browser state. All mutation happens through
// methods so the flash sink and payment markers stay consistent when the
// async QR stream and a page load touch the same session.
type Session struct {
	mu sync.Mutex

	id         string
	lastActive time.Time

	user            *domain.User
	cart            *domain.Cart
	pendingCheckout *domain.PendingCheckout
	netsPayment     *domain.NetsPaymentSession
	netsCompleted   *domain.NetsOrderCompleted

	flashes []Flash
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// User returns the signed-in user, or nil.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SetUser signs a user in (or out, with nil).
func (s *Session) SetUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// Cart returns the session's cart, lazily initializing an empty one.
func (s *Session) Cart() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		s.cart = domain.NewCart()
	}
	return s.cart
}

// ClearCart replaces the cart with a fresh empty one.
func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = domain.NewCart()
}

// PendingCheckout returns the staged checkout attempt, or nil.
func (s *Session) PendingCheckout() *domain.PendingCheckout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCheckout
}

// StageCheckout stages a checkout attempt. A session has a single slot:
// staging overwrites any previous attempt.
func (s *Session) StageCheckout(pc *domain.PendingCheckout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCheckout = pc
}

// ClearCheckout drops the staged attempt.
func (s *Session) ClearCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCheckout = nil
}

// NetsPayment returns the in-flight QR payment session, or nil.
func (s *Session) NetsPayment() *domain.NetsPaymentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netsPayment
}

// SetNetsPayment stages a QR payment session and resets the completion
// marker: a new QR supersedes any previously finalized attempt.
func (s *Session) SetNetsPayment(p *domain.NetsPaymentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.netsPayment = p
	s.netsCompleted = nil
}

// NetsCompleted returns the finalized-attempt marker, or nil.
func (s *Session) NetsCompleted() *domain.NetsOrderCompleted {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netsCompleted
}

// MarkNetsCompleted records that the current QR attempt produced an order.
func (s *Session) MarkNetsCompleted(m *domain.NetsOrderCompleted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.netsCompleted = m
}

// Flash queues a one-shot message.
func (s *Session) Flash(sev Severity, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Severity: sev, Text: text})
}

// DrainFlashes returns and clears the queued messages. Called once per
// render so each message is shown exactly once.
func (s *Session) DrainFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager issues and resolves sessions keyed by a secure cookie token.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	secure   bool
}

// NewManager creates a session manager. secure controls the cookie's Secure
// flag and should be true outside development.
func NewManager(ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		secure:   secure,
	}
}

// Get resolves the request's session, creating one (and setting the cookie)
// on first touch.
func (m *Manager) Get(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		m.mu.RLock()
		s, ok := m.sessions[c.Value]
		m.mu.RUnlock()
		if ok {
			m.touch(s)
			return s
		}
	}

	s := &Session{id: mustToken(), lastActive: time.Now()}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return s
}

// Lookup resolves the request's session without creating one.
func (m *Manager) Lookup(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	m.mu.RLock()
	s := m.sessions[c.Value]
	m.mu.RUnlock()
	return s
}

// Destroy removes the session and clears the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Sweep drops sessions idle longer than the TTL. Run periodically.
func (m *Manager) Sweep() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *Manager) touch(s *Session) {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// mustToken generates a cryptographically secure session token.
func mustToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session: failed to generate token: %v", err))
	}
	return base64.URLEncoding.EncodeToString(b)
}
