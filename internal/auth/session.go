package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

// CookieName is the session cookie the console issues after login.
const CookieName = "opsdeck_session"

// Session is one logged-in operator session. The selected repository lives
// here so action handlers can pass it explicitly into each request; no
// handler reads it from anywhere else.
type Session struct {
	ID      string
	Expires time.Time

	// SelectedRepo / SelectedFullName identify the repository the
	// dashboard currently operates on. Empty until the operator picks
	// one.
	SelectedRepo     string
	SelectedFullName string
}

// SessionManager issues, resolves, and expires sessions backed by an
// in-memory store. A single-operator console has no reason to persist
// sessions; a restart logs the operator out.
type SessionManager struct {
	ttl           time.Duration
	secureCookies bool

	mu       sync.Mutex
	sessions map[string]*Session

	stop    chan struct{}
	stopped chan struct{}
}

// NewSessionManager creates a session manager. Sessions live for ttl;
// secureCookies should be true whenever the console serves TLS.
func NewSessionManager(ttl time.Duration, secureCookies bool) *SessionManager {
	sm := &SessionManager{
		ttl:           ttl,
		secureCookies: secureCookies,
		sessions:      make(map[string]*Session),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go sm.sweepExpired()
	return sm
}

// Stop ends the expiry sweeper and waits for it to exit. Call once during
// shutdown.
func (sm *SessionManager) Stop() {
	close(sm.stop)
	<-sm.stopped
}

// Create starts a new session and sets its cookie.
func (sm *SessionManager) Create(w http.ResponseWriter) (*Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	s := &Session{
		ID:      hex.EncodeToString(buf),
		Expires: time.Now().Add(sm.ttl),
	}

	sm.mu.Lock()
	sm.sessions[s.ID] = s
	sm.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(sm.ttl.Seconds()),
		HttpOnly: true,
		Secure:   sm.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Get resolves the request's session cookie to a live session.
func (sm *SessionManager) Get(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[cookie.Value]
	if !ok || time.Now().After(s.Expires) {
		delete(sm.sessions, cookie.Value)
		return nil, false
	}
	copy := *s
	return &copy, true
}

// Destroy ends the request's session and clears its cookie.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		sm.mu.Lock()
		delete(sm.sessions, cookie.Value)
		sm.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// SelectRepo records the repository selection on the request's session.
func (sm *SessionManager) SelectRepo(r *http.Request, name, fullName string) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[cookie.Value]
	if !ok || time.Now().After(s.Expires) {
		return false
	}
	s.SelectedRepo = name
	s.SelectedFullName = fullName
	return true
}

func (sm *SessionManager) sweepExpired() {
	defer close(sm.stopped)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			now := time.Now()
			sm.mu.Lock()
			for id, s := range sm.sessions {
				if now.After(s.Expires) {
					delete(sm.sessions, id)
				}
			}
			sm.mu.Unlock()
		}
	}
}
