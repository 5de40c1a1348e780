package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gostones/emotion-report/internal/form"
	"github.com/gostones/emotion-report/internal/reports"
)

const sessionCookie = "session_id"

// Session is the component state owned by one browser: its form and its
// mirror of the report list.
type Session struct {
	ID   string
	Form *form.Form
	List *reports.List

	lastSeen time.Time
}

// Store keeps sessions in memory and drops the ones idle for longer than ttl.
type Store struct {
	ttl        time.Duration
	newSession func(id string) *Session
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(ttl time.Duration, newSession func(id string) *Session) *Store {
	return &Store{
		ttl:        ttl,
		newSession: newSession,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

// Get returns a live session and marks it as seen.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess, true
}

// Create registers a fresh session under a random id.
func (s *Store) Create() *Session {
	id := uuid.NewString()
	sess := s.newSession(id)
	sess.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	sess.lastSeen = now
	s.sessions[id] = sess
	return sess
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// prune must be called with mu held. Sessions with a submission in flight survive.
func (s *Store) prune(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl && !sess.Form.Loading() {
			delete(s.sessions, id)
		}
	}
}

// Lookup finds the request's session without creating one.
func (s *Store) Lookup(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.Get(c.Value)
}

// Attach finds the request's session or creates one and sets the cookie.
func (s *Store) Attach(w http.ResponseWriter, r *http.Request) *Session {
	if sess, ok := s.Lookup(r); ok {
		return sess
	}
	sess := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
