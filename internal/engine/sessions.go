package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/sitechat/internal/llm"
)

// ChatMessage is a single message in a chat session.
type ChatMessage struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one conversation bound to a namespace. The full history
// is retained for the session's lifetime; only a window of it goes
// into each prompt.
type Session struct {
	ID        string        `json:"id"`
	Namespace string        `json:"namespace"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionStore holds chat sessions. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	Create(namespace string) *Session
	// Get returns a snapshot of the session, or ErrSessionNotFound.
	Get(id string) (*Session, error)
	Append(id string, messages ...ChatMessage) error
	Delete(id string) error
	List() []*Session
}

// MemorySessionStore keeps sessions in memory. Sessions idle longer
// than the TTL are evicted; a restart loses all sessions.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewMemorySessionStore creates a store that evicts sessions idle
// longer than ttl. A ttl of zero disables eviction.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// sweep drops expired sessions. Caller holds the lock.
func (s *MemorySessionStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemorySessionStore) Create(namespace string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Namespace: namespace,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return snapshot(sess)
}

func (s *MemorySessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(sess), nil
}

func (s *MemorySessionStore) Append(id string, messages ...ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, messages...)
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *MemorySessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, snapshot(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func snapshot(sess *Session) *Session {
	cp := *sess
	cp.Messages = append([]ChatMessage(nil), sess.Messages...)
	return &cp
}
