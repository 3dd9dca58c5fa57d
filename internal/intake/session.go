package intake

import (
	"context"
	"sync"
	"time"
)

// Turn is one message in a conversation's ordered history.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Session is the ephemeral state of one call or chat conversation.
type Session struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"` // "voice" or "chat"
	CallerPhone string    `json:"caller_phone,omitempty"`
	Turns       []Turn    `json:"turns"`
	Memory      Memory    `json:"memory"`
	LeadSaved   bool      `json:"lead_saved"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// UserTurnCount counts caller messages, used for state derivation.
func (s *Session) UserTurnCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == ChatRoleUser {
			n++
		}
	}
	return n
}

// Transcript concatenates all caller utterances for the extraction pass.
func (s *Session) Transcript() string {
	var parts []string
	for _, t := range s.Turns {
		if t.Role == ChatRoleUser {
			parts = append(parts, t.Text)
		}
	}
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}

// SessionStore persists conversation state between turns. Get returns
// (nil, nil) for unknown ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
}

// MemorySessionStore keeps sessions in process memory with TTL eviction so
// the map cannot grow unbounded under sustained traffic.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration

	stop chan struct{}
	once sync.Once
}

// NewMemorySessionStore creates an in-memory store. Sessions idle longer
// than ttl are evicted by a background janitor; ttl <= 0 disables eviction.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

// Get returns the stored session or (nil, nil).
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Since(sess.LastActive) > s.ttl {
		return nil, nil
	}
	return sess, nil
}

// Put stores the session and refreshes its activity timestamp.
func (s *MemorySessionStore) Put(ctx context.Context, sess *Session) error {
	sess.LastActive = time.Now().UTC()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions are currently held.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the eviction janitor.
func (s *MemorySessionStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemorySessionStore) janitor() {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemorySessionStore) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
}
