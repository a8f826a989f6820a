// Package session keeps chat conversations in process memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.SessionStore = (*MemoryStore)(nil)

const DefaultTTL = 24 * time.Hour

type conversation struct {
	messages []domain.Message
	lastSeen time.Time
}

// MemoryStore maps session IDs to conversations. Sessions idle for longer
// than the TTL are removed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*conversation
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*conversation),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts an empty conversation under a fresh random ID.
func (s *MemoryStore) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &conversation{lastSeen: s.now()}
	return id
}

func (s *MemoryStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.live(id)
	if ok {
		c.lastSeen = s.now()
	}
	return ok
}

// Messages returns a copy of the conversation, oldest first.
func (s *MemoryStore) Messages(id string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.live(id)
	if !ok {
		return nil
	}
	return append([]domain.Message(nil), c.messages...)
}

// Append adds messages to the conversation. Unknown or expired IDs are
// ignored.
func (s *MemoryStore) Append(id string, msgs ...domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.live(id)
	if !ok {
		return
	}
	c.messages = append(c.messages, msgs...)
	c.lastSeen = s.now()
}

// Clear empties the conversation but keeps the session.
func (s *MemoryStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.live(id); ok {
		c.messages = nil
		c.lastSeen = s.now()
	}
}

// live must be called with mu held.
func (s *MemoryStore) live(id string) (*conversation, bool) {
	c, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(c.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	return c, true
}

// Sweep removes expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, c := range s.sessions {
		if now.Sub(c.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
