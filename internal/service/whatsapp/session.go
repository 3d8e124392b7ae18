package whatsapp

import (
	"sync"
	"time"
)

// seenMessages remembers inbound message IDs so Meta's webhook retries are
// processed once.
type seenMessages struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func newSeenMessages(ttl time.Duration) *seenMessages {
	return &seenMessages{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// firstSeen records id and reports whether it had not been seen within the TTL.
func (s *seenMessages) firstSeen(id string, now time.Time) bool {
	if id == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, key)
		}
	}

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = now
	return true
}
