package ratelimit

import (
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type window struct {
	count int
	reset time.Time
}

// memoryStore keeps counting windows in process memory. Counters live for
// the process lifetime; a restart resets all counts. Expired windows are
// swept inline during Incr calls rather than by a background goroutine.
type memoryStore struct {
	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

// NewMemoryStore constructs the in-memory counting store.
func NewMemoryStore() Store {
	return &memoryStore{windows: make(map[string]*window)}
}

func (s *memoryStore) Incr(class Class, key string, now time.Time, windowSize time.Duration) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSweep.IsZero() {
		s.lastSweep = now
	}
	if now.Sub(s.lastSweep) > sweepInterval {
		for k, w := range s.windows {
			if !now.Before(w.reset) {
				delete(s.windows, k)
			}
		}
		s.lastSweep = now
	}

	storeKey := string(class) + ":" + key
	w, exists := s.windows[storeKey]
	if !exists || !now.Before(w.reset) {
		w = &window{reset: now.Add(windowSize)}
		s.windows[storeKey] = w
	}
	w.count++
	return w.count, w.reset
}
