package agent

import (
	"sync"

	"github.com/google/uuid"
)

// sessionLocks provides per-session mutual exclusion. An entry is reference
// counted and removed when the last holder releases it, so the map does not
// grow with the number of sessions ever seen.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the mutex for a session id and returns its unlock function.
func (l *sessionLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
