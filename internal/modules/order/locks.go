// README: Per-rider locks serializing Handle calls.
package order

import (
	"sync"

	"flytaxi/internal/types"
)

// riderLocks serializes work per rider. Entries are reference counted and
// dropped once no goroutine holds or waits for them.
type riderLocks struct {
	mu    sync.Mutex
	locks map[types.ID]*riderLock
}

type riderLock struct {
	mu   sync.Mutex
	refs int
}

func newRiderLocks() *riderLocks {
	return &riderLocks{locks: make(map[types.ID]*riderLock)}
}

// Lock blocks until riderID is free and returns the matching unlock.
func (l *riderLocks) Lock(riderID types.ID) func() {
	l.mu.Lock()
	lk, ok := l.locks[riderID]
	if !ok {
		lk = &riderLock{}
		l.locks[riderID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, riderID)
		}
		l.mu.Unlock()
	}
}

func (l *riderLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
