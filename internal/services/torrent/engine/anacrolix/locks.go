package anacrolix

import (
	"sync"

	"github.com/2xkl/PeerFlow/internal/domain"
)

// keyedMutex serializes commands per info hash. Entries are reference
// counted and removed once the last holder unlocks, so the map does not grow
// with the lifetime history of transfers.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.InfoHash]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for the given hash and returns the matching unlock.
func (k *keyedMutex) lock(h domain.InfoHash) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[domain.InfoHash]*keyedLock)
	}
	l, ok := k.locks[h]
	if !ok {
		l = &keyedLock{}
		k.locks[h] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, h)
		}
		k.mu.Unlock()
	}
}
