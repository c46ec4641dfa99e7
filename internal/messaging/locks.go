package messaging

import (
	"sync"

	"github.com/Friiyous/reseau-social/internal/models"
)

// pairLocks hands out one mutex per canonical user pair. Entries are
// reference counted and dropped once no caller holds or waits on them.
type pairLocks struct {
	mu    sync.Mutex
	locks map[[2]int64]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[[2]int64]*pairLock)}
}

// lock blocks until the pair (a, b) is held and returns the release func.
func (p *pairLocks) lock(a, b int64) func() {
	lo, hi := models.CanonicalPair(a, b)
	key := [2]int64{lo, hi}

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *pairLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
