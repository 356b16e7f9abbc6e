package visibility

import "sync"

// brandLocks serializes work per brand while letting brands run in parallel.
// Entries are dropped once nobody holds or waits on them.
type brandLocks struct {
	mu    sync.Mutex
	locks map[string]*brandLock
}

type brandLock struct {
	mu   sync.Mutex
	refs int
}

func newBrandLocks() *brandLocks {
	return &brandLocks{locks: make(map[string]*brandLock)}
}

// lock blocks until brandID is free and returns the matching unlock.
func (b *brandLocks) lock(brandID string) func() {
	b.mu.Lock()
	l, ok := b.locks[brandID]
	if !ok {
		l = &brandLock{}
		b.locks[brandID] = l
	}
	l.refs++
	b.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		b.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(b.locks, brandID)
		}
		b.mu.Unlock()
	}
}

func (b *brandLocks) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.locks)
}
