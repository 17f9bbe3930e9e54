package ledger

import "sync"

// groupLocks hands out one mutex per group. Entries are reference counted so
// idle groups do not accumulate.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*groupLock
}

type groupLock struct {
	mu   sync.Mutex
	refs int
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*groupLock)}
}

// lock blocks until the caller is the only writer for groupID and returns
// the matching unlock.
func (g *groupLocks) lock(groupID string) func() {
	g.mu.Lock()
	l, ok := g.locks[groupID]
	if !ok {
		l = &groupLock{}
		g.locks[groupID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, groupID)
		}
		g.mu.Unlock()
	}
}
