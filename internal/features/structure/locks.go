package structure

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// tenantLocks serializes link and structure mutations per tenant within this process.
// Entries are dropped once no goroutine holds or waits on them.
type tenantLocks struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{entries: make(map[primitive.ObjectID]*lockEntry)}
}

func (l *tenantLocks) Lock(tenantID primitive.ObjectID) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[tenantID]
	if !ok {
		e = &lockEntry{}
		l.entries[tenantID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, tenantID)
		}
		l.mu.Unlock()
	}
}

func (l *tenantLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
