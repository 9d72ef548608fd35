package vault

import (
	"sync"

	"github.com/veilvault/veilvault/internal/ledger"
)

// keyedMutex serializes work per vault address. Entries are dropped when the
// last holder or waiter leaves.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[ledger.Address]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[ledger.Address]*refLock)}
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key ledger.Address) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
