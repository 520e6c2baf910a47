package utils

import "sync"

// KeyedMutex hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits on them, so the map only grows with contention.
type KeyedMutex struct {
	mtx   sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mtx  sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (km *KeyedMutex) Lock(key string) func() {
	km.mtx.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &keyedEntry{}
		km.locks[key] = e
	}
	e.refs++
	km.mtx.Unlock()

	e.mtx.Lock()

	return func() {
		e.mtx.Unlock()

		km.mtx.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
		km.mtx.Unlock()
	}
}

// Len returns the number of keys currently locked or awaited.
func (km *KeyedMutex) Len() int {
	km.mtx.Lock()
	defer km.mtx.Unlock()
	return len(km.locks)
}
