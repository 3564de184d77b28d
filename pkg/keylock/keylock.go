package keylock

import "sync"

// KeyLock serializes critical sections per key. Every aggregate
// read-modify-write on a material takes its lock first, so concurrent
// raters/commenters on the same material never interleave, while
// unrelated materials proceed in parallel.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock func.
// Entries are refcounted and removed once the last holder releases, so
// the map stays bounded by the number of in-flight keys.
func (k *KeyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
