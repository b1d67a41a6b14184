package account

import "sync"

// KeyedLocker serializes work per account id. The zero value is ready to
// use.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the lock for id is held and returns its release
// function. Entries are dropped once no goroutine holds or waits on them.
func (k *KeyedLocker) Lock(id int64) (unlock func()) {
	k.mu.Lock()

	if k.locks == nil {
		k.locks = make(map[int64]*keyedLock)
	}

	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}

	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	var once sync.Once

	return func() {
		once.Do(func() {
			l.mu.Unlock()

			k.mu.Lock()
			l.refs--

			if l.refs == 0 {
				delete(k.locks, id)
			}

			k.mu.Unlock()
		})
	}
}

// size reports how many ids have live entries.
func (k *KeyedLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
