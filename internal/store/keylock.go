package store

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// keyLock hands out one mutex per source id.
// Entries are never evicted; the number of tracked sources is small.
type keyLock struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func newKeyLock() *keyLock {
	return &keyLock{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// lock acquires the mutex of key and returns its unlock func.
func (k *keyLock) lock(key string) func() {
	mu, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
