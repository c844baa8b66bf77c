package service

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks serializes all balance-moving operations per account. No
// global lock: operations on different accounts proceed in parallel.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// acquire locks the account and returns the unlock function.
func (l *accountLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
