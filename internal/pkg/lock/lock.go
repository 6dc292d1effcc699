// Package lock provides per-user locking so every read-modify-persist cycle
// on an account is linearizable, and gifting serializes against concurrent
// operations on either endpoint.
package lock

import "sync"

// userMutex wraps a mutex with reference counting for pooling.
type userMutex struct {
	mu       sync.Mutex
	refCount int
}

// UserLock provides per-user mutual exclusion. Operations on different users
// proceed independently; operations on the same user are serialized.
type UserLock struct {
	locks sync.Map // map[int64]*userMutex
	pool  sync.Pool
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		pool: sync.Pool{
			New: func() any {
				return &userMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given user ID.
func (ul *UserLock) getLock(userID int64) *userMutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(*userMutex)
	}

	newLock := ul.pool.Get().(*userMutex)
	newLock.refCount = 0

	actual, loaded := ul.locks.LoadOrStore(userID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		ul.pool.Put(newLock)
	}
	return actual.(*userMutex)
}

// Lock acquires the lock for a user.
func (ul *UserLock) Lock(userID int64) {
	lock := ul.getLock(userID)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a user.
func (ul *UserLock) Unlock(userID int64) {
	if v, ok := ul.locks.Load(userID); ok {
		lock := v.(*userMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID int64) bool {
	lock := ul.getLock(userID)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// LockPair acquires the locks for two users in ascending-ID order, so two
// concurrent transfers touching the same pair cannot deadlock.
func (ul *UserLock) LockPair(a, b int64) {
	if a == b {
		ul.Lock(a)
		return
	}
	if a > b {
		a, b = b, a
	}
	ul.Lock(a)
	ul.Lock(b)
}

// UnlockPair releases the locks acquired by LockPair.
func (ul *UserLock) UnlockPair(a, b int64) {
	if a == b {
		ul.Unlock(a)
		return
	}
	if a > b {
		a, b = b, a
	}
	ul.Unlock(b)
	ul.Unlock(a)
}

// WithPair executes fn while holding both users' locks.
func (ul *UserLock) WithPair(a, b int64, fn func() error) error {
	ul.LockPair(a, b)
	defer ul.UnlockPair(a, b)
	return fn()
}
