package threadkit

import "sync"

// Mutex is an exclusive lock for shared state that parallel bodies update
// outside of Reduce, TLS or LS. The zero value is unlocked.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock()         { m.mu.Lock() }
func (m *Mutex) Unlock()       { m.mu.Unlock() }
func (m *Mutex) TryLock() bool { return m.mu.TryLock() }

// Do runs fn with the lock held.
func (m *Mutex) Do(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// AutoLock holds a Mutex until Unlock.
//
// Example:
//
//	defer threadkit.NewAutoLock(&mu).Unlock()
type AutoLock struct {
	m      *Mutex
	locked bool
}

// NewAutoLock locks m and returns the guard.
func NewAutoLock(m *Mutex) *AutoLock {
	m.Lock()
	return &AutoLock{m: m, locked: true}
}

// Unlock releases the lock. Only the first call has an effect.
func (a *AutoLock) Unlock() {
	if a.locked {
		a.locked = false
		a.m.Unlock()
	}
}
