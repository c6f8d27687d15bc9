package lock

import "runtime"

// RWLock is a reader/writer lock admitting many readers or one writer,
// with writer preference: once a writer is waiting, new readers block
// so that sustained reader traffic cannot starve it. It is built out
// of a single Spinlock guarding a small amount of bookkeeping rather
// than two semaphores or sync.RWMutex, since this lock may be taken
// from interrupt context, where parking is never acceptable.
type RWLock struct {
	mu      Spinlock
	readers int
	writer  bool
	waiting int
}

// RLock blocks while a writer is active or waiting, then registers as a
// reader.
func (rw *RWLock) RLock() {
	for {
		rw.mu.Lock()
		if !rw.writer && rw.waiting == 0 {
			rw.readers++
			rw.mu.Unlock()
			return
		}
		rw.mu.Unlock()
		runtime.Gosched()
	}
}

// RUnlock removes one reader registration.
func (rw *RWLock) RUnlock() {
	rw.mu.Lock()
	if rw.readers == 0 {
		panic("lock: RUnlock of unheld RWLock")
	}
	rw.readers--
	rw.mu.Unlock()
}

// Lock blocks until no readers or writer are active, marking intent to
// write immediately so that new readers queue up behind it.
func (rw *RWLock) Lock() {
	rw.mu.Lock()
	rw.waiting++
	rw.mu.Unlock()

	for {
		rw.mu.Lock()
		if !rw.writer && rw.readers == 0 {
			rw.writer = true
			rw.waiting--
			rw.mu.Unlock()
			return
		}
		rw.mu.Unlock()
		runtime.Gosched()
	}
}

// Unlock releases the write lock.
func (rw *RWLock) Unlock() {
	rw.mu.Lock()
	if !rw.writer {
		panic("lock: Unlock of unheld RWLock")
	}
	rw.writer = false
	rw.mu.Unlock()
}
