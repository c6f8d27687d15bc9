// Package lock implements the synchronization primitives shared by every
// component that may be touched from interrupt context: a busy-wait
// spinlock, a writer-preferring reader/writer lock built on top of it,
// and the per-CPU interrupt-mask guard that makes both safe to take from
// a trap handler.
//
// None of these primitives ever park a goroutine on a channel or a
// sync.Mutex -- that would hand control back to the Go scheduler, which
// this kernel core does not get to assume exists on the bare-metal side.
// Acquisition is CAS-and-spin throughout.
package lock

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a single machine word: 0 = unlocked, 1 = held. It carries
// no fairness guarantee and no owner tracking -- Unlock is only ever
// correct when called by the holder.
type Spinlock struct {
	state uint32
}

// Lock busy-waits, spinning a runtime.Gosched/pause hint between CAS
// attempts, until it wins the 0->1 transition.
func (s *Spinlock) Lock() {
	for !s.TryLock() {
		runtime.Gosched()
	}
}

// TryLock attempts a single CAS from unlocked to locked and reports
// whether it succeeded.
func (s *Spinlock) TryLock() bool {
	return atomic.CompareAndSwapUint32(&s.state, 0, 1)
}

// Unlock releases the lock. Calling Unlock without holding the lock is
// a programmer error and corrupts the lock state; the core never does
// this, so no check is made on the hot path.
func (s *Spinlock) Unlock() {
	atomic.StoreUint32(&s.state, 0)
}
