package lock

import "nucleus/src/cpu"

// intrEnable reads and sets the local CPU's interrupt-delivery flag.
// Both are architectural stubs (CLI/STI plus the flags-register bit on
// x86) wired at boot; hosted tests install no-op/bookkeeping stubs so
// the nesting behavior below can be exercised without real hardware.
var (
	intrEnableGet = func() bool { return true }
	intrEnableSet = func(bool) {}
)

// SetIntrHooks installs the architectural interrupt-enable/disable
// primitives. Called once at boot; tests may call it again to observe
// masking behavior.
func SetIntrHooks(get func() bool, set func(bool)) {
	if get == nil || set == nil {
		panic("lock: nil interrupt hook")
	}
	intrEnableGet, intrEnableSet = get, set
}

// save holds the per-CPU nesting stack for IntrLock/IntrUnlock. Pairs
// nest: IntrLock pushes the interrupt-enabled flag observed on entry,
// IntrUnlock pops and restores it, so an inner IntrLock/IntrUnlock pair
// nested inside an outer one never re-enables interrupts prematurely.
type save struct {
	depth int
	stack [64]bool
}

var perCPU [cpu.Max]save

// IntrLock disables local interrupt delivery and pushes the
// previously-observed enabled state onto this CPU's save slot. It is
// strictly per-CPU state and need not be atomic -- only the owning CPU
// ever touches its own slot.
func IntrLock() {
	s := &perCPU[cpu.ID()]
	was := intrEnableGet()
	if s.depth >= len(s.stack) {
		panic("lock: interrupt-mask guard nested too deeply")
	}
	s.stack[s.depth] = was
	s.depth++
	intrEnableSet(false)
}

// IntrUnlock pops the save slot pushed by the matching IntrLock and
// restores interrupt delivery to whatever it was before that call.
func IntrUnlock() {
	s := &perCPU[cpu.ID()]
	if s.depth == 0 {
		panic("lock: IntrUnlock without matching IntrLock")
	}
	s.depth--
	intrEnableSet(s.stack[s.depth])
}

// Guard composes a lock reachable from interrupt context with the
// interrupt-mask guard, so a call site acquires both in one motion and
// releases both with a single Release call -- the pattern design note
// "interrupt context reentrancy" calls for. Locker is satisfied by
// *Spinlock and the write side of *RWLock; ReadGuard below covers the
// read side, which needs a distinct release method.
type Locker interface {
	Lock()
	Unlock()
}

// Guard pairs a Locker with the interrupt mask. Acquire via NewGuard;
// release via Release, exactly once, from the same goroutine/CPU that
// acquired it.
type Guard struct {
	l Locker
}

// NewGuard disables interrupts, then acquires l, returning a handle
// whose Release undoes both in the reverse order.
func NewGuard(l Locker) Guard {
	IntrLock()
	l.Lock()
	return Guard{l: l}
}

// Release unlocks the underlying Locker and restores the prior
// interrupt-enabled state.
func (g Guard) Release() {
	g.l.Unlock()
	IntrUnlock()
}

// rlocker is satisfied by the read side of *RWLock.
type rlocker interface {
	RLock()
	RUnlock()
}

// ReadGuard is Guard's counterpart for RWLock's read side.
type ReadGuard struct {
	l rlocker
}

// NewReadGuard disables interrupts, then takes rw for reading.
func NewReadGuard(rw *RWLock) ReadGuard {
	IntrLock()
	rw.RLock()
	return ReadGuard{l: rw}
}

// Release releases the read lock and restores interrupt state.
func (g ReadGuard) Release() {
	g.l.RUnlock()
	IntrUnlock()
}
