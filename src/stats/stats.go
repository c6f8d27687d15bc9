// Package stats holds the kernel's cheap diagnostic counters: a pair of
// generic counter types gated behind a package-wide on/off switch, and
// a reflection-based formatter that turns a struct of them into a
// printable block for boot diagnostics. No call site pays for these
// when Stats/Timing are false -- Inc/Add become no-ops the compiler
// can see through.
package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"
import "unsafe"

const Stats = false
const Timing = false

// rdtsc reads the architectural cycle counter. Production wires this to
// the real RDTSC instruction at boot; it is a function variable for the
// same reason cpu.ID and the lock package's interrupt hooks are -- the
// instruction itself is architectural boilerplate this core does not
// own.
var rdtsc = func() uint64 { return 0 }

// SetRdtscFunc installs the architectural cycle-counter reader.
func SetRdtscFunc(fn func() uint64) {
	if fn == nil {
		panic("stats: nil rdtsc function")
	}
	rdtsc = fn
}

/// Rdtsc returns the current cycle count when enabled.
func Rdtsc() uint64 {
	if Stats {
		return rdtsc()
	} else {
		return 0
	}
}

/// Counter_t is a statistical counter.
type Counter_t int64

/// Cycles_t holds a cycle count.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

/// Add adds elapsed cycles to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Rdtsc()-m))
	}
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}

	}
	return s + "\n"
}
