// Package kheap implements the kernel heap: a page-granular,
// doubly-linked free-list allocator over a reserved virtual-address
// range, layered on the physical frame allocator (pmm) and the
// virtual mapper (vmm) supplied at Init time. It is the one place in
// this core that owns an unsafe perimeter (see node.go) -- everywhere
// else, addresses are plain uintptr values.
package kheap

import (
	"nucleus/src/diag"
	"nucleus/src/lock"
	"nucleus/src/mem"
	"nucleus/src/pmm"
	"nucleus/src/stats"
	"nucleus/src/util"
	"nucleus/src/vmm"
)

const frameSize = uintptr(mem.PGSIZE)

// Flags selects the permissions an allocating Alloc call installs on
// the pages it backs. Reserve never takes flags -- the caller maps
// the range itself, with whatever permissions it wants, once it is
// ready.
type Flags uint8

const (
	// Writable marks allocated pages read-write.
	Writable Flags = 1 << iota
	// Executable marks allocated pages executable. Absent, pages are
	// mapped non-executable -- NX is the default.
	Executable
)

func (f Flags) toVMM() vmm.Flags {
	v := vmm.Global
	if f&Writable != 0 {
		v |= vmm.Writable
	}
	if f&Executable == 0 {
		v |= vmm.NoExec
	}
	return v
}

// Snapshot is the /proc-style counter block kheap.Stats returns: node
// count plus free/used payload page counts, cheap enough to compute
// under the heap lock on every call rather than maintained
// incrementally.
type Snapshot struct {
	Nodes     int
	FreePages int
	UsedPages int
}

// counters is the boot-diagnostic counter block for the package-level
// heap: Alloc/Free call counts plus cycles spent in Alloc, formatted
// on demand by DebugString via stats.Stats2String.
type counters struct {
	Allocs      stats.Counter_t
	Frees       stats.Counter_t
	AllocCycles stats.Cycles_t
}

var heapStats counters

// DebugString renders the package-level heap's counters for a boot
// banner. Empty when stats.Stats is compiled off.
func DebugString() string {
	return stats.Stats2String(heapStats)
}

// Heap is one instance of the kernel heap. Production code has
// exactly one, reachable through the package-level functions below;
// tests construct as many as they like via New for isolation.
type Heap struct {
	mu     lock.Spinlock
	frames pmm.Allocator
	mapper vmm.Mapper
	root   *node
	base   uintptr
	limit  uintptr
}

var global *Heap

// Init reserves [base, limit) as the kernel heap's virtual range,
// allocates and maps the root node's header page at base, and
// installs the resulting Heap as the package-level singleton reached
// by Alloc/Reserve/Free/Stats. base must already be reserved by the
// caller (in production: the end of the kernel image rounded up to a
// 2 MiB boundary; in tests: the base of a backing arena) and limit -
// base must be at least two pages. Init aborts boot via diag.Fatal if
// the root frame cannot be allocated or mapped -- the heap is
// non-optional.
func Init(base, limit uintptr, frames pmm.Allocator, mapper vmm.Mapper) bool {
	h, ok := New(base, limit, frames, mapper)
	if !ok {
		diag.Fatal("kheap: failed to initialize heap [%#x, %#x)", base, limit)
		return false
	}
	global = h
	diag.Bootf("kheap: initialized [%#x, %#x), %d free pages\n",
		base, limit, (limit-base)/frameSize-1)
	return true
}

// New builds a standalone Heap, used directly by Init and by tests
// that want isolation from the package-level singleton.
func New(base, limit uintptr, frames pmm.Allocator, mapper vmm.Mapper) (*Heap, bool) {
	if limit <= base || limit-base < 2*frameSize {
		return nil, false
	}
	frame, ok := frames.Alloc()
	if !ok {
		return nil, false
	}
	if !mapper.Map(base, frame, vmm.Writable|vmm.NoExec|vmm.Global) {
		frames.Free(frame)
		return nil, false
	}
	root := nodeAt(base)
	*root = node{start: base + frameSize, end: limit, state: free}
	return &Heap{frames: frames, mapper: mapper, root: root, base: base, limit: limit}, true
}

// Alloc reserves a range of at least size bytes and backs every
// payload page with a freshly allocated, mapped physical frame. On
// any failure partway through backing the range, Alloc rolls the
// whole reservation back via the same path Free uses and returns
// ok=false.
func Alloc(size uintptr, flags Flags) (uintptr, bool) {
	return global.Alloc(size, flags)
}

// Reserve reserves a range of at least size bytes without backing it
// with physical memory; the caller is responsible for mapping the
// payload pages before using them.
func Reserve(size uintptr) (uintptr, bool) {
	return global.Reserve(size)
}

// Free releases the range previously returned by Alloc or Reserve.
func Free(ptr uintptr) {
	global.Free(ptr)
}

// Stats reports the package-level singleton's current node/page
// counts.
func Stats() Snapshot {
	return global.Stats()
}

// Alloc is the allocating variant of the reservation algorithm: after
// reserving a fitting node, it transitions it to ALLOCATED and backs
// every payload page with a freshly allocated, mapped frame.
func (h *Heap) Alloc(size uintptr, flags Flags) (uintptr, bool) {
	start := stats.Rdtsc()

	g := lock.NewGuard(&h.mu)
	defer g.Release()

	n, ok := h.reserveLocked(size)
	if !ok {
		return 0, false
	}
	n.state = allocated
	vflags := flags.toVMM()

	for addr := n.start; addr < n.end; addr += frameSize {
		frame, ok := h.frames.Alloc()
		if !ok {
			h.freeLocked(n.start)
			return 0, false
		}
		if !h.mapper.Map(addr, frame, vflags) {
			h.frames.Free(frame)
			h.freeLocked(n.start)
			return 0, false
		}
	}
	heapStats.Allocs.Inc()
	heapStats.AllocCycles.Add(start)
	return n.start, true
}

// Reserve is the reserving variant: it stops after marking the chosen
// node RESERVED, leaving its payload unmapped.
func (h *Heap) Reserve(size uintptr) (uintptr, bool) {
	g := lock.NewGuard(&h.mu)
	defer g.Release()

	n, ok := h.reserveLocked(size)
	if !ok {
		return 0, false
	}
	return n.start, true
}

// reserveLocked implements the shared first-fit-and-split algorithm.
// Callers hold h.mu.
func (h *Heap) reserveLocked(size uintptr) (*node, bool) {
	size = util.Roundup(size, frameSize)
	if size == 0 {
		size = frameSize
	}

	for n := h.root; n != nil; n = n.next {
		if n.state != free || n.size() < size {
			continue
		}

		extra := n.size() - size
		if extra >= 2*frameSize {
			h.split(n, size)
		}
		n.state = reserved
		return n, true
	}
	return nil, false
}

// split carves a new FREE node off the tail of n, sized so that n
// keeps exactly size payload bytes. On failure to allocate or map the
// new header frame, split leaves n untouched -- the caller still gets
// a node at least as large as requested, just without the remainder
// reclaimed as a separate node.
func (h *Heap) split(n *node, size uintptr) {
	newHeaderVirt := n.start + size
	frame, ok := h.frames.Alloc()
	if !ok {
		return
	}
	if !h.mapper.Map(newHeaderVirt, frame, vmm.Writable|vmm.NoExec|vmm.Global) {
		h.frames.Free(frame)
		return
	}

	newNode := nodeAt(newHeaderVirt)
	*newNode = node{
		start: newHeaderVirt + frameSize,
		end:   n.end,
		state: free,
		prev:  n,
		next:  n.next,
	}
	if n.next != nil {
		n.next.prev = newNode
	}
	n.next = newNode
	n.end = newHeaderVirt
}

// Free implements the deallocation algorithm: unmap and release any
// physical frames backing an ALLOCATED node's payload, mark it FREE,
// then coalesce with a FREE next and/or previous neighbor.
func (h *Heap) Free(ptr uintptr) {
	g := lock.NewGuard(&h.mu)
	defer g.Release()
	h.freeLocked(ptr)
}

func (h *Heap) freeLocked(ptr uintptr) {
	n := nodeAt(headerFor(ptr))

	if n.state == allocated {
		for addr := n.start; addr < n.end; addr += frameSize {
			if frame, ok := h.mapper.Unmap(addr); ok {
				h.frames.Free(frame)
			}
		}
	}
	n.state = free
	heapStats.Frees.Inc()

	if n.next != nil && n.next.state == free {
		nxt := n.next
		n.end = nxt.end
		n.next = nxt.next
		if nxt.next != nil {
			nxt.next.prev = n
		}
		if frame, ok := h.mapper.Unmap(headerFor(nxt.start)); ok {
			h.frames.Free(frame)
		}
	}

	if n.prev != nil && n.prev.state == free {
		prv := n.prev
		prv.end = n.end
		prv.next = n.next
		if n.next != nil {
			n.next.prev = prv
		}
		// Free the absorbed node's (n's) own header frame, not the
		// surviving node's (prv's).
		if frame, ok := h.mapper.Unmap(headerFor(n.start)); ok {
			h.frames.Free(frame)
		}
	}
}

// Stats walks the node list under the heap lock and reports totals.
func (h *Heap) Stats() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	var s Snapshot
	for n := h.root; n != nil; n = n.next {
		s.Nodes++
		pages := int(n.size() / frameSize)
		switch n.state {
		case free:
			s.FreePages += pages
		case reserved, allocated:
			s.UsedPages += pages
		}
	}
	return s
}
