// Package irq is the policy layer binding hardware IRQ lines to
// intr's dispatch table and programming the interrupt controller(s)
// accordingly. It depends on intr for vectors and handler chains, on
// apic for controller discovery and programming, and on kheap to
// account for the heap resources each registration holds. The chain
// node's own linked-list memory lives in ordinary Go memory in intr
// rather than the raw heap, since it holds a closure value and a page
// of unsafe-addressed memory cannot safely hold one across a GC
// cycle; see DESIGN.md for the full rationale.
package irq

import (
	"nucleus/src/apic"
	"nucleus/src/diag"
	"nucleus/src/intr"
	"nucleus/src/kheap"
	"nucleus/src/mem"
)

// Tuple describes one hardware interrupt source: a line number, an
// active polarity, and a trigger mode. ISA lines default to 1:1
// mapping with active-high polarity and edge triggering; firmware
// table overrides mutate a Tuple before any driver registers it.
type Tuple struct {
	Line     int
	Polarity apic.Polarity
	Trigger  apic.Trigger
}

// provider is the controller implementation Route/Mask/Ack/PrintInfo
// are issued against. Production wires this to the real I/O-APIC
// driver at boot; hosted tests wire it to apic.Mock.
var provider apic.Provider = apic.NewMock()

// SetProvider installs the controller provider used by RegisterIRQ,
// UnregisterIRQ, and Init.
func SetProvider(p apic.Provider) {
	if p == nil {
		panic("irq: nil controller provider")
	}
	provider = p
	intr.SetAckFunc(p.Ack)
}

// Vector computes the dispatch vector a hardware IRQ number maps to.
// Collisions from the modulus are resolved by the chain mechanism:
// handlers sharing a vector run in registration order, newest first.
func Vector(line int) intr.Vector {
	return intr.Vector(line%intr.IRQS) + intr.IRQ0
}

// Registration is the token RegisterVector/RegisterIRQ/RegisterMSI
// return and Unregister*/UnregisterIRQ consume. It bundles the intr
// chain token with the heap range charged to this registration.
type Registration struct {
	node   *intr.Node
	heap   uintptr
	vector intr.Vector
}

// RegisterVector allocates a heap-backed accounting page for the
// registration, then pushes handler onto vector's chain. Returns
// ok=false, leaving no trace, if the heap allocation fails.
func RegisterVector(vector intr.Vector, handler intr.Handler) (*Registration, bool) {
	page, ok := kheap.Reserve(uintptr(mem.PGSIZE))
	if !ok {
		return nil, false
	}
	node := intr.Push(vector, handler)
	return &Registration{node: node, heap: page, vector: vector}, true
}

// UnregisterVector removes reg's handler from its vector's chain and
// releases its accounting page. A nil reg is a silent no-op.
func UnregisterVector(reg *Registration) {
	if reg == nil {
		return
	}
	intr.Remove(reg.node)
	kheap.Free(reg.heap)
}

// RegisterIRQ computes tuple's vector, locates the controller owning
// its line, installs the handler, then programs that controller to
// route the line to the vector. Installation happens strictly before
// routing: an interrupt that arrived the instant after Route returned
// would otherwise hit an empty chain.
func RegisterIRQ(tuple *Tuple, handler intr.Handler) (*Registration, bool) {
	ctrl, ok := apic.Find(tuple.Line)
	if !ok {
		return nil, false
	}

	vector := Vector(tuple.Line)
	reg, ok := RegisterVector(vector, handler)
	if !ok {
		return nil, false
	}

	if !provider.Route(ctrl, tuple.Line, tuple.Polarity, tuple.Trigger, vector) {
		UnregisterVector(reg)
		return nil, false
	}
	return reg, true
}

// UnregisterIRQ masks tuple's line at every controller that owns it,
// then removes the handler from the chain. Masking happens strictly
// before removal: an interrupt that arrived the instant after the
// chain were cleared, but before masking, would otherwise hit a
// dangling chain.
func UnregisterIRQ(tuple *Tuple, reg *Registration) {
	for _, ctrl := range apic.Controllers() {
		if ctrl.Owns(tuple.Line) {
			provider.Mask(ctrl, tuple.Line)
		}
	}
	UnregisterVector(reg)
}

// RegisterMSI is the vector-only register path used by message-signaled
// interrupts, which bypass I/O-APIC redirection entirely and so have no
// controller-masking step to order against.
func RegisterMSI(vector intr.Vector, handler intr.Handler) (*Registration, bool) {
	return RegisterVector(vector, handler)
}

// isaLineCount is the number of legacy ISA interrupt lines given
// platform-fixed defaults at Init.
const isaLineCount = 16

// Init installs provider as the active controller implementation,
// wires its Ack into intr's dispatch path, prints discovered
// controllers for boot diagnostics, and establishes ISA line defaults
// (edge-triggered, active-high, 1:1 GSI mapping) before any driver
// registers. Firmware-table overrides, when present, mutate these
// defaults before Init returns.
func Init(p apic.Provider, overrides []Tuple) {
	SetProvider(p)

	defaults := make([]Tuple, isaLineCount)
	for i := range defaults {
		defaults[i] = Tuple{Line: i, Polarity: apic.ActiveHigh, Trigger: apic.Edge}
	}
	for _, o := range overrides {
		if o.Line >= 0 && o.Line < isaLineCount {
			defaults[o.Line] = o
		}
	}
	isaDefaults = defaults

	p.PrintInfo()
	diag.Bootf("irq: %d ISA line default(s) established\n", len(isaDefaults))
}

var isaDefaults []Tuple

// ISADefault returns the platform default tuple for a legacy ISA
// line, as established by Init.
func ISADefault(line int) (Tuple, bool) {
	if line < 0 || line >= len(isaDefaults) {
		return Tuple{}, false
	}
	return isaDefaults[line], true
}
