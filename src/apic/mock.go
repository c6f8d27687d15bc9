package apic

import (
	"nucleus/src/diag"
	"nucleus/src/intr"
)

// routing is one programmed line: the vector it currently delivers
// and whether delivery is masked.
type routing struct {
	vector  intr.Vector
	masked  bool
	polar   Polarity
	trigger Trigger
}

// Mock is a hosted stand-in for the real I/O-APIC/Local-APIC pair,
// suitable for unit tests: Route/Mask/Ack record their effects in
// plain Go maps instead of MMIO writes, and Acked/Routed let tests
// assert on exactly what irq and intr did to the hardware without
// needing real registers.
type Mock struct {
	lines map[*Controller]map[int]routing
	acked []intr.Vector
}

// NewMock returns an empty hosted controller-provider.
func NewMock() *Mock {
	return &Mock{lines: make(map[*Controller]map[int]routing)}
}

// Route implements Provider.
func (m *Mock) Route(ctrl *Controller, line int, polarity Polarity, trigger Trigger, vector intr.Vector) bool {
	if !ctrl.Owns(line) {
		return false
	}
	byLine, ok := m.lines[ctrl]
	if !ok {
		byLine = make(map[int]routing)
		m.lines[ctrl] = byLine
	}
	byLine[line] = routing{vector: vector, polar: polarity, trigger: trigger}
	return true
}

// Mask implements Provider.
func (m *Mock) Mask(ctrl *Controller, line int) {
	byLine, ok := m.lines[ctrl]
	if !ok {
		return
	}
	r := byLine[line]
	r.masked = true
	byLine[line] = r
}

// Ack implements Provider.
func (m *Mock) Ack(vector intr.Vector) {
	m.acked = append(m.acked, vector)
}

// Acked returns every vector Ack has been called with, in order.
func (m *Mock) Acked() []intr.Vector {
	return m.acked
}

// Routed reports the vector currently programmed for line on ctrl,
// and whether the line is masked.
func (m *Mock) Routed(ctrl *Controller, line int) (vector intr.Vector, masked bool, ok bool) {
	byLine, exists := m.lines[ctrl]
	if !exists {
		return 0, false, false
	}
	r, exists := byLine[line]
	if !exists {
		return 0, false, false
	}
	return r.vector, r.masked, true
}

// PrintInfo implements Provider: a plain count-and-summary line per
// discovered controller, not a per-register table, via diag.Bootf
// rather than a raw fmt.Printf. Ranges over Controllers() rather than
// m.lines so a controller with nothing routed yet -- the case at boot,
// before any driver has registered -- still prints.
func (m *Mock) PrintInfo() {
	for _, ctrl := range Controllers() {
		diag.Bootf("apic: controller %d at %#x routes %d line(s)\n", ctrl.ID, ctrl.MMIOBase, len(m.lines[ctrl]))
	}
}
