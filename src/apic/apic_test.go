package apic

import "testing"

func TestOwnsIsHalfOpenInclusiveOfLastIRQ(t *testing.T) {
	ctrl := &Controller{MMIOBase: DefaultMMIOBase, ID: 0, IRQBase: 0, IRQCount: 24}

	if !ctrl.Owns(0) {
		t.Fatal("Owns(0): expected true, first IRQ of range")
	}
	if !ctrl.Owns(23) {
		t.Fatal("Owns(23): expected true, last IRQ of a 24-line range")
	}
	if ctrl.Owns(24) {
		t.Fatal("Owns(24): expected false, first IRQ past the range")
	}
}

func TestFindAcrossDisjointControllers(t *testing.T) {
	Reset()
	defer Reset()

	a := &Controller{ID: 0, IRQBase: 0, IRQCount: 24}
	b := &Controller{ID: 1, IRQBase: 24, IRQCount: 8}
	Register(a)
	Register(b)

	if got, ok := Find(23); !ok || got != a {
		t.Fatalf("Find(23) = %v, %v; want a, true", got, ok)
	}
	if got, ok := Find(24); !ok || got != b {
		t.Fatalf("Find(24) = %v, %v; want b, true", got, ok)
	}
	if _, ok := Find(32); ok {
		t.Fatal("Find(32): expected no controller to own an IRQ past both ranges")
	}
}

func TestMockRouteRespectsOwnership(t *testing.T) {
	m := NewMock()
	ctrl := &Controller{ID: 0, IRQBase: 0, IRQCount: 16}

	if ok := m.Route(ctrl, 20, ActiveHigh, Edge, 0x40); ok {
		t.Fatal("Route: expected failure for a line outside the controller's range")
	}
	if ok := m.Route(ctrl, 1, ActiveHigh, Edge, 0x41); !ok {
		t.Fatal("Route: expected success for a line inside the controller's range")
	}
	vector, masked, ok := m.Routed(ctrl, 1)
	if !ok || vector != 0x41 || masked {
		t.Fatalf("Routed = %v, %v, %v; want 0x41, false, true", vector, masked, ok)
	}

	m.Mask(ctrl, 1)
	_, masked, _ = m.Routed(ctrl, 1)
	if !masked {
		t.Fatal("Mask: expected line to be masked afterward")
	}
}
