package irq

import (
	"runtime"
	"testing"
	"unsafe"

	"nucleus/src/apic"
	"nucleus/src/intr"
	"nucleus/src/kheap"
	"nucleus/src/mem"
	"nucleus/src/pmm"
	"nucleus/src/util"
	"nucleus/src/vmm"
)

// setupHeap backs the package-level kheap singleton with a real
// Go-allocated arena, the same technique kheap's own tests use, since
// RegisterVector charges every registration a heap-reserved page.
// buf is kept alive for the duration of the calling test via
// t.Cleanup's KeepAlive.
func setupHeap(t *testing.T) {
	t.Helper()
	const pages = 32
	buf := make([]byte, (pages+1)*mem.PGSIZE)
	base := util.Roundup(uintptr(unsafe.Pointer(&buf[0])), uintptr(mem.PGSIZE))
	t.Cleanup(func() { runtime.KeepAlive(buf) })

	frames := pmm.NewList(0x200000, 64)
	mapper := vmm.NewFlatMap()
	if ok := kheap.Init(base, base+uintptr(pages+1)*uintptr(mem.PGSIZE), frames, mapper); !ok {
		t.Fatal("kheap.Init failed")
	}
}

func TestRegisterIRQOrderingAndTwoHandlers(t *testing.T) {
	setupHeap(t)
	apic.Reset()
	defer apic.Reset()

	ctrl := &apic.Controller{MMIOBase: apic.DefaultMMIOBase, ID: 0, IRQBase: 0, IRQCount: 24}
	apic.Register(ctrl)

	mock := apic.NewMock()
	SetProvider(mock)

	var order []string
	tuple := &Tuple{Line: 1, Polarity: apic.ActiveHigh, Trigger: apic.Edge}

	reg1, ok := RegisterIRQ(tuple, func(*intr.Frame) { order = append(order, "first") })
	if !ok {
		t.Fatal("RegisterIRQ: expected success for handler 1")
	}
	reg2, ok := RegisterIRQ(tuple, func(*intr.Frame) { order = append(order, "second") })
	if !ok {
		t.Fatal("RegisterIRQ: expected success for handler 2")
	}

	v := Vector(tuple.Line)
	if !intr.HasHandlers(v) {
		t.Fatal("expected vector to have handlers installed before any dispatch")
	}
	intr.Dispatch(&intr.Frame{Vector: v})

	want := []string{"second", "first"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Fatalf("order = %v, want %v", order, want)
	}

	vec, masked, ok := mock.Routed(ctrl, tuple.Line)
	if !ok || vec != v || masked {
		t.Fatalf("Routed = %v, %v, %v; want %v, false, true", vec, masked, ok, v)
	}

	UnregisterIRQ(tuple, reg2)
	_, masked, ok = mock.Routed(ctrl, tuple.Line)
	if !ok || !masked {
		t.Fatal("expected line masked after UnregisterIRQ")
	}
	UnregisterIRQ(tuple, reg1)

	if intr.HasHandlers(v) {
		t.Fatal("expected no handlers remaining after both unregistered")
	}
}

func TestRegisterIRQFailsForUnownedLine(t *testing.T) {
	apic.Reset()
	defer apic.Reset()

	ctrl := &apic.Controller{ID: 0, IRQBase: 0, IRQCount: 8}
	apic.Register(ctrl)
	SetProvider(apic.NewMock())

	tuple := &Tuple{Line: 40, Polarity: apic.ActiveHigh, Trigger: apic.Edge}
	if _, ok := RegisterIRQ(tuple, func(*intr.Frame) {}); ok {
		t.Fatal("RegisterIRQ: expected failure for a line no controller owns")
	}
}

func TestRegisterMSIBypassesControllerMasking(t *testing.T) {
	setupHeap(t)
	apic.Reset()
	defer apic.Reset()
	SetProvider(apic.NewMock())

	var fired bool
	vector := intr.Vector(0x50)
	reg, ok := RegisterMSI(vector, func(*intr.Frame) { fired = true })
	if !ok {
		t.Fatal("RegisterMSI: expected success")
	}
	if !intr.HasHandlers(vector) {
		t.Fatal("expected MSI vector to have a handler installed")
	}

	intr.Dispatch(&intr.Frame{Vector: vector})
	if !fired {
		t.Fatal("expected MSI handler to run on dispatch")
	}

	UnregisterVector(reg)
	if intr.HasHandlers(vector) {
		t.Fatal("expected no handlers remaining after UnregisterVector")
	}
}

func TestUnregisterIRQUnownedLineIsNoop(t *testing.T) {
	apic.Reset()
	defer apic.Reset()

	ctrl := &apic.Controller{ID: 0, IRQBase: 0, IRQCount: 8}
	apic.Register(ctrl)
	mock := apic.NewMock()
	SetProvider(mock)

	tuple := &Tuple{Line: 40}
	UnregisterIRQ(tuple, nil)

	if len(mock.Acked()) != 0 {
		t.Fatal("expected no side effects from unregistering an unowned, never-registered line")
	}
}
