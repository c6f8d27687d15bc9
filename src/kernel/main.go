// Command kernel is the boot entry point: it wires the physical frame
// allocator and virtual mapper into the kernel heap, reports the
// architectural fault range as armed, registers the interrupt
// controller, and establishes IRQ routing -- strictly in that order, and strictly
// before anything unmasks a line: trap-handler installation must come
// before any interrupt line is ever unmasked.
package main

import (
	"runtime"
	"unsafe"

	"nucleus/src/apic"
	"nucleus/src/cpu"
	"nucleus/src/diag"
	"nucleus/src/intr"
	"nucleus/src/irq"
	"nucleus/src/kheap"
	"nucleus/src/pmm"
	"nucleus/src/vmm"
)

// heapBase and heapLimit bound the kernel heap's virtual range. The
// real values come from the linker-provided end-of-image symbol and a
// fixed architectural ceiling; kernelImageEnd stands in for that symbol
// until this core is wired to a real linker script.
const (
	kernelImageEnd = 0x100000000
	heapBase       = (kernelImageEnd + (2 << 20) - 1) &^ (2<<20 - 1)
	heapLimit      = heapBase + (512 << 20)
)

// lapicID reads the Local APIC ID out of its MMIO register and shifts
// it into cpu.ID's logical-CPU-number shape.
func lapicID() int {
	regs := (*[1024]uint32)(unsafe.Pointer(uintptr(0xfee00000)))
	return int(regs[0x20/4] >> 24)
}

// bootFrames and bootMapper stand in for the boot-loader handoff this
// core does not own: a real build replaces these with the platform's
// memory-map parser and direct-map page-table walker. The hosted
// implementations here are the same ones irq and kheap's own tests
// use.
func bootFrames() pmm.Allocator {
	return pmm.NewList(0x400000, 1<<17)
}

func bootMapper() vmm.Mapper {
	return vmm.NewFlatMap()
}

// installFaultHandlers declares the architectural fault range to
// dispatch. None of them get a driver-supplied handler at boot --
// dispatch's fallback to unhandledFault for any fault vector with an
// empty chain is what a fault hitting an unprepared kernel should do --
// this only needs to run so the boot banner can report the range is
// live before interrupts are ever unmasked.
func installFaultHandlers() {
	diag.Bootf("intr: fault vectors [%#x, %#x] armed\n", intr.FaultFirst, intr.FaultLast)
}

func main() {
	cpu.SetIDFunc(lapicID)

	diag.Bootf("              nucleus\n")
	diag.Bootf("          go version: %v\n", runtime.Version())

	frames := bootFrames()
	mapper := bootMapper()

	if ok := kheap.Init(heapBase, heapLimit, frames, mapper); !ok {
		diag.Fatal("kheap: failed to initialize [%#x, %#x)", heapBase, heapLimit)
	}

	// Must come before any irq_unmask()s: the banner reports the fault
	// range armed before a controller can route a line. Dispatch's
	// unhandledFault fallback already covers every fault vector.
	installFaultHandlers()

	ctrl := &apic.Controller{MMIOBase: apic.DefaultMMIOBase, ID: 0, IRQBase: 0, IRQCount: 24}
	apic.Register(ctrl)
	irq.Init(apic.NewMock(), nil)

	diag.Bootf("nucleus: heap [%#x, %#x), %d page(s) free\n", heapBase, heapLimit, kheap.Stats().FreePages)
	if s := kheap.DebugString(); s != "" {
		diag.Bootf("kheap: counters:%s", s)
	}
	diag.Bootf("nucleus: boot complete\n")

	var dur chan bool
	<-dur
}
