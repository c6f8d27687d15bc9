// Package vmm is the kernel's narrow interface onto the virtual memory
// mapper. As with pmm, the full mapper -- walking and allocating page
// table levels, invalidating TLB entries across CPUs, user-process
// address spaces with copy-on-write and mmap -- is architectural
// boilerplate and scheduling policy this core does not own. What the
// kernel heap depends on is map/unmap of a single page at a known
// virtual address with a given permission. vmm defines that interface,
// built on mem.go's page-table vocabulary (Pg_t/Pmap_t), and ships a
// hosted flat-map implementation for tests.
package vmm

import (
	"nucleus/src/mem"
	"nucleus/src/pmm"
)

// Flags is the small permission set the heap needs when it asks the
// mapper to back a page: present is implicit in a successful Map.
type Flags uint8

const (
	// Writable marks the mapping read-write; absent it is read-only.
	Writable Flags = 1 << iota
	// NoExec marks the mapping non-executable (PTE_NX on this
	// architecture).
	NoExec
	// Global marks a mapping visible to every address space, used by
	// the kernel heap since kernel mappings outlive any one process.
	Global
)

// pte translates Flags into the architectural page-table-entry bits
// from mem.go. Kept here rather than in mem so mem stays pure
// vocabulary with no policy of its own.
func (f Flags) pte() mem.Pa_t {
	bits := mem.PTE_P
	if f&Writable != 0 {
		bits |= mem.PTE_W
	}
	if f&Global != 0 {
		bits |= mem.PTE_G
	}
	if f&NoExec != 0 {
		bits |= mem.PTE_NX
	}
	return bits
}

// Mapper is the interface the kernel heap depends on to back newly
// claimed address ranges with physical memory.
type Mapper interface {
	// Map installs a single-page mapping from virt to phy with the
	// given flags, reporting false if virt is already mapped or phy
	// is not a valid frame for this mapper.
	Map(virt uintptr, phy pmm.Frame, flags Flags) bool
	// Unmap removes the mapping at virt, returning the frame that was
	// mapped there and true, or ok=false if virt was not mapped.
	Unmap(virt uintptr) (pmm.Frame, bool)
	// Translate reports the frame and flags currently mapped at virt.
	Translate(virt uintptr) (pmm.Frame, Flags, bool)
}

type mapping struct {
	phy   pmm.Frame
	flags Flags
}

// FlatMap is a hosted stand-in for a real page-table walker: a plain
// map keyed by page-aligned virtual address. It never builds a
// Pmap_t radix tree -- tests only need map/unmap/translate semantics,
// not the table format -- but enforces the same page-alignment and
// single-owner invariants a real mapper would.
type FlatMap struct {
	pages map[uintptr]mapping
}

// NewFlatMap returns an empty hosted mapper.
func NewFlatMap() *FlatMap {
	return &FlatMap{pages: make(map[uintptr]mapping)}
}

func align(virt uintptr) uintptr {
	return virt &^ (uintptr(mem.PGSIZE) - 1)
}

// Map implements Mapper.
func (m *FlatMap) Map(virt uintptr, phy pmm.Frame, flags Flags) bool {
	virt = align(virt)
	if _, exists := m.pages[virt]; exists {
		return false
	}
	m.pages[virt] = mapping{phy: phy, flags: flags}
	return true
}

// Unmap implements Mapper.
func (m *FlatMap) Unmap(virt uintptr) (pmm.Frame, bool) {
	virt = align(virt)
	e, ok := m.pages[virt]
	if !ok {
		return 0, false
	}
	delete(m.pages, virt)
	return e.phy, true
}

// Translate implements Mapper.
func (m *FlatMap) Translate(virt uintptr) (pmm.Frame, Flags, bool) {
	e, ok := m.pages[align(virt)]
	return e.phy, e.flags, ok
}
