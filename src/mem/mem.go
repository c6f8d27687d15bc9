// Package mem holds the address and page-table types shared by every
// memory-adjacent package in the kernel: the physical frame allocator
// (pmm), the virtual mapper (vmm), and the kernel heap (kheap). It owns
// no state of its own -- just the vocabulary the rest of the core agrees
// on.
package mem

// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

// PTE_P marks a page as present.
const PTE_P Pa_t = 1 << 0

// PTE_W marks a page writable.
const PTE_W Pa_t = 1 << 1

// PTE_U marks a page user-accessible.
const PTE_U Pa_t = 1 << 2

// PTE_G marks a global page.
const PTE_G Pa_t = 1 << 8

// PTE_PCD disables caching for the page.
const PTE_PCD Pa_t = 1 << 4

// PTE_NX marks a page non-executable. Architecturally this is bit 63 of
// the PTE; kept adjacent to the other flag bits here since this core
// never builds a real page table, only translates flags for vmm.
const PTE_NX Pa_t = 1 << 63

// PTE_ADDR extracts the address bits of a PTE.
const PTE_ADDR Pa_t = PGMASK

// Pa_t represents a physical address.
type Pa_t uintptr

// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

// Pg_t is a generic page of ints.
type Pg_t [512]int

// Pmap_t is a page table page.
type Pmap_t [512]Pa_t
