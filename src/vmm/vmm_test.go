package vmm

import "testing"

func TestFlatMapRoundTrip(t *testing.T) {
	m := NewFlatMap()
	const virt = 0xffff800000001000
	if ok := m.Map(virt, 0x2000, Writable|Global); !ok {
		t.Fatal("Map: expected success on unmapped page")
	}
	if ok := m.Map(virt, 0x3000, Writable); ok {
		t.Fatal("Map: expected failure remapping an already-mapped page")
	}
	phy, flags, ok := m.Translate(virt)
	if !ok || phy != 0x2000 || flags != Writable|Global {
		t.Fatalf("Translate = %#x, %v, %v; want 0x2000, Writable|Global, true", phy, flags, ok)
	}
	got, ok := m.Unmap(virt)
	if !ok || got != 0x2000 {
		t.Fatalf("Unmap = %#x, %v; want 0x2000, true", got, ok)
	}
	if _, _, ok := m.Translate(virt); ok {
		t.Fatal("Translate: expected miss after Unmap")
	}
}

func TestFlatMapAlignment(t *testing.T) {
	m := NewFlatMap()
	if ok := m.Map(0x1000, 0x9000, 0); !ok {
		t.Fatal("Map: expected success")
	}
	if _, _, ok := m.Translate(0x1fff); !ok {
		t.Fatal("Translate: expected a sub-page offset to resolve to its containing page")
	}
}
