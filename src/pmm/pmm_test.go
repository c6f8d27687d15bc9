package pmm

import "testing"

func TestListAllocFree(t *testing.T) {
	l := NewList(0x100000, 4)
	got := make(map[Frame]bool)
	for i := 0; i < 4; i++ {
		f, ok := l.Alloc()
		if !ok {
			t.Fatalf("alloc %d: unexpected exhaustion", i)
		}
		if got[f] {
			t.Fatalf("alloc %d: frame %#x handed out twice", i, f)
		}
		got[f] = true
	}
	if _, ok := l.Alloc(); ok {
		t.Fatal("alloc: expected exhaustion after all frames taken")
	}
	for f := range got {
		l.Free(f)
	}
	if l.FreeCount() != 4 {
		t.Fatalf("FreeCount = %d, want 4", l.FreeCount())
	}
}

func TestListFailAfter(t *testing.T) {
	l := NewList(0x100000, 4)
	l.FailAfter = 1

	if _, ok := l.Alloc(); !ok {
		t.Fatal("alloc 0: expected success before FailAfter")
	}
	if _, ok := l.Alloc(); ok {
		t.Fatal("alloc 1: expected injected failure")
	}
	if l.FreeCount() != 3 {
		t.Fatalf("FreeCount after injected failure = %d, want 3", l.FreeCount())
	}
	if _, ok := l.Alloc(); !ok {
		t.Fatal("alloc 2: expected success after injected failure resets")
	}
}

func TestListDoubleFreePanics(t *testing.T) {
	l := NewList(0x100000, 1)
	f, _ := l.Alloc()
	l.Free(f)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	l.Free(f)
}
