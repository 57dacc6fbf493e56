package memory

import (
	"errors"
	"sync"
	"testing"
	"unsafe"
)

func deref(addr uintptr, size uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

func TestAllocateFree(t *testing.T) {
	a := New()
	first, err := a.Allocate(0x1000, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Allocate(0x1000, false)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("allocations share address %#x", first)
	}
	s := deref(first, 0x1000)
	s[0], s[0xfff] = 0xAA, 0x55
	if s[0] != 0xAA || s[0xfff] != 0x55 {
		t.Fatal("allocation not readable/writable")
	}
	if !a.Free(first) {
		t.Fatal("free of live allocation failed")
	}
	if a.Free(first) {
		t.Fatal("second free of the same address succeeded")
	}
	if !a.Free(second) {
		t.Fatal("free of second allocation failed")
	}
}

func TestAllocateZeroSize(t *testing.T) {
	a := New()
	if _, err := a.Allocate(0, false); !errors.Is(err, ErrSizeInvalid) {
		t.Fatalf("got %v, want ErrSizeInvalid", err)
	}
	if _, err := a.Reserve(0, false); !errors.Is(err, ErrSizeInvalid) {
		t.Fatalf("got %v, want ErrSizeInvalid", err)
	}
}

func TestReserveCommit(t *testing.T) {
	a := New()
	addr, err := a.Reserve(0x4000, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Commit(addr, 0x4000, false); err != nil {
		t.Fatal(err)
	}
	s := deref(addr, 0x4000)
	s[0], s[0x3fff] = 1, 2
	if s[0] != 1 || s[0x3fff] != 2 {
		t.Fatal("committed region not accessible")
	}
	if !a.Free(addr) {
		t.Fatal("free of reserved region failed")
	}
}

func TestDecommitZeroFill(t *testing.T) {
	a := New()
	addr, err := a.Allocate(0x1000, false)
	if err != nil {
		t.Fatal(err)
	}
	s := deref(addr, 0x1000)
	for i := range s {
		s[i] = 0xA5
	}
	if err := a.Decommit(addr, 0x1000); err != nil {
		t.Fatal(err)
	}
	if err := a.Commit(addr, 0x1000, false); err != nil {
		t.Fatal(err)
	}
	for i, b := range s {
		if b != 0 {
			t.Fatalf("byte %d is %#x after decommit/commit, want 0", i, b)
		}
	}
	a.Free(addr)
}

func TestReprotect(t *testing.T) {
	a := New()
	addr, err := a.Allocate(0x1000, false)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Reprotect(addr, 0x1000, PermissionReadWriteExecute) {
		t.Fatal("reprotect rwx of a live region failed")
	}
	if !a.Reprotect(addr, 0x1000, PermissionReadWrite) {
		t.Fatal("reprotect rw of a live region failed")
	}
	if !a.Free(addr) {
		t.Fatal("free failed")
	}
	// Probing an unmapped range is ordinary control flow, not an error.
	if a.Reprotect(addr, 0x1000, PermissionRead) {
		t.Fatal("reprotect of an unmapped region succeeded")
	}
}

func TestUnmapBypassesTracking(t *testing.T) {
	a := New()
	addr, err := a.reserveUntracked(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if a.Free(addr) {
		t.Fatal("free succeeded on an untracked address")
	}
	if !a.Unmap(addr, 0x1000) {
		t.Fatal("raw unmap failed")
	}
}

func TestJitRegionAliases(t *testing.T) {
	a := New()
	r, err := a.AllocateJitRegion(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	w := deref(r.Write, r.Size)
	w[0] = 0xC3
	x := deref(r.Exec, r.Size)
	if x[0] != 0xC3 {
		t.Fatal("executable alias does not observe the write")
	}
	if !a.FreeJitRegion(r) {
		t.Fatal("jit region free failed")
	}
	if a.FreeJitRegion(r) {
		t.Fatal("second jit region free succeeded")
	}
}

func TestConcurrentTracking(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 64; j++ {
				addr, err := a.Allocate(0x1000, false)
				if err != nil {
					t.Error(err)
					return
				}
				if !a.Free(addr) {
					t.Errorf("free of %#x failed", addr)
					return
				}
			}
		}()
	}
	wg.Wait()
}
