package memory

import "testing"

func TestAddressSpaceLifetime(t *testing.T) {
	a := New()
	as, err := NewAddressSpace(a, 1<<20, true)
	if err != nil {
		t.Fatal(err)
	}
	if as.Base() == 0 {
		t.Fatal("address space has no base")
	}
	if as.Size() != 1<<20 {
		t.Fatalf("size %#x, want %#x", as.Size(), 1<<20)
	}
	if err := as.Commit(0, 0x1000); err != nil {
		t.Fatal(err)
	}
	s := deref(as.Base(), 0x1000)
	s[0] = 0xEE
	if err := as.Decommit(0, 0x1000); err != nil {
		t.Fatal(err)
	}
	if err := as.Close(); err != nil {
		t.Fatal(err)
	}
	if err := as.Close(); err != nil {
		t.Fatal("second close is not a no-op:", err)
	}
}

func TestUntrackedAddressSpace(t *testing.T) {
	a := New()
	as, err := NewAddressSpace(a, 1<<20, false)
	if err != nil {
		t.Fatal(err)
	}
	// The reservation is invisible to the tracking table.
	if a.Free(as.Base()) {
		t.Fatal("untracked reservation present in the tracking table")
	}
	if err := as.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSharedAddressSpaceRefCounting(t *testing.T) {
	a := New()
	as, err := NewSharedAddressSpace(a, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if n := as.ReferenceCount(); n != 1 {
		t.Fatalf("fresh count %d, want 1", n)
	}
	as.IncrementReferenceCount()
	if n := as.DecrementReferenceCount(); n != 1 {
		t.Fatalf("count after balanced inc/dec is %d, want 1", n)
	}
	if as.Base() == 0 {
		t.Fatal("backing released while count > 0")
	}
	if n := as.DecrementReferenceCount(); n != 0 {
		t.Fatalf("final count %d, want 0", n)
	}
	if as.Base() != 0 {
		t.Fatal("backing not released at count zero")
	}
}

func TestRefCountUnderflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("underflow did not panic")
		}
	}()
	var c RefCount
	c.Decrement()
}
