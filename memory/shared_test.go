package memory

import (
	"errors"
	"testing"
)

func TestSharedAlias(t *testing.T) {
	a := New()
	m := NewSharedMemory()
	pageSize := a.PageSize()

	seg, err := m.Create(pageSize, false)
	if err != nil {
		t.Fatal(err)
	}
	base, err := m.Map(seg, pageSize)
	if err != nil {
		t.Fatal(err)
	}
	s := deref(base, pageSize)
	for i := range s {
		s[i] = 0x5A
	}

	dest, err := a.Reserve(pageSize, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.MapView(seg, 0, dest, pageSize); err != nil {
		t.Fatal(err)
	}
	v := deref(dest, pageSize)
	if v[0] != 0x5A || v[pageSize-1] != 0x5A {
		t.Fatal("view does not alias the base mapping")
	}
	v[1] = 0x7E
	if s[1] != 0x7E {
		t.Fatal("write through the view is not visible in the base mapping")
	}

	if err := m.UnmapView(dest, pageSize); err != nil {
		t.Fatal(err)
	}
	// The range stays reserved: protection changes still land on it.
	if !a.Reprotect(dest, pageSize, PermissionNone) {
		t.Fatal("reservation lost after UnmapView")
	}
	if !a.Free(dest) {
		t.Fatal("free of view destination failed")
	}

	if err := m.Unmap(base, pageSize); err != nil {
		t.Fatal(err)
	}
	if err := m.Destroy(seg); err != nil {
		t.Fatal(err)
	}
	if err := m.Destroy(seg); !errors.Is(err, ErrSegmentDestroyed) {
		t.Fatalf("got %v, want ErrSegmentDestroyed", err)
	}
}

func TestSharedViewOffset(t *testing.T) {
	a := New()
	m := NewSharedMemory()
	pageSize := a.PageSize()

	seg, err := m.Create(2*pageSize, false)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy(seg)

	base, err := m.Map(seg, 2*pageSize)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Unmap(base, 2*pageSize)
	s := deref(base, 2*pageSize)
	s[pageSize] = 0xBE

	dest, err := a.Reserve(pageSize, false)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Free(dest)
	if err := m.MapView(seg, pageSize, dest, pageSize); err != nil {
		t.Fatal(err)
	}
	if deref(dest, pageSize)[0] != 0xBE {
		t.Fatal("offset view does not alias the second page")
	}
	if err := m.UnmapView(dest, pageSize); err != nil {
		t.Fatal(err)
	}
}

func TestCreateZeroSize(t *testing.T) {
	m := NewSharedMemory()
	if _, err := m.Create(0, false); !errors.Is(err, ErrSizeInvalid) {
		t.Fatalf("got %v, want ErrSizeInvalid", err)
	}
}

func TestMapDestroyedSegment(t *testing.T) {
	a := New()
	m := NewSharedMemory()
	seg, err := m.Create(a.PageSize(), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Destroy(seg); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Map(seg, a.PageSize()); !errors.Is(err, ErrSegmentDestroyed) {
		t.Fatalf("got %v, want ErrSegmentDestroyed", err)
	}
	if err := m.MapView(seg, 0, 0x1000, a.PageSize()); !errors.Is(err, ErrSegmentDestroyed) {
		t.Fatalf("got %v, want ErrSegmentDestroyed", err)
	}
}
