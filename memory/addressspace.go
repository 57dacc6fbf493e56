package memory

import "io"

type AddressSpace interface {
	io.Closer
	Base() uintptr
	Size() uint64
}

// ReferenceCounted is implemented by address spaces whose lifetime is
// shared across owners, such as a CPU execution engine and a GPU context.
type ReferenceCounted interface {
	IncrementReferenceCount()
	DecrementReferenceCount() int64
}

// VirtualAddressSpace reserves a contiguous span of host addresses for
// one guest process. Pages are committed on demand through the allocator.
// Tracked spaces register their reservation in the allocator's table;
// untracked ones manage the raw range themselves.
type VirtualAddressSpace struct {
	alloc   *Allocator
	base    uintptr
	size    uint64
	tracked bool
}

func NewAddressSpace(alloc *Allocator, size uint64, tracked bool) (*VirtualAddressSpace, error) {
	if alloc == nil {
		alloc = Default()
	}
	var (
		base uintptr
		err  error
	)
	if tracked {
		base, err = alloc.Reserve(size, false)
	} else {
		base, err = alloc.reserveUntracked(size)
	}
	if err != nil {
		return nil, err
	}
	return &VirtualAddressSpace{
		alloc:   alloc,
		base:    base,
		size:    Align(size, alloc.PageSize()),
		tracked: tracked,
	}, nil
}

func (s *VirtualAddressSpace) Base() uintptr {
	return s.base
}

func (s *VirtualAddressSpace) Size() uint64 {
	return s.size
}

func (s *VirtualAddressSpace) Commit(offset, size uint64) error {
	return s.alloc.Commit(s.base+uintptr(offset), size, false)
}

func (s *VirtualAddressSpace) Decommit(offset, size uint64) error {
	return s.alloc.Decommit(s.base+uintptr(offset), size)
}

func (s *VirtualAddressSpace) Reprotect(offset, size uint64, perm Permission) bool {
	return s.alloc.Reprotect(s.base+uintptr(offset), size, perm)
}

func (s *VirtualAddressSpace) Close() error {
	if s.base == 0 {
		return nil
	}
	base := s.base
	s.base = 0
	if s.tracked {
		if !s.alloc.Free(base) {
			return ErrAddressUnknown
		}
		return nil
	}
	if !s.alloc.Unmap(base, s.size) {
		return ErrAddressUnknown
	}
	return nil
}

// SharedAddressSpace keeps its backing reservation alive while any owner
// holds a reference. Construction takes the first reference.
type SharedAddressSpace struct {
	*VirtualAddressSpace
	refs RefCount
}

func NewSharedAddressSpace(alloc *Allocator, size uint64) (*SharedAddressSpace, error) {
	inner, err := NewAddressSpace(alloc, size, true)
	if err != nil {
		return nil, err
	}
	s := &SharedAddressSpace{VirtualAddressSpace: inner}
	s.refs.Increment()
	return s, nil
}

func (s *SharedAddressSpace) IncrementReferenceCount() {
	s.refs.Increment()
}

func (s *SharedAddressSpace) DecrementReferenceCount() int64 {
	n := s.refs.Decrement()
	if n == 0 {
		s.VirtualAddressSpace.Close()
	}
	return n
}

func (s *SharedAddressSpace) ReferenceCount() int64 {
	return s.refs.Count()
}

// Close releases the constructing owner's reference.
func (s *SharedAddressSpace) Close() error {
	s.DecrementReferenceCount()
	return nil
}
