package memory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/halvaren/guestvm/internal/host"
)

// Segment is an OS-backed shareable memory object. Its backing name, if
// the OS needed one, is gone by the time Create returns; the object lives
// only through the handle and its mappings.
type Segment struct {
	handle    host.SharedHandle
	size      uint64
	destroyed bool
}

func (s *Segment) Size() uint64 {
	return s.size
}

// SharedMemory creates shareable segments and maps them, whole or as
// relocatable views, to give the guest multiple virtual addresses backed
// by the same physical pages.
type SharedMemory struct {
	backend host.Backend
	log     *zap.Logger
}

func NewSharedMemory(opts ...Option) *SharedMemory {
	o := newOptions(opts)
	return &SharedMemory{backend: o.backend, log: o.log}
}

func (m *SharedMemory) Create(size uint64, reserveOnly bool) (*Segment, error) {
	if size == 0 {
		return nil, ErrSizeInvalid
	}
	size = Align(size, m.backend.PageSize())
	h, err := m.backend.CreateShared(size, reserveOnly)
	if err != nil {
		m.log.Error("create segment failed", zap.Uint64("size", size), zap.Error(err))
		return nil, fmt.Errorf("memory: create shared segment %#x bytes: %w", size, err)
	}
	m.log.Debug("segment created", zap.Uint64("size", size), zap.Bool("reserve", reserveOnly))
	return &Segment{handle: h, size: size}, nil
}

// Destroy releases the OS object. Outstanding views are invalid from this
// point; nothing tracks them for the caller.
func (m *SharedMemory) Destroy(seg *Segment) error {
	if seg.destroyed {
		return ErrSegmentDestroyed
	}
	seg.destroyed = true
	if err := m.backend.DestroyShared(seg.handle); err != nil {
		return fmt.Errorf("memory: destroy shared segment: %w", err)
	}
	return nil
}

// Map creates a base read-write mapping of the whole object.
func (m *SharedMemory) Map(seg *Segment, size uint64) (uintptr, error) {
	if seg.destroyed {
		return 0, ErrSegmentDestroyed
	}
	addr, err := m.backend.MapShared(seg.handle, 0, 0, Align(size, m.backend.PageSize()), host.ProtReadWrite)
	if err != nil {
		return 0, fmt.Errorf("memory: map shared segment: %w", err)
	}
	return addr, nil
}

func (m *SharedMemory) Unmap(addr uintptr, size uint64) error {
	if err := m.backend.Unmap(addr, Align(size, m.backend.PageSize())); err != nil {
		return fmt.Errorf("memory: unmap shared segment: %w", err)
	}
	return nil
}

// MapView aliases a subrange of the object at a caller-chosen address:
// writes through destAddr are visible through every other mapping of the
// same offset.
func (m *SharedMemory) MapView(seg *Segment, srcOffset uint64, destAddr uintptr, size uint64) error {
	if seg.destroyed {
		return ErrSegmentDestroyed
	}
	_, err := m.backend.MapShared(seg.handle, int64(srcOffset), destAddr, Align(size, m.backend.PageSize()), host.ProtReadWrite)
	if err != nil {
		return fmt.Errorf("memory: map view at %#x: %w", destAddr, err)
	}
	m.log.Debug("view mapped", zap.Uintptr("dest", destAddr), zap.Uint64("offset", srcOffset), zap.Uint64("size", size))
	return nil
}

// UnmapView revokes access to the shared pages without creating a hole:
// the range is left reserved and inaccessible at the same address.
func (m *SharedMemory) UnmapView(destAddr uintptr, size uint64) error {
	if err := m.backend.UnmapView(destAddr, Align(size, m.backend.PageSize())); err != nil {
		return fmt.Errorf("memory: unmap view at %#x: %w", destAddr, err)
	}
	return nil
}
