package host

import "sync"

type Prot int

const (
	ProtNone Prot = 0
	ProtRead Prot = 1 << (iota - 1)
	ProtWrite
	ProtExec

	ProtReadWrite     = ProtRead | ProtWrite
	ProtReadExec      = ProtRead | ProtExec
	ProtReadWriteExec = ProtRead | ProtWrite | ProtExec
)

// SharedHandle refers to an OS-backed shareable memory object. It is a
// file descriptor on unix families and a section handle on windows.
type SharedHandle uintptr

// JitRegion is a code buffer with a writable alias and an executable
// alias. On platforms without write-xor-execute enforcement both aliases
// are the same address.
type JitRegion struct {
	Write uintptr
	Exec  uintptr
	Size  uint64

	backing SharedHandle
}

// Backend is the per-OS strategy for raw virtual memory manipulation.
// There is one implementation per OS family, selected by build tags;
// callers never branch on platform.
type Backend interface {
	PageSize() uint64

	Alloc(size uint64, forJit bool) (uintptr, error)
	Reserve(size uint64, forJit bool) (uintptr, error)
	Commit(addr uintptr, size uint64, forJit bool) error
	Decommit(addr uintptr, size uint64) error
	Protect(addr uintptr, size uint64, prot Prot) error
	Unmap(addr uintptr, size uint64) error

	AllocateJit(size uint64) (JitRegion, error)
	FreeJit(region JitRegion) error

	CreateShared(size uint64, reserveOnly bool) (SharedHandle, error)
	DestroyShared(h SharedHandle) error
	MapShared(h SharedHandle, offset int64, addr uintptr, size uint64, prot Prot) (uintptr, error)
	UnmapView(addr uintptr, size uint64) error
}

var (
	defaultOnce    sync.Once
	defaultBackend Backend
)

func Default() Backend {
	defaultOnce.Do(func() {
		defaultBackend = newBackend()
	})
	return defaultBackend
}
