//go:build darwin && !ios

package host

import "golang.org/x/sys/unix"

const (
	releaseAdvice = unix.MADV_FREE_REUSABLE
	jitMapFlags   = unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_JIT
)

type backend struct {
	unixBackend
}

func newBackend() Backend {
	return backend{}
}

func (backend) Alloc(size uint64, forJit bool) (uintptr, error) {
	prot := ProtReadWrite
	flags := unix.MAP_PRIVATE | unix.MAP_ANON
	if forJit {
		prot = ProtReadWriteExec
		flags |= unix.MAP_JIT
	}
	return mmapRaw(0, size, prot, flags, -1, 0)
}

func (backend) Reserve(size uint64, forJit bool) (uintptr, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_NORESERVE
	if forJit {
		flags |= unix.MAP_JIT
	}
	return mmapRaw(0, size, ProtNone, flags, -1, 0)
}

func (backend) Commit(addr uintptr, size uint64, forJit bool) error {
	prot := ProtReadWrite
	if forJit {
		// Legal only on ranges reserved with MAP_JIT.
		prot = ProtReadWriteExec
	}
	return protectRaw(addr, size, prot)
}

func (backend) CreateShared(size uint64, reserveOnly bool) (SharedHandle, error) {
	return createSharedUnlink(size)
}
