//go:build !windows

package host

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

func (p Prot) native() int {
	var n int
	if p&ProtRead != 0 {
		n |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		n |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		n |= unix.PROT_EXEC
	}
	return n
}

func region(addr uintptr, size uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

func mmapRaw(addr uintptr, size uint64, prot Prot, flags int, fd int, offset int64) (uintptr, error) {
	p, err := unix.MmapPtr(fd, offset, unsafe.Pointer(addr), uintptr(size), prot.native(), flags)
	if err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

func protectRaw(addr uintptr, size uint64, prot Prot) error {
	return unix.Mprotect(region(addr, size), prot.native())
}

func unmapRaw(addr uintptr, size uint64) error {
	return unix.MunmapPtr(unsafe.Pointer(addr), uintptr(size))
}

// decommitRaw releases physical pages while keeping the reservation. The
// range must be writable before the release advisory or some kernels
// reject it, and must end up PROT_NONE so stale access faults instead of
// silently touching dead pages.
func decommitRaw(addr uintptr, size uint64) error {
	if err := protectRaw(addr, size, ProtReadWrite); err != nil {
		return err
	}
	if err := unix.Madvise(region(addr, size), releaseAdvice); err != nil {
		return err
	}
	return protectRaw(addr, size, ProtNone)
}

var sharedSeq atomic.Uint64

// createSharedUnlink makes an anonymous shared object through the
// filesystem: the name is removed immediately, so the object stays
// reachable only through the descriptor.
func createSharedUnlink(size uint64) (SharedHandle, error) {
	name := fmt.Sprintf("%s/guestvm-shm-%d-%d", os.TempDir(), os.Getpid(), sharedSeq.Add(1))
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return 0, err
	}
	unix.Unlink(name)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return 0, err
	}
	return SharedHandle(fd), nil
}

type unixBackend struct{}

func (unixBackend) PageSize() uint64 {
	return uint64(os.Getpagesize())
}

func (unixBackend) Decommit(addr uintptr, size uint64) error {
	return decommitRaw(addr, size)
}

func (unixBackend) Protect(addr uintptr, size uint64, prot Prot) error {
	return protectRaw(addr, size, prot)
}

func (unixBackend) Unmap(addr uintptr, size uint64) error {
	return unmapRaw(addr, size)
}

func (unixBackend) DestroyShared(h SharedHandle) error {
	return unix.Close(int(h))
}

func (unixBackend) MapShared(h SharedHandle, offset int64, addr uintptr, size uint64, prot Prot) (uintptr, error) {
	flags := unix.MAP_SHARED
	if addr != 0 {
		flags |= unix.MAP_FIXED
	}
	return mmapRaw(addr, size, prot, flags, int(h), offset)
}

func (unixBackend) UnmapView(addr uintptr, size uint64) error {
	// No hole is created: the range is remapped as an inaccessible
	// private anonymous mapping so the reservation survives while the
	// shared pages become unreachable.
	_, err := mmapRaw(addr, size, ProtNone, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED, -1, 0)
	return err
}
