//go:build ios

package host

import "golang.org/x/sys/unix"

const releaseAdvice = unix.MADV_FREE_REUSABLE

type backend struct {
	unixBackend
}

func newBackend() Backend {
	return backend{}
}

func (backend) Alloc(size uint64, forJit bool) (uintptr, error) {
	addr, err := mmapRaw(0, size, ProtReadWrite, unix.MAP_PRIVATE|unix.MAP_ANON, -1, 0)
	if err != nil {
		return 0, err
	}
	// Freshly mapped anonymous pages must be re-established with private
	// ownership before first use.
	if _, err := mmapRaw(addr, size, ProtReadWrite, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED, -1, 0); err != nil {
		unmapRaw(addr, size)
		return 0, err
	}
	return addr, nil
}

func (backend) Reserve(size uint64, forJit bool) (uintptr, error) {
	return mmapRaw(0, size, ProtNone, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE, -1, 0)
}

func (backend) Commit(addr uintptr, size uint64, forJit bool) error {
	// Write-xor-execute: committed pages are never writable and
	// executable at once. JIT callers write through the RW alias of an
	// aliased region instead.
	return protectRaw(addr, size, ProtReadWrite)
}

func (backend) CreateShared(size uint64, reserveOnly bool) (SharedHandle, error) {
	return createSharedUnlink(size)
}

// MapShared routes through the same object-backed mapping used for code
// aliases; the kernel here forbids fixed remapping of anonymous pages.
func (backend) MapShared(h SharedHandle, offset int64, addr uintptr, size uint64, prot Prot) (uintptr, error) {
	return mapAliasObject(h, offset, addr, size, prot)
}
