//go:build linux

package host

import "golang.org/x/sys/unix"

const (
	releaseAdvice = unix.MADV_DONTNEED
	jitMapFlags   = unix.MAP_PRIVATE | unix.MAP_ANON
)

type backend struct {
	unixBackend
}

func newBackend() Backend {
	return backend{}
}

func (backend) Alloc(size uint64, forJit bool) (uintptr, error) {
	prot := ProtReadWrite
	if forJit {
		prot = ProtReadWriteExec
	}
	return mmapRaw(0, size, prot, unix.MAP_PRIVATE|unix.MAP_ANON, -1, 0)
}

func (backend) Reserve(size uint64, forJit bool) (uintptr, error) {
	return mmapRaw(0, size, ProtNone, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE, -1, 0)
}

func (backend) Commit(addr uintptr, size uint64, forJit bool) error {
	prot := ProtReadWrite
	if forJit {
		prot = ProtReadWriteExec
	}
	return protectRaw(addr, size, prot)
}

func (backend) CreateShared(size uint64, reserveOnly bool) (SharedHandle, error) {
	// memfd never appears in a filesystem namespace; commit charge is
	// lazy, so reserveOnly needs no special handling here.
	fd, err := unix.MemfdCreate("guestvm-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return 0, err
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return 0, err
	}
	return SharedHandle(fd), nil
}
