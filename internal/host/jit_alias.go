//go:build ios

package host

import (
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

func mapAliasObject(h SharedHandle, offset int64, addr uintptr, size uint64, prot Prot) (uintptr, error) {
	flags := unix.MAP_SHARED
	if addr != 0 {
		flags |= unix.MAP_FIXED
	}
	return mmapRaw(addr, size, prot, flags, int(h), offset)
}

// AllocateJit satisfies write-and-execute requests under write-xor-execute
// enforcement: the physical pages are allocated once and aliased twice,
// a read-write mapping for the compiler and a read-execute mapping for
// guest dispatch.
func (b backend) AllocateJit(size uint64) (JitRegion, error) {
	h, err := b.CreateShared(size, false)
	if err != nil {
		return JitRegion{}, err
	}
	w, err := mapAliasObject(h, 0, 0, size, ProtReadWrite)
	if err != nil {
		b.DestroyShared(h)
		return JitRegion{}, err
	}
	x, err := mapAliasObject(h, 0, 0, size, ProtReadExec)
	if err != nil {
		unmapRaw(w, size)
		b.DestroyShared(h)
		return JitRegion{}, err
	}
	return JitRegion{Write: w, Exec: x, Size: size, backing: h}, nil
}

func (b backend) FreeJit(r JitRegion) error {
	err := unmapRaw(r.Write, r.Size)
	err = multierr.Append(err, unmapRaw(r.Exec, r.Size))
	return multierr.Append(err, b.DestroyShared(r.backing))
}
