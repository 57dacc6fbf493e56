//go:build windows

package host

import (
	"os"

	"golang.org/x/sys/windows"
)

const (
	secCommit  = 0x8000000
	secReserve = 0x4000000
)

var (
	kernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procMapViewOfFileEx = kernel32.NewProc("MapViewOfFileEx")
)

func (p Prot) native() uint32 {
	switch {
	case p&ProtWrite != 0 && p&ProtExec != 0:
		return windows.PAGE_EXECUTE_READWRITE
	case p&ProtExec != 0:
		return windows.PAGE_EXECUTE_READ
	case p&ProtWrite != 0:
		return windows.PAGE_READWRITE
	case p&ProtRead != 0:
		return windows.PAGE_READONLY
	}
	return windows.PAGE_NOACCESS
}

func (p Prot) mapAccess() uint32 {
	access := uint32(windows.FILE_MAP_READ)
	if p&ProtWrite != 0 {
		access |= windows.FILE_MAP_WRITE
	}
	if p&ProtExec != 0 {
		access |= windows.FILE_MAP_EXECUTE
	}
	return access
}

type backend struct{}

func newBackend() Backend {
	return backend{}
}

func (backend) PageSize() uint64 {
	return uint64(os.Getpagesize())
}

func (backend) Alloc(size uint64, forJit bool) (uintptr, error) {
	prot := ProtReadWrite
	if forJit {
		prot = ProtReadWriteExec
	}
	return windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, prot.native())
}

func (backend) Reserve(size uint64, forJit bool) (uintptr, error) {
	return windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
}

func (backend) Commit(addr uintptr, size uint64, forJit bool) error {
	prot := ProtReadWrite
	if forJit {
		prot = ProtReadWriteExec
	}
	_, err := windows.VirtualAlloc(addr, uintptr(size), windows.MEM_COMMIT, prot.native())
	return err
}

func (backend) Decommit(addr uintptr, size uint64) error {
	return windows.VirtualFree(addr, uintptr(size), windows.MEM_DECOMMIT)
}

func (backend) Protect(addr uintptr, size uint64, prot Prot) error {
	var old uint32
	return windows.VirtualProtect(addr, uintptr(size), prot.native(), &old)
}

func (backend) Unmap(addr uintptr, size uint64) error {
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func (b backend) AllocateJit(size uint64) (JitRegion, error) {
	addr, err := b.Alloc(size, true)
	if err != nil {
		return JitRegion{}, err
	}
	return JitRegion{Write: addr, Exec: addr, Size: size}, nil
}

func (b backend) FreeJit(r JitRegion) error {
	return b.Unmap(r.Write, r.Size)
}

func (backend) CreateShared(size uint64, reserveOnly bool) (SharedHandle, error) {
	prot := uint32(windows.PAGE_READWRITE | secCommit)
	if reserveOnly {
		prot = windows.PAGE_READWRITE | secReserve
	}
	// An unnamed pagefile-backed section: nothing to unlink.
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, prot, uint32(size>>32), uint32(size), nil)
	if err != nil {
		return 0, err
	}
	return SharedHandle(h), nil
}

func (backend) DestroyShared(h SharedHandle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (backend) MapShared(h SharedHandle, offset int64, addr uintptr, size uint64, prot Prot) (uintptr, error) {
	access := prot.mapAccess()
	offHigh := uint32(uint64(offset) >> 32)
	offLow := uint32(uint64(offset))
	if addr == 0 {
		return windows.MapViewOfFile(windows.Handle(h), access, offHigh, offLow, uintptr(size))
	}
	view, _, err := procMapViewOfFileEx.Call(uintptr(h), uintptr(access), uintptr(offHigh), uintptr(offLow), uintptr(size), addr)
	if view == 0 {
		return 0, err
	}
	return view, nil
}

func (backend) UnmapView(addr uintptr, size uint64) error {
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return err
	}
	// Re-reserve the range so nothing else can claim it while access to
	// the shared pages stays revoked.
	_, err := windows.VirtualAlloc(addr, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	return err
}
