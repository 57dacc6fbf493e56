package memory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/halvaren/guestvm/internal/host"
)

// JitRegion is a code buffer with distinct write and execute addresses.
// Compilers write through Write and guest dispatch runs through Exec; on
// platforms without write-xor-execute enforcement both are the same
// mapping.
type JitRegion struct {
	Write uintptr
	Exec  uintptr
	Size  uint64

	backing host.JitRegion
}

// AllocateJitRegion allocates writable-and-executable capable pages. The
// platform decides whether that means one direct mapping or two aliases
// of the same physical pages; callers stay unaware of the difference.
func (a *Allocator) AllocateJitRegion(size uint64) (JitRegion, error) {
	if size == 0 {
		return JitRegion{}, ErrSizeInvalid
	}
	size = Align(size, a.backend.PageSize())
	r, err := a.backend.AllocateJit(size)
	if err != nil {
		a.log.Error("jit allocate failed", zap.Uint64("size", size), zap.Error(err))
		return JitRegion{}, fmt.Errorf("memory: allocate jit region %#x bytes: %w", size, err)
	}
	a.track(r.Write, size)
	a.log.Debug("jit allocate", zap.Uintptr("write", r.Write), zap.Uintptr("exec", r.Exec), zap.Uint64("size", size))
	return JitRegion{Write: r.Write, Exec: r.Exec, Size: r.Size, backing: r}, nil
}

func (a *Allocator) FreeJitRegion(r JitRegion) bool {
	if _, ok := a.untrack(r.Write); !ok {
		return false
	}
	if err := a.backend.FreeJit(r.backing); err != nil {
		a.log.Error("jit free failed", zap.Uintptr("write", r.Write), zap.Error(err))
		return false
	}
	return true
}
