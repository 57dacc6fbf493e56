package emulator

import (
	"context"
	"io"

	"github.com/halvaren/guestvm/memory"
)

// Engine builds execution engines bound to a guest address space.
type Engine interface {
	CreateExecutionEngine(addressSpace memory.AddressSpace, is64Bit bool) (Context, error)
}

// Context is a per-process CPU execution engine. Translated-code cache
// coherency is the caller's duty: any write to guest memory backing
// previously translated code must be followed by InvalidateCacheRegion,
// which is idempotent over already invalidated ranges.
type Context interface {
	io.Closer
	CreateExecutionContext(callbacks ExceptionCallbacks) (ExecutionContext, error)
	Execute(ec ExecutionContext, entry uint64) error
	PrepareCodeRange(addr, size uint64) error
	LoadDiskCache(ctx context.Context, titleID, displayVersion string, enabled bool) error
	InvalidateCacheRegion(addr, size uint64)
	PatchCodeForNce(textAddr, textSize, patchAddr, patchSize uint64) error
}
