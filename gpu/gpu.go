package gpu

import "github.com/halvaren/guestvm/memory"

// Context is the GPU side of a process registration. Register and
// Unregister for a given pid are never invoked concurrently; the process
// context performs each exactly once, at construction and at disposal.
type Context interface {
	RegisterProcess(pid uint64, addressSpace memory.AddressSpace)
	UnregisterProcess(pid uint64)
}
