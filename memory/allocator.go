package memory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/halvaren/guestvm/internal/host"
)

type options struct {
	backend host.Backend
	log     *zap.Logger
}

type Option func(*options)

func WithBackend(b host.Backend) Option {
	return func(o *options) { o.backend = b }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = host.Default()
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// Allocator tracks live allocations over the platform backend. The
// tracking table is safe for concurrent mutation; protection changes
// carry no locking against concurrent access to the affected range, that
// discipline belongs to the caller.
type Allocator struct {
	backend host.Backend
	log     *zap.Logger

	mu          sync.Mutex
	allocations map[uintptr]uint64
}

func New(opts ...Option) *Allocator {
	o := newOptions(opts)
	return &Allocator{
		backend:     o.backend,
		log:         o.log,
		allocations: make(map[uintptr]uint64),
	}
}

var (
	defaultOnce      sync.Once
	defaultAllocator *Allocator
)

// Default returns the process-scoped allocator. All address spaces in the
// process share its tracking table; it lives until process teardown.
func Default() *Allocator {
	defaultOnce.Do(func() {
		defaultAllocator = New()
	})
	return defaultAllocator
}

func (a *Allocator) PageSize() uint64 {
	return a.backend.PageSize()
}

// Allocate reserves and commits size bytes. OS failure is fatal and
// carries the OS error; the result is always a fresh, tracked address.
func (a *Allocator) Allocate(size uint64, forJit bool) (uintptr, error) {
	if size == 0 {
		return 0, ErrSizeInvalid
	}
	size = Align(size, a.backend.PageSize())
	addr, err := a.backend.Alloc(size, forJit)
	if err != nil {
		a.log.Error("allocate failed", zap.Uint64("size", size), zap.Error(err))
		return 0, fmt.Errorf("memory: allocate %#x bytes: %w", size, err)
	}
	a.track(addr, size)
	a.log.Debug("allocate", zap.Uintptr("addr", addr), zap.Uint64("size", size), zap.Bool("jit", forJit))
	return addr, nil
}

// Reserve claims size bytes of address space with no access rights and no
// commit charge; pages are committed later with Commit.
func (a *Allocator) Reserve(size uint64, forJit bool) (uintptr, error) {
	if size == 0 {
		return 0, ErrSizeInvalid
	}
	size = Align(size, a.backend.PageSize())
	addr, err := a.backend.Reserve(size, forJit)
	if err != nil {
		a.log.Error("reserve failed", zap.Uint64("size", size), zap.Error(err))
		return 0, fmt.Errorf("memory: reserve %#x bytes: %w", size, err)
	}
	a.track(addr, size)
	a.log.Debug("reserve", zap.Uintptr("addr", addr), zap.Uint64("size", size), zap.Bool("jit", forJit))
	return addr, nil
}

func (a *Allocator) reserveUntracked(size uint64) (uintptr, error) {
	addr, err := a.backend.Reserve(Align(size, a.backend.PageSize()), false)
	if err != nil {
		return 0, fmt.Errorf("memory: reserve %#x bytes: %w", size, err)
	}
	return addr, nil
}

// Commit grants read-write access to a reserved range. Execute is added
// only for JIT commits on platforms that run fresh code in place.
func (a *Allocator) Commit(addr uintptr, size uint64, forJit bool) error {
	if err := a.backend.Commit(addr, Align(size, a.backend.PageSize()), forJit); err != nil {
		a.log.Error("commit failed", zap.Uintptr("addr", addr), zap.Uint64("size", size), zap.Error(err))
		return fmt.Errorf("memory: commit %#x+%#x: %w", addr, size, err)
	}
	return nil
}

// Decommit returns physical pages to the OS while keeping the range
// reserved and inaccessible. Recommitting yields zero-filled pages.
func (a *Allocator) Decommit(addr uintptr, size uint64) error {
	if err := a.backend.Decommit(addr, Align(size, a.backend.PageSize())); err != nil {
		a.log.Error("decommit failed", zap.Uintptr("addr", addr), zap.Uint64("size", size), zap.Error(err))
		return fmt.Errorf("memory: decommit %#x+%#x: %w", addr, size, err)
	}
	return nil
}

// Reprotect is the sole soft-failing protection operation: callers probe
// speculatively, so an unmapped range reports false instead of an error.
func (a *Allocator) Reprotect(addr uintptr, size uint64, perm Permission) bool {
	err := a.backend.Protect(addr, Align(size, a.backend.PageSize()), perm.prot())
	if err != nil {
		a.log.Debug("reprotect refused", zap.Uintptr("addr", addr), zap.Stringer("perm", perm), zap.Error(err))
		return false
	}
	return true
}

// Free unmaps a tracked allocation. An unknown address reports false, so
// idempotent-free callers can treat a double free as a no-op.
func (a *Allocator) Free(addr uintptr) bool {
	size, ok := a.untrack(addr)
	if !ok {
		return false
	}
	if err := a.backend.Unmap(addr, size); err != nil {
		a.log.Error("unmap failed", zap.Uintptr("addr", addr), zap.Uint64("size", size), zap.Error(err))
		return false
	}
	a.log.Debug("free", zap.Uintptr("addr", addr), zap.Uint64("size", size))
	return true
}

// Unmap releases a raw range whose lifetime the caller manages itself; it
// bypasses the tracking table.
func (a *Allocator) Unmap(addr uintptr, size uint64) bool {
	return a.backend.Unmap(addr, Align(size, a.backend.PageSize())) == nil
}

func (a *Allocator) track(addr uintptr, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.allocations[addr]; ok {
		// The kernel must never hand out an address this process
		// already maps.
		panic(fmt.Sprintf("memory: address %#x already tracked with %#x bytes", addr, prev))
	}
	a.allocations[addr] = size
}

func (a *Allocator) untrack(addr uintptr) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	size, ok := a.allocations[addr]
	if ok {
		delete(a.allocations, addr)
	}
	return size, ok
}
