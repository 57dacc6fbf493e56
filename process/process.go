package process

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/halvaren/guestvm/config"
	"github.com/halvaren/guestvm/emulator"
	"github.com/halvaren/guestvm/gpu"
	"github.com/halvaren/guestvm/memory"
)

type Option func(*Context)

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) { c.log = l }
}

// Context binds one emulated process to an address space, a CPU execution
// engine and a GPU context. It holds a shared claim on the address space,
// not exclusive ownership: the GPU context references it too.
type Context struct {
	pid uint64
	log *zap.Logger

	addressSpace memory.AddressSpace
	cpu          emulator.Context
	gpu          gpu.Context

	closeOnce sync.Once
	releases  []func() error
}

func NewContext(pid uint64, addressSpace memory.AddressSpace, engine emulator.Engine, gpuCtx gpu.Context, is64Bit bool, opts ...Option) (*Context, error) {
	c := &Context{
		pid:          pid,
		addressSpace: addressSpace,
		gpu:          gpuCtx,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if rc, ok := addressSpace.(memory.ReferenceCounted); ok {
		rc.IncrementReferenceCount()
		c.releases = append(c.releases, func() error {
			rc.DecrementReferenceCount()
			return nil
		})
	}
	gpuCtx.RegisterProcess(pid, addressSpace)
	c.releases = append(c.releases, func() error {
		gpuCtx.UnregisterProcess(pid)
		return nil
	})
	cpu, err := engine.CreateExecutionEngine(addressSpace, is64Bit)
	if err != nil {
		c.release()
		return nil, err
	}
	c.cpu = cpu
	c.releases = append(c.releases, cpu.Close)
	c.log.Info("process context created", zap.Uint64("pid", pid), zap.Bool("is64", is64Bit))
	return c, nil
}

func (c *Context) PID() uint64 {
	return c.pid
}

func (c *Context) AddressSpace() memory.AddressSpace {
	return c.addressSpace
}

// Close disposes the context exactly once: the execution engine goes
// down, the pid is unregistered from the GPU context and the shared
// claim on the address space is released, in that order.
func (c *Context) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.release()
		c.addressSpace = nil
		c.log.Info("process context disposed", zap.Uint64("pid", c.pid))
	})
	return err
}

func (c *Context) release() error {
	var err error
	for i := len(c.releases) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.releases[i]())
	}
	c.releases = nil
	return err
}

// Params keys a disk cache load and locates the guest code region.
type Params struct {
	TitleID          string
	DisplayVersion   string
	DiskCacheEnabled bool
	CodeAddress      uint64
	CodeSize         uint64
}

func ParamsFromConfig(cfg *config.Config, titleID, displayVersion string, codeAddr, codeSize uint64) Params {
	return Params{
		TitleID:          titleID,
		DisplayVersion:   displayVersion,
		DiskCacheEnabled: cfg.Cache.Enabled,
		CodeAddress:      codeAddr,
		CodeSize:         codeSize,
	}
}

// Initialize prepares the code region for occupancy and starts the disk
// cache load keyed by title identity and version. The returned handle is
// polled or awaited independently of guest execution starting.
func (c *Context) Initialize(ctx context.Context, p Params) (*CacheLoad, error) {
	if err := c.cpu.PrepareCodeRange(p.CodeAddress, p.CodeSize); err != nil {
		return nil, err
	}
	load := newCacheLoad(ctx)
	go load.run(c.cpu, p)
	c.log.Info("disk cache load started",
		zap.String("title", p.TitleID),
		zap.String("version", p.DisplayVersion),
		zap.Bool("enabled", p.DiskCacheEnabled))
	return load, nil
}

func (c *Context) CreateExecutionContext(callbacks emulator.ExceptionCallbacks) (emulator.ExecutionContext, error) {
	return c.cpu.CreateExecutionContext(callbacks)
}

// Execute runs guest code from entry on the calling thread and does not
// return until the guest halts, faults, or the execution context is
// interrupted out of band. There is no implicit timeout.
func (c *Context) Execute(ec emulator.ExecutionContext, entry uint64) error {
	return c.cpu.Execute(ec, entry)
}

func (c *Context) InvalidateCacheRegion(addr, size uint64) {
	c.cpu.InvalidateCacheRegion(addr, size)
}

func (c *Context) PatchCodeForNce(textAddr, textSize, patchAddr, patchSize uint64) error {
	return c.cpu.PatchCodeForNce(textAddr, textSize, patchAddr, patchSize)
}
