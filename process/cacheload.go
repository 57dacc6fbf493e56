package process

import (
	"context"
	"errors"

	"go.uber.org/atomic"

	"github.com/halvaren/guestvm/emulator"
)

type CacheState int32

const (
	CacheStateNotLoaded CacheState = iota
	CacheStateLoading
	CacheStateLoaded
	CacheStateFailed
)

func (s CacheState) String() string {
	switch s {
	case CacheStateNotLoaded:
		return "not loaded"
	case CacheStateLoading:
		return "loading"
	case CacheStateLoaded:
		return "loaded"
	case CacheStateFailed:
		return "failed"
	}
	return "unknown"
}

var errCacheLoaded = errors.New("cache loaded")

// CacheLoad tracks one disk cache load. It moves NotLoaded -> Loading and
// settles in Loaded or Failed; Done is closed either way.
type CacheLoad struct {
	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newCacheLoad(ctx context.Context) *CacheLoad {
	l := new(CacheLoad)
	l.ctx, l.cancel = context.WithCancelCause(ctx)
	return l
}

func (l *CacheLoad) run(cpu emulator.Context, p Params) {
	l.state.Store(int32(CacheStateLoading))
	if err := cpu.LoadDiskCache(l.ctx, p.TitleID, p.DisplayVersion, p.DiskCacheEnabled); err != nil {
		l.state.Store(int32(CacheStateFailed))
		l.cancel(err)
		return
	}
	l.state.Store(int32(CacheStateLoaded))
	l.cancel(errCacheLoaded)
}

func (l *CacheLoad) State() CacheState {
	return CacheState(l.state.Load())
}

func (l *CacheLoad) Done() <-chan struct{} {
	return l.ctx.Done()
}

func (l *CacheLoad) Err() error {
	err := context.Cause(l.ctx)
	if errors.Is(err, errCacheLoaded) {
		return nil
	}
	return err
}
