package memory

import "go.uber.org/atomic"

// RefCount is a shared-ownership counter. Releasing below zero is an
// ownership bug and panics; the backing resource of whatever it guards
// stays valid while the count is above zero.
type RefCount struct {
	n atomic.Int64
}

func (c *RefCount) Increment() int64 {
	return c.n.Inc()
}

func (c *RefCount) Decrement() int64 {
	n := c.n.Dec()
	if n < 0 {
		panic("memory: reference count underflow")
	}
	return n
}

func (c *RefCount) Count() int64 {
	return c.n.Load()
}
