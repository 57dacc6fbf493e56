package emulator

import "io"

// ExecutionContext is the per-guest-thread execution state. Execute
// blocks the calling thread; stopping a running context happens out of
// band through RequestInterrupt.
type ExecutionContext interface {
	io.Closer
	RequestInterrupt()
}

// ExceptionCallbacks wires caller-supplied fault hooks into an execution
// context. Nil members leave the corresponding exception unhandled.
type ExceptionCallbacks struct {
	Interrupt      func(ec ExecutionContext)
	Break          func(ec ExecutionContext, addr uint64, imm int)
	SupervisorCall func(ec ExecutionContext, svc int)
	Undefined      func(ec ExecutionContext, addr uint64, opcode uint32)
}
