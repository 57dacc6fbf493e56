package emulator

import "errors"

var (
	ErrAddressSpaceUnsupported = errors.New("address space unsupported")
	ErrExecutionStopped        = errors.New("execution stopped")
	ErrCodeRangeInvalid        = errors.New("code range invalid")
)
