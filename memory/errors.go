package memory

import "errors"

var (
	ErrSizeInvalid      = errors.New("size invalid")
	ErrAddressUnknown   = errors.New("address unknown")
	ErrSegmentDestroyed = errors.New("segment destroyed")
)
