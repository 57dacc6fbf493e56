//go:build !windows && !ios

package host

// AllocateJit returns a directly writable and executable mapping; both
// aliases are the same address on platforms without write-xor-execute
// enforcement.
func (backend) AllocateJit(size uint64) (JitRegion, error) {
	addr, err := mmapRaw(0, size, ProtReadWriteExec, jitMapFlags, -1, 0)
	if err != nil {
		return JitRegion{}, err
	}
	return JitRegion{Write: addr, Exec: addr, Size: size}, nil
}

func (backend) FreeJit(r JitRegion) error {
	return unmapRaw(r.Write, r.Size)
}
