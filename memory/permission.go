package memory

import "github.com/halvaren/guestvm/internal/host"

// Permission is the abstract page permission requested by guest-facing
// callers; each backend maps it to native protection flags.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionRead
	PermissionReadWrite
	PermissionReadExecute
	PermissionReadWriteExecute
	PermissionExecute
)

func (p Permission) String() string {
	switch p {
	case PermissionNone:
		return "none"
	case PermissionRead:
		return "r--"
	case PermissionReadWrite:
		return "rw-"
	case PermissionReadExecute:
		return "r-x"
	case PermissionReadWriteExecute:
		return "rwx"
	case PermissionExecute:
		return "--x"
	}
	return "unknown"
}

func (p Permission) prot() host.Prot {
	switch p {
	case PermissionRead:
		return host.ProtRead
	case PermissionReadWrite:
		return host.ProtReadWrite
	case PermissionReadExecute:
		return host.ProtReadExec
	case PermissionReadWriteExecute:
		return host.ProtReadWriteExec
	case PermissionExecute:
		return host.ProtExec
	}
	return host.ProtNone
}
