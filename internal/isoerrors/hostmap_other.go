//go:build !linux

package isoerrors

import (
	"errors"
	"io/fs"
)

// FromHostError is the portable fallback used on platforms without the
// full syscall.Errno table this core targets (production deployment is
// Linux/SocketCAN only, per spec §1's out-of-scope transport).
func FromHostError(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if errors.Is(err, fs.ErrNotExist) {
		return CodeFileOrPathNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return CodeAccessDenied
	}
	return CodeOther
}
