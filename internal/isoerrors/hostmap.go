//go:build linux

package isoerrors

import (
	"errors"
	"io/fs"
	"syscall"
)

// FromHostError maps a host OS error encountered while servicing a file
// or directory operation to an ISO 11783-13 Annex B.9 code, per spec
// §4.8. The source's change-current-dir handler was observed to fall
// through several errno cases to OTHER for lack of explicit breaks;
// §9's Open Questions says to prefer the full per-errno mapping instead,
// which is what this function does.
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

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return CodeAccessDenied
		case syscall.ENOENT, syscall.ENOTDIR:
			return CodeFileOrPathNotFound
		case syscall.EMFILE, syscall.ENFILE:
			return CodeTooManyFilesOpen
		case syscall.ENOMEM:
			return CodeOutOfMemory
		case syscall.ENOSPC:
			return CodeNoSpace
		case syscall.EROFS:
			return CodeWriteFailure
		case syscall.ENODEV, syscall.ENXIO:
			return CodeNoMedia
		case syscall.EIO:
			return CodeReadFailure
		case syscall.ENAMETOOLONG:
			return CodeInvalidLength
		case syscall.EINVAL:
			return CodeInvalidAccess
		case syscall.ENOTEMPTY, syscall.EEXIST:
			return CodeInvalidDestName
		default:
			return CodeOther
		}
	}
	return CodeOther
}
