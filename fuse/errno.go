package fuse

import (
	"errors"
	"syscall"

	"github.com/mit-pdos/go-newfs/common"
)

var errnos = []struct {
	err   error
	errno syscall.Errno
}{
	{common.ErrIO, syscall.EIO},
	{common.ErrNoSpace, syscall.ENOSPC},
	{common.ErrNotFound, syscall.ENOENT},
	{common.ErrNotDir, syscall.ENOTDIR},
	{common.ErrIsDir, syscall.EISDIR},
	{common.ErrInvalid, syscall.EINVAL},
	{common.ErrExists, syscall.EEXIST},
	{common.ErrNotEmpty, syscall.ENOTEMPTY},
	{common.ErrFileTooBig, syscall.EFBIG},
	{common.ErrNameTooLong, syscall.ENAMETOOLONG},
}

// toErrno maps a volume error onto the errno the kernel reports. Errors
// from outside the volume become EIO.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	for _, e := range errnos {
		if errors.Is(err, e.err) {
			return e.errno
		}
	}
	return syscall.EIO
}
