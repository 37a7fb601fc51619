package fuse

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/disk"
)

func TestToErrno(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(syscall.Errno(0), toErrno(nil))
	for _, e := range errnos {
		wrapped := fmt.Errorf("op %q: %w", "/x", e.err)
		assert.Equal(e.errno, toErrno(wrapped), e.err.Error())
	}
	assert.Equal(syscall.EIO, toErrno(errors.New("something else")))
	dev := fmt.Errorf("%w: read unit 3: %w", common.ErrIO, disk.ErrInjected)
	assert.Equal(syscall.EIO, toErrno(dev))
}
