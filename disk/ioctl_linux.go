package disk

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// queryGeometry asks a block device for its logical sector size and total
// size in bytes.
func queryGeometry(fd int) (uint64, uint64, error) {
	unit, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		return 0, 0, err
	}
	size, err := blockDevSize(fd)
	if err != nil {
		return 0, 0, err
	}
	return uint64(unit), size, nil
}

// blockDevSize reads BLKGETSIZE64, which the kernel fills as a u64 on every
// word size.
func blockDevSize(fd int) (uint64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		uintptr(unix.BLKGETSIZE64), uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return size, nil
}
