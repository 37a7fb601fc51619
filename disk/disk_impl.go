package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-newfs/util"
)

var _ Disk = (*FileDisk)(nil)

// FileDisk is a Disk backed by an image file or a block device.
type FileDisk struct {
	fd       int
	path     string
	unit     uint64
	numUnits uint64
}

// NewFileDisk opens (creating if needed) an image file sized to numUnits units
// of unit bytes each.
func NewFileDisk(path string, unit uint64, numUnits uint64) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && uint64(stat.Size) != numUnits*unit {
		if err := unix.Ftruncate(fd, int64(numUnits*unit)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("sizing %s: %w", path, err)
		}
	}
	return &FileDisk{fd: fd, path: path, unit: unit, numUnits: numUnits}, nil
}

// Open opens an existing image file or block device and probes its geometry.
// Block devices report their sector and total size via ioctl; regular files
// use DefaultUnitSize and their current length.
func Open(path string) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	var unit, size uint64
	switch stat.Mode & unix.S_IFMT {
	case unix.S_IFBLK:
		unit, size, err = queryGeometry(fd)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("querying %s: %w", path, err)
		}
	case unix.S_IFREG:
		unit, size = DefaultUnitSize, uint64(stat.Size)
	default:
		unix.Close(fd)
		return nil, fmt.Errorf("%s: not a regular file or block device", path)
	}
	util.DPrintf(1, "Open: %s unit %d size %d\n", path, unit, size)
	return &FileDisk{fd: fd, path: path, unit: unit, numUnits: size / unit}, nil
}

func (d *FileDisk) ReadTo(a uint64, buf Block) error {
	if err := checkAccess(a, d.numUnits, buf, d.unit); err != nil {
		return err
	}
	n, err := unix.Pread(d.fd, buf, int64(a*d.unit))
	if err != nil {
		return fmt.Errorf("reading %s at unit %d: %w", d.path, a, err)
	}
	if uint64(n) != d.unit {
		return fmt.Errorf("reading %s at unit %d: short read (%d bytes)", d.path, a, n)
	}
	util.DPrintf(20, "read: %v\n", a)
	return nil
}

func (d *FileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, d.unit)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *FileDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, d.numUnits, v, d.unit); err != nil {
		return err
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*d.unit))
	if err != nil {
		return fmt.Errorf("writing %s at unit %d: %w", d.path, a, err)
	}
	if uint64(n) != d.unit {
		return fmt.Errorf("writing %s at unit %d: short write (%d bytes)", d.path, a, n)
	}
	util.DPrintf(20, "write: %v\n", a)
	return nil
}

func (d *FileDisk) Size() (uint64, error) {
	return d.numUnits, nil
}

func (d *FileDisk) UnitSize() uint64 {
	return d.unit
}

func (d *FileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("syncing %s: %w", d.path, err)
	}
	util.DPrintf(10, "barrier\n")
	return nil
}

func (d *FileDisk) Close() error {
	if err := unix.Close(d.fd); err != nil {
		return fmt.Errorf("closing %s: %w", d.path, err)
	}
	return nil
}

/////////////////////////

var _ Disk = (*MemDisk)(nil)

// MemDisk is a Disk held entirely in memory.
type MemDisk struct {
	l      *sync.RWMutex
	unit   uint64
	blocks [][]byte
}

func NewMemDisk(unit uint64, numUnits uint64) *MemDisk {
	blocks := make([][]byte, numUnits)
	for i := range blocks {
		blocks[i] = make([]byte, unit)
	}
	return &MemDisk{l: new(sync.RWMutex), unit: unit, blocks: blocks}
}

func (d *MemDisk) ReadTo(a uint64, buf Block) error {
	d.l.RLock()
	defer d.l.RUnlock()
	if err := checkAccess(a, uint64(len(d.blocks)), buf, d.unit); err != nil {
		return err
	}
	copy(buf, d.blocks[a])
	return nil
}

func (d *MemDisk) Read(a uint64) (Block, error) {
	buf := make(Block, d.unit)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *MemDisk) Write(a uint64, v Block) error {
	d.l.Lock()
	defer d.l.Unlock()
	if err := checkAccess(a, uint64(len(d.blocks)), v, d.unit); err != nil {
		return err
	}
	copy(d.blocks[a], v)
	return nil
}

func (d *MemDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d *MemDisk) UnitSize() uint64 { return d.unit }

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error { return nil }
