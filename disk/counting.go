package disk

import (
	"errors"
	"sync"
)

// ErrInjected is returned by a CountingDisk once its fault trigger fires.
var ErrInjected = errors.New("injected disk failure")

var _ Disk = (*CountingDisk)(nil)

// CountingDisk wraps a Disk, counting unit reads and writes. Setting
// FailReads/FailWrites makes every later read/write fail with ErrInjected.
type CountingDisk struct {
	Disk

	mu         sync.Mutex
	reads      uint64
	writes     uint64
	FailReads  bool
	FailWrites bool
}

func MkCountingDisk(d Disk) *CountingDisk {
	return &CountingDisk{Disk: d}
}

func (d *CountingDisk) ReadTo(a uint64, b Block) error {
	d.mu.Lock()
	d.reads++
	fail := d.FailReads
	d.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return d.Disk.ReadTo(a, b)
}

func (d *CountingDisk) Read(a uint64) (Block, error) {
	b := make(Block, d.UnitSize())
	err := d.ReadTo(a, b)
	return b, err
}

func (d *CountingDisk) Write(a uint64, v Block) error {
	d.mu.Lock()
	d.writes++
	fail := d.FailWrites
	d.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return d.Disk.Write(a, v)
}

// Counts returns the number of unit reads and writes issued so far.
func (d *CountingDisk) Counts() (uint64, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads, d.writes
}

func (d *CountingDisk) Reset() {
	d.mu.Lock()
	d.reads, d.writes = 0, 0
	d.mu.Unlock()
}
