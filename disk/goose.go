package disk

import (
	goosedisk "github.com/tchajed/goose/machine/disk"
)

var _ Disk = (*GooseDisk)(nil)

// GooseDisk adapts a goose disk, whose unit is goose's fixed 4096-byte block.
// The goose disks panic on bad addresses, so bounds are checked here first.
type GooseDisk struct {
	d goosedisk.Disk
}

func FromGoose(d goosedisk.Disk) *GooseDisk {
	return &GooseDisk{d: d}
}

func (d *GooseDisk) ReadTo(a uint64, buf Block) error {
	if err := checkAccess(a, d.d.Size(), buf, goosedisk.BlockSize); err != nil {
		return err
	}
	copy(buf, d.d.Read(a))
	return nil
}

func (d *GooseDisk) Read(a uint64) (Block, error) {
	buf := make(Block, goosedisk.BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *GooseDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, d.d.Size(), v, goosedisk.BlockSize); err != nil {
		return err
	}
	d.d.Write(a, v)
	return nil
}

func (d *GooseDisk) Size() (uint64, error) {
	return d.d.Size(), nil
}

func (d *GooseDisk) UnitSize() uint64 {
	return goosedisk.BlockSize
}

func (d *GooseDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d *GooseDisk) Close() error {
	d.d.Close()
	return nil
}
