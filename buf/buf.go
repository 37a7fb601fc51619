// Package buf moves byte-granular objects in and out of a unit-addressed device.
package buf

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/addr"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/disk"
	"github.com/mit-pdos/go-newfs/util"
)

// A Buf is a block-aligned window of the device, loaded so that a caller's
// unaligned range can be spliced in or out.
type Buf struct {
	Off  uint64 // absolute byte offset of the window, block aligned
	Blk  []byte // whole blocks
	bias uint64 // start of the caller's range within Blk
	sz   uint64 // length of the caller's range
}

// Data is the caller's range within the window.
func (b *Buf) Data() []byte {
	return b.Blk[b.bias : b.bias+b.sz]
}

// Install copies data into the caller's range of the window.
func (b *Buf) Install(data []byte) {
	if uint64(len(data)) != b.sz {
		panic("Install: size mismatch")
	}
	copy(b.Blk[b.bias:], data)
}

// Dev performs aligned transfers against d using blocks of blkSz bytes.
// blkSz must be a multiple of the device unit.
type Dev struct {
	d     disk.Disk
	unit  uint64
	blkSz uint64
	size  uint64 // device size in bytes
}

func MkDev(d disk.Disk, blkSz uint64) (*Dev, error) {
	unit := d.UnitSize()
	if unit == 0 || blkSz%unit != 0 {
		return nil, fmt.Errorf("block size %d is not a multiple of unit %d: %w",
			blkSz, unit, common.ErrInvalid)
	}
	size, err := disk.SizeBytes(d)
	if err != nil {
		return nil, fmt.Errorf("%w: querying device size: %w", common.ErrIO, err)
	}
	return &Dev{d: d, unit: unit, blkSz: blkSz, size: size}, nil
}

// window computes the block-aligned window covering [off, off+sz).
func (dev *Dev) window(off uint64, sz uint64) (*Buf, error) {
	if util.SumOverflows(off, sz) {
		return nil, fmt.Errorf("range %d+%d overflows: %w", off, sz, common.ErrInvalid)
	}
	start := util.AlignDown(off, dev.blkSz)
	end := util.AlignUp(off+sz, dev.blkSz)
	if end > dev.size {
		return nil, fmt.Errorf("range [%d, %d) past device end %d: %w",
			off, off+sz, dev.size, common.ErrInvalid)
	}
	return &Buf{Off: start, Blk: make([]byte, end-start), bias: off - start, sz: sz}, nil
}

func (dev *Dev) readWindow(b *Buf) error {
	for pos := uint64(0); pos < uint64(len(b.Blk)); pos += dev.unit {
		a := (b.Off + pos) / dev.unit
		if err := dev.d.ReadTo(a, b.Blk[pos:pos+dev.unit]); err != nil {
			return fmt.Errorf("%w: read unit %d: %w", common.ErrIO, a, err)
		}
	}
	return nil
}

func (dev *Dev) writeWindow(b *Buf) error {
	for pos := uint64(0); pos < uint64(len(b.Blk)); pos += dev.unit {
		a := (b.Off + pos) / dev.unit
		if err := dev.d.Write(a, b.Blk[pos:pos+dev.unit]); err != nil {
			return fmt.Errorf("%w: write unit %d: %w", common.ErrIO, a, err)
		}
	}
	return nil
}

// ReadAt reads sz bytes starting at byte offset off.
func (dev *Dev) ReadAt(off uint64, sz uint64) ([]byte, error) {
	b, err := dev.window(off, sz)
	if err != nil {
		return nil, err
	}
	if err := dev.readWindow(b); err != nil {
		return nil, err
	}
	util.DPrintf(15, "ReadAt: off %d sz %d window %d+%d\n", off, sz, b.Off, len(b.Blk))
	return b.Data(), nil
}

// WriteAt writes data at byte offset off, reading the surrounding blocks
// first so bytes outside [off, off+len(data)) are preserved.
func (dev *Dev) WriteAt(off uint64, data []byte) error {
	b, err := dev.window(off, uint64(len(data)))
	if err != nil {
		return err
	}
	if err := dev.readWindow(b); err != nil {
		return err
	}
	b.Install(data)
	util.DPrintf(15, "WriteAt: off %d sz %d window %d+%d\n", off, len(data), b.Off, len(b.Blk))
	return dev.writeWindow(b)
}

// Load reads an sz-byte object at a.
func (dev *Dev) Load(a addr.Addr, sz uint64) ([]byte, error) {
	return dev.ReadAt(a.Flatid(dev.blkSz), sz)
}

// Install writes an object at a.
func (dev *Dev) Install(a addr.Addr, data []byte) error {
	return dev.WriteAt(a.Flatid(dev.blkSz), data)
}

func (dev *Dev) Barrier() error {
	if err := dev.d.Barrier(); err != nil {
		return fmt.Errorf("%w: barrier: %w", common.ErrIO, err)
	}
	return nil
}
