// Package super computes and persists the volume layout:
//
//	[ super | inode bitmap | data bitmap | inode table | data region ]
//
// Every region starts on a block boundary. The inode table has one block per
// inode. Offsets are stored in bytes.
package super

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-newfs/addr"
	"github.com/mit-pdos/go-newfs/buf"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

const (
	SUPEROFF uint64 = 0
	SUPERSZ  uint64 = 8 * 11
)

type FsSuper struct {
	Magic uint64
	Usage uint64 // bytes held by regular files

	NInodeBitmap   uint64 // blocks
	InodeBitmapOff uint64
	NDataBitmap    uint64 // blocks
	DataBitmapOff  uint64
	InodeOff       uint64
	DataOff        uint64

	NInode uint64 // max inodes
	NData  uint64 // max data blocks
	BlkSz  uint64
	IoSz   uint64 // not persisted; probed at mount
}

// MkFsSuper lays out a fresh volume of devSz bytes on a device with ioSz
// units. Bitmaps get one block each; the inode table gets NINODE slots (fewer
// if the bitmap cannot index them) and the data region takes every remaining
// whole block the data bitmap can index.
func MkFsSuper(ioSz uint64, devSz uint64) (*FsSuper, error) {
	if ioSz < common.MINIOSZ {
		return nil, fmt.Errorf("i/o unit %d below minimum %d: %w",
			ioSz, common.MINIOSZ, common.ErrInvalid)
	}
	blkSz := 2 * ioSz
	nblk := devSz / blkSz

	fs := &FsSuper{
		Magic:        common.MAGIC,
		Usage:        0,
		NInodeBitmap: common.NINODEBITMAP,
		NDataBitmap:  common.NDATABITMAP,
		BlkSz:        blkSz,
		IoSz:         ioSz,
	}
	fs.NInode = util.Min(common.NINODE, fs.NInodeBitmap*blkSz*8)
	fs.InodeBitmapOff = SUPEROFF + common.NSUPER*blkSz
	fs.DataBitmapOff = fs.InodeBitmapOff + fs.NInodeBitmap*blkSz
	fs.InodeOff = fs.DataBitmapOff + fs.NDataBitmap*blkSz
	fs.DataOff = fs.InodeOff + fs.NInode*blkSz

	meta := fs.DataOff / blkSz
	if nblk < meta+common.NDIRECT {
		return nil, fmt.Errorf("device of %d blocks cannot hold %d metadata blocks "+
			"and a root directory: %w", nblk, meta, common.ErrNoSpace)
	}
	fs.NData = util.Min(nblk-meta, fs.NDataBitmap*blkSz*8)
	util.DPrintf(1, "MkFsSuper: blk %d inodes %d data %d (device %d blocks)\n",
		blkSz, fs.NInode, fs.NData, nblk)
	return fs, nil
}

func (fs *FsSuper) Encode() []byte {
	enc := marshal.NewEnc(SUPERSZ)
	enc.PutInt(fs.Magic)
	enc.PutInt(fs.Usage)
	enc.PutInt(fs.NInodeBitmap)
	enc.PutInt(fs.InodeBitmapOff)
	enc.PutInt(fs.NDataBitmap)
	enc.PutInt(fs.DataBitmapOff)
	enc.PutInt(fs.InodeOff)
	enc.PutInt(fs.DataOff)
	enc.PutInt(fs.NInode)
	enc.PutInt(fs.NData)
	enc.PutInt(fs.BlkSz)
	return enc.Finish()
}

func Decode(b []byte) *FsSuper {
	dec := marshal.NewDec(b)
	fs := &FsSuper{}
	fs.Magic = dec.GetInt()
	fs.Usage = dec.GetInt()
	fs.NInodeBitmap = dec.GetInt()
	fs.InodeBitmapOff = dec.GetInt()
	fs.NDataBitmap = dec.GetInt()
	fs.DataBitmapOff = dec.GetInt()
	fs.InodeOff = dec.GetInt()
	fs.DataOff = dec.GetInt()
	fs.NInode = dec.GetInt()
	fs.NData = dec.GetInt()
	fs.BlkSz = dec.GetInt()
	return fs
}

// Load reads the superblock through dev. If the magic number matches, the
// stored layout is returned as is; otherwise a fresh layout for a device of
// devSz bytes is computed and fresh is true. Nothing is written.
func Load(dev *buf.Dev, ioSz uint64, devSz uint64) (*FsSuper, bool, error) {
	b, err := dev.ReadAt(SUPEROFF, SUPERSZ)
	if err != nil {
		return nil, false, fmt.Errorf("reading superblock: %w", err)
	}
	fs := Decode(b)
	if fs.Magic != common.MAGIC {
		util.DPrintf(1, "Load: magic %#x, formatting\n", fs.Magic)
		fs, err := MkFsSuper(ioSz, devSz)
		if err != nil {
			return nil, false, err
		}
		return fs, true, nil
	}
	fs.IoSz = ioSz
	if err := fs.validate(devSz); err != nil {
		return nil, false, err
	}
	util.DPrintf(1, "Load: existing volume, usage %d\n", fs.Usage)
	return fs, false, nil
}

func (fs *FsSuper) validate(devSz uint64) error {
	if fs.BlkSz != 2*fs.IoSz {
		return fmt.Errorf("volume block size %d does not match device unit %d: %w",
			fs.BlkSz, fs.IoSz, common.ErrInvalid)
	}
	offs := []uint64{SUPEROFF, fs.InodeBitmapOff, fs.DataBitmapOff, fs.InodeOff, fs.DataOff}
	for i, off := range offs {
		if off%fs.BlkSz != 0 || (i > 0 && off <= offs[i-1]) || off > devSz {
			return fmt.Errorf("corrupt layout %v: %w", offs, common.ErrInvalid)
		}
	}
	// offsets are bounded by devSz, so region lengths below cannot overflow
	nblk := devSz / fs.BlkSz
	if fs.NInodeBitmap > nblk || fs.NDataBitmap > nblk || fs.NInode > nblk || fs.NData > nblk {
		return fmt.Errorf("region counts exceed device of %d blocks: %w", nblk, common.ErrInvalid)
	}
	if fs.InodeBitmapOff+fs.NInodeBitmap*fs.BlkSz > fs.DataBitmapOff ||
		fs.DataBitmapOff+fs.NDataBitmap*fs.BlkSz > fs.InodeOff ||
		fs.InodeOff+fs.NInode*fs.BlkSz > fs.DataOff {
		return fmt.Errorf("overlapping regions %v: %w", offs, common.ErrInvalid)
	}
	if fs.NInode == 0 || fs.NInode > fs.NInodeBitmap*fs.BlkSz*8 {
		return fmt.Errorf("inode bitmap of %d blocks cannot index %d inodes: %w",
			fs.NInodeBitmap, fs.NInode, common.ErrInvalid)
	}
	if fs.NData > fs.NDataBitmap*fs.BlkSz*8 {
		return fmt.Errorf("data bitmap of %d blocks cannot index %d blocks: %w",
			fs.NDataBitmap, fs.NData, common.ErrInvalid)
	}
	if fs.DataOff+fs.NData*fs.BlkSz > devSz {
		return fmt.Errorf("volume needs %d bytes, device has %d: %w",
			fs.DataOff+fs.NData*fs.BlkSz, devSz, common.ErrInvalid)
	}
	return nil
}

// Flush writes the superblock record back to block 0.
func (fs *FsSuper) Flush(dev *buf.Dev) error {
	if err := dev.WriteAt(SUPEROFF, fs.Encode()); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

func (fs *FsSuper) InodeStart() common.Bnum {
	return fs.InodeOff / fs.BlkSz
}

func (fs *FsSuper) DataStart() common.Bnum {
	return fs.DataOff / fs.BlkSz
}

// InodeAddr locates the inode table slot of inum.
func (fs *FsSuper) InodeAddr(inum common.Inum) addr.Addr {
	return addr.MkAddr(fs.InodeStart()+common.Bnum(inum), 0)
}

// DataAddr locates data block bno, numbered from the start of the data region.
func (fs *FsSuper) DataAddr(bno common.Bnum) addr.Addr {
	return addr.MkAddr(fs.DataStart()+bno, 0)
}

func (fs *FsSuper) InodeBitmapAddr() addr.Addr {
	return addr.MkByteAddr(fs.InodeBitmapOff, fs.BlkSz)
}

func (fs *FsSuper) DataBitmapAddr() addr.Addr {
	return addr.MkByteAddr(fs.DataBitmapOff, fs.BlkSz)
}

// BitmapBytes is the byte length of a bitmap region of nblocks blocks.
func (fs *FsSuper) BitmapBytes(nblocks uint64) uint64 {
	return nblocks * fs.BlkSz
}

// MaxFileSize is the hard cap on a regular file.
func (fs *FsSuper) MaxFileSize() uint64 {
	return common.NDIRECT * fs.BlkSz
}
