// Package fs is a mounted newfs volume: the superblock, both bitmaps and the
// directory tree cache of one device, and the path-level operations a host
// such as FUSE drives them with.
//
// An Fs is not safe for concurrent use.
package fs

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-newfs/alloc"
	"github.com/mit-pdos/go-newfs/buf"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/disk"
	"github.com/mit-pdos/go-newfs/super"
	"github.com/mit-pdos/go-newfs/tree"
	"github.com/mit-pdos/go-newfs/util"
)

type Fs struct {
	d       disk.Disk
	dev     *buf.Dev
	sb      *super.FsSuper
	ialloc  *alloc.Alloc
	balloc  *alloc.Alloc
	tree    *tree.Tree
	mounted bool
	fresh   bool
}

type Options struct {
	// Device is a block device or an image file.
	Device string
}

// MountDevice opens opts.Device and mounts it.
func MountDevice(opts Options) (*Fs, error) {
	d, err := disk.Open(opts.Device)
	if err != nil {
		return nil, err
	}
	fs, err := Mount(d)
	if err != nil {
		d.Close()
		return nil, err
	}
	return fs, nil
}

// Mount attaches the volume on d, formatting it if the superblock magic is
// missing. A freshly formatted volume is flushed before Mount returns.
func Mount(d disk.Disk) (*Fs, error) {
	unit := d.UnitSize()
	if unit < common.MINIOSZ {
		return nil, fmt.Errorf("device unit %d below %d: %w", unit, common.MINIOSZ, common.ErrInvalid)
	}
	devSz, err := disk.SizeBytes(d)
	if err != nil {
		return nil, fmt.Errorf("%w: probing device size: %w", common.ErrIO, err)
	}
	dev, err := buf.MkDev(d, 2*unit)
	if err != nil {
		return nil, err
	}
	sb, fresh, err := super.Load(dev, unit, devSz)
	if err != nil {
		return nil, err
	}

	fs := &Fs{d: d, dev: dev, sb: sb, fresh: fresh}
	ibm := make([]byte, sb.BitmapBytes(sb.NInodeBitmap))
	bbm := make([]byte, sb.BitmapBytes(sb.NDataBitmap))
	if !fresh {
		if ibm, err = dev.Load(sb.InodeBitmapAddr(), uint64(len(ibm))); err != nil {
			return nil, fmt.Errorf("reading inode bitmap: %w", err)
		}
		if bbm, err = dev.Load(sb.DataBitmapAddr(), uint64(len(bbm))); err != nil {
			return nil, fmt.Errorf("reading data bitmap: %w", err)
		}
	}
	fs.ialloc = alloc.MkAlloc(ibm, sb.NInode)
	fs.balloc = alloc.MkAlloc(bbm, sb.NData)
	fs.tree = tree.MkTree(dev, sb, fs.ialloc, fs.balloc)

	if fresh {
		root, err := fs.tree.AllocNode(fs.tree.Root())
		if err != nil {
			return nil, err
		}
		if root.Inum != common.ROOTINUM {
			panic("Mount: root is not inode 0")
		}
		fs.mounted = true
		if err := fs.Sync(); err != nil {
			fs.mounted = false
			return nil, err
		}
	} else {
		if _, err := fs.tree.Hydrate(fs.tree.Root()); err != nil {
			return nil, err
		}
		fs.mounted = true
	}
	util.DPrintf(1, "Mount: fresh %v blk %d inodes %d/%d data %d/%d\n", fresh, sb.BlkSz,
		fs.ialloc.NumUsed(), sb.NInode, fs.balloc.NumUsed(), sb.NData)
	return fs, nil
}

// Fresh reports whether Mount formatted the device.
func (fs *Fs) Fresh() bool {
	return fs.fresh
}

func (fs *Fs) Mounted() bool {
	return fs.mounted
}

func (fs *Fs) checkMounted() error {
	if !fs.mounted {
		return fmt.Errorf("volume not mounted: %w", common.ErrInvalid)
	}
	return nil
}

// Sync writes every resident node, the superblock and both bitmaps, then
// waits for the device.
func (fs *Fs) Sync() error {
	if err := fs.checkMounted(); err != nil {
		return err
	}
	if err := fs.tree.SyncNode(fs.tree.Node(fs.tree.Root())); err != nil {
		return err
	}
	if err := fs.sb.Flush(fs.dev); err != nil {
		return err
	}
	if err := fs.dev.Install(fs.sb.InodeBitmapAddr(), fs.ialloc.Bytes()); err != nil {
		return fmt.Errorf("writing inode bitmap: %w", err)
	}
	if err := fs.dev.Install(fs.sb.DataBitmapAddr(), fs.balloc.Bytes()); err != nil {
		return fmt.Errorf("writing data bitmap: %w", err)
	}
	return fs.dev.Barrier()
}

// Unmount flushes the volume and closes the device. Unmounting twice is a
// no-op. The device is closed even if the flush fails.
func (fs *Fs) Unmount() error {
	if !fs.mounted {
		return nil
	}
	err := fs.Sync()
	fs.mounted = false
	fs.tree = nil
	fs.ialloc = nil
	fs.balloc = nil
	if cerr := fs.d.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("%w: closing device: %w", common.ErrIO, cerr))
	}
	util.DPrintf(1, "Unmount: err %v\n", err)
	return err
}
