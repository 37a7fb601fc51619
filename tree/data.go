package tree

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

// MaxFileSize is the hard cap on a regular file.
func (t *Tree) MaxFileSize() uint64 {
	return t.sb.MaxFileSize()
}

func (t *Tree) checkReg(n *Node) error {
	if n.Ftype != common.REG {
		return fmt.Errorf("inode %d: %w", n.Inum, common.ErrIsDir)
	}
	return nil
}

// ReadAt returns up to sz bytes of n starting at off. Reads at or past the
// end of the file return nothing.
func (t *Tree) ReadAt(n *Node, off uint64, sz uint64) ([]byte, error) {
	if err := t.checkReg(n); err != nil {
		return nil, err
	}
	if off >= n.Size {
		return nil, nil
	}
	end := n.Size
	if !util.SumOverflows(off, sz) && off+sz < end {
		end = off + sz
	}
	data := make([]byte, end-off)
	t.forBlocks(n, off, end, func(blk []byte, pos uint64) {
		copy(data[pos:], blk)
	})
	return data, nil
}

// WriteAt copies data into n at off, growing the file if needed.
func (t *Tree) WriteAt(n *Node, off uint64, data []byte) error {
	if err := t.checkReg(n); err != nil {
		return err
	}
	sz := uint64(len(data))
	if util.SumOverflows(off, sz) || off+sz > t.MaxFileSize() {
		return fmt.Errorf("write [%d, +%d) to inode %d: %w",
			off, sz, n.Inum, common.ErrFileTooBig)
	}
	end := off + sz
	t.forBlocks(n, off, end, func(blk []byte, pos uint64) {
		copy(blk, data[pos:])
	})
	if end > n.Size {
		t.sb.Usage += end - n.Size
		n.Size = end
	}
	return nil
}

// Truncate sets the size of n. Bytes cut off are zeroed so a later extension
// reads zeros.
func (t *Tree) Truncate(n *Node, size uint64) error {
	if err := t.checkReg(n); err != nil {
		return err
	}
	if size > t.MaxFileSize() {
		return fmt.Errorf("truncate inode %d to %d: %w", n.Inum, size, common.ErrFileTooBig)
	}
	if size < n.Size {
		t.forBlocks(n, size, n.Size, func(blk []byte, _ uint64) {
			clear(blk)
		})
		t.subUsage(n.Size - size)
	} else {
		t.sb.Usage += size - n.Size
	}
	n.Size = size
	return nil
}

// forBlocks calls f on each piece of n's block buffers covering [off, end),
// with the piece's position relative to off.
func (t *Tree) forBlocks(n *Node, off uint64, end uint64, f func(blk []byte, pos uint64)) {
	bsz := t.sb.BlkSz
	for cur := off; cur < end; {
		i := cur / bsz
		boff := cur % bsz
		m := util.Min(bsz-boff, end-cur)
		f(n.Blocks[i][boff:boff+m], cur-off)
		cur += m
	}
}
