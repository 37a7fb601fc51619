package tree

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/inode"
	"github.com/mit-pdos/go-newfs/util"
)

// SyncNode writes n and every resident node below it back to disk. It stops
// at the first failure; whatever was written stays written.
func (t *Tree) SyncNode(n *Node) error {
	di := &inode.Dinode{
		Inum:   n.Inum,
		Size:   n.Size,
		Ftype:  n.Ftype,
		Nchild: n.Nchild,
		Bnos:   n.Bnos,
	}
	if err := t.dev.Install(t.sb.InodeAddr(n.Inum), di.Encode()); err != nil {
		return fmt.Errorf("writing inode %d: %w", n.Inum, err)
	}

	switch n.Ftype {
	case common.DIR:
		if err := t.syncDir(n); err != nil {
			return err
		}
	case common.REG:
		for i, bno := range n.Bnos {
			if err := t.dev.Install(t.sb.DataAddr(bno), n.Blocks[i]); err != nil {
				return fmt.Errorf("writing block %d of inode %d: %w", i, n.Inum, err)
			}
		}
	}
	util.DPrintf(10, "SyncNode: inode %d %v size %d\n", n.Inum, n.Ftype, n.Size)
	return nil
}

func (t *Tree) syncDir(n *Node) error {
	per := inode.DentriesPerBlock(t.sb.BlkSz)
	children := t.Children(n)
	if uint64(len(children)) != n.Nchild {
		panic(fmt.Sprintf("syncDir: inode %d counts %d children, chain has %d",
			n.Inum, n.Nchild, len(children)))
	}

	var blks [common.NDIRECT][]byte
	for i, e := range children {
		b := uint64(i) / per
		if blks[b] == nil {
			blks[b] = make([]byte, t.sb.BlkSz)
		}
		de := &inode.Dentry{Inum: e.Inum, Ftype: e.Ftype, Valid: e.Valid, Name: e.Name}
		copy(blks[b][(uint64(i)%per)*inode.DENTRYSZ:], de.Encode())
	}
	for i, blk := range blks {
		if blk == nil {
			break
		}
		if err := t.dev.Install(t.sb.DataAddr(n.Bnos[i]), blk); err != nil {
			return fmt.Errorf("writing entries of directory %d: %w", n.Inum, err)
		}
	}

	for _, e := range children {
		if c := t.Node(e); c != nil {
			if err := t.SyncNode(c); err != nil {
				return err
			}
		}
	}
	return nil
}
