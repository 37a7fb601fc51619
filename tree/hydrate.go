package tree

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/inode"
	"github.com/mit-pdos/go-newfs/util"
)

// Hydrate makes the node named by e resident, reading its inode and, for a
// directory, one level of entries; for a file, its data blocks. A resident
// node is returned without touching the disk.
func (t *Tree) Hydrate(e *Edge) (*Node, error) {
	if n := t.Node(e); n != nil {
		return n, nil
	}
	if uint64(e.Inum) >= t.sb.NInode {
		return nil, fmt.Errorf("%w: entry %q names inode %d of %d",
			common.ErrIO, e.Name, e.Inum, t.sb.NInode)
	}
	b, err := t.dev.Load(t.sb.InodeAddr(e.Inum), inode.INODESZ)
	if err != nil {
		return nil, fmt.Errorf("reading inode %d: %w", e.Inum, err)
	}
	di := inode.DecodeDinode(b)
	if di.Inum != e.Inum || di.Ftype != e.Ftype {
		return nil, fmt.Errorf("%w: slot %d holds inode %d (%v), entry %q expects %v",
			common.ErrIO, e.Inum, di.Inum, di.Ftype, e.Name, e.Ftype)
	}
	n := &Node{
		Inum:  di.Inum,
		Size:  di.Size,
		Nlink: nlink(di.Ftype),
		Ftype: di.Ftype,
		Child: NULLEDGE,
		Edge:  e.Id,
		Bnos:  di.Bnos,
	}
	for _, bno := range n.Bnos {
		if bno >= t.sb.NData {
			return nil, fmt.Errorf("%w: inode %d references block %d of %d",
				common.ErrIO, n.Inum, bno, t.sb.NData)
		}
	}

	switch n.Ftype {
	case common.DIR:
		if err := t.readDentries(n, di.Nchild); err != nil {
			return nil, err
		}
	case common.REG:
		for i, bno := range n.Bnos {
			blk, err := t.dev.Load(t.sb.DataAddr(bno), t.sb.BlkSz)
			if err != nil {
				return nil, fmt.Errorf("reading block %d of inode %d: %w", i, n.Inum, err)
			}
			n.Blocks[i] = blk
		}
	}

	e.resident = true
	t.nodes[n.Inum] = n
	util.DPrintf(5, "Hydrate: %q inode %d %v size %d nchild %d\n",
		e.Name, n.Inum, n.Ftype, n.Size, n.Nchild)
	return n, nil
}

// readDentries builds one edge per stored entry, keeping the stored order.
func (t *Tree) readDentries(n *Node, nchild uint64) error {
	if nchild > t.MaxEntries() {
		return fmt.Errorf("%w: directory %d claims %d entries", common.ErrIO, n.Inum, nchild)
	}
	per := inode.DentriesPerBlock(t.sb.BlkSz)
	var made []*Edge
	var blk []byte
	for i := uint64(0); i < nchild; i++ {
		if i%per == 0 {
			var err error
			blk, err = t.dev.Load(t.sb.DataAddr(n.Bnos[i/per]), t.sb.BlkSz)
			if err != nil {
				for _, e := range made {
					t.FreeEdge(e)
				}
				return fmt.Errorf("reading entries of directory %d: %w", n.Inum, err)
			}
		}
		off := (i % per) * inode.DENTRYSZ
		de := inode.DecodeDentry(blk[off : off+inode.DENTRYSZ])
		e := t.NewEdge(de.Name, de.Ftype)
		e.Inum = de.Inum
		e.Valid = de.Valid
		e.Parent = n.Edge
		if len(made) > 0 {
			made[len(made)-1].Next = e.Id
		}
		made = append(made, e)
	}
	if len(made) > 0 {
		n.Child = made[0].Id
	}
	n.Nchild = nchild
	return nil
}
