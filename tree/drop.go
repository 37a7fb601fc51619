package tree

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/util"
)

// DropNode deletes n and, for a directory, everything below it: bitmap bits
// are cleared and the nodes leave the cache. Child edges are freed; the edge
// naming n is left to the caller to unlink and free.
func (t *Tree) DropNode(n *Node) error {
	if n.Inum == common.ROOTINUM {
		return fmt.Errorf("drop root: %w", common.ErrInvalid)
	}
	if n.Ftype == common.DIR {
		for n.Child != NULLEDGE {
			e := t.edges[n.Child]
			c, err := t.Hydrate(e)
			if err != nil {
				return err
			}
			if err := t.DropNode(c); err != nil {
				return err
			}
			if err := t.Unlink(n, e); err != nil {
				panic(err)
			}
			t.FreeEdge(e)
		}
	}
	t.release(n)
	util.DPrintf(5, "DropNode: inode %d %v\n", n.Inum, n.Ftype)
	return nil
}

// release returns n's inode and blocks to the allocators and evicts it.
func (t *Tree) release(n *Node) {
	t.ialloc.FreeNum(uint64(n.Inum))
	for _, bno := range n.Bnos {
		t.balloc.FreeNum(bno)
	}
	if n.Ftype == common.REG {
		t.subUsage(n.Size)
	}
	n.Blocks = [common.NDIRECT][]byte{}
	if e := t.edges[n.Edge]; e != nil && e.Inum == n.Inum {
		e.resident = false
	}
	delete(t.nodes, n.Inum)
}

func (t *Tree) subUsage(sz uint64) {
	if sz > t.sb.Usage {
		t.sb.Usage = 0
		return
	}
	t.sb.Usage -= sz
}
