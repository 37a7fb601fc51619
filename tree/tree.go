// Package tree caches the directory hierarchy in memory.
//
// The tree is an arena: nodes are found by inode number and edges by slot id,
// and every parent, sibling and child link is an id. Only nodes that have been
// looked at are resident; everything else stays on disk until Hydrate reads
// it. Nothing in this package locks; callers serialize.
package tree

import (
	"fmt"

	"github.com/mit-pdos/go-newfs/alloc"
	"github.com/mit-pdos/go-newfs/buf"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/inode"
	"github.com/mit-pdos/go-newfs/super"
	"github.com/mit-pdos/go-newfs/util"
)

type EdgeId uint64

const (
	NULLEDGE EdgeId = ^EdgeId(0)
	ROOTEDGE EdgeId = 0
)

// An Edge is a named reference from a directory to a node. Sibling edges form
// a chain through Next, newest first.
type Edge struct {
	Id     EdgeId
	Name   string
	Inum   common.Inum
	Ftype  common.FileType
	Valid  bool
	Parent EdgeId // edge of the containing directory
	Next   EdgeId

	resident bool
}

// A Node is the in-memory inode.
type Node struct {
	Inum   common.Inum
	Size   uint64
	Nlink  uint64
	Ftype  common.FileType
	Nchild uint64
	Child  EdgeId // head of the child chain
	Edge   EdgeId // edge naming this node
	Bnos   [common.NDIRECT]common.Bnum
	Blocks [common.NDIRECT][]byte // regular files only
}

type Tree struct {
	dev    *buf.Dev
	sb     *super.FsSuper
	ialloc *alloc.Alloc
	balloc *alloc.Alloc

	edges []*Edge // nil slots are free
	free  []EdgeId
	nodes map[common.Inum]*Node
}

// MkTree makes a tree holding only the root edge. The root node is neither
// allocated nor read; see AllocNode and Hydrate.
func MkTree(dev *buf.Dev, sb *super.FsSuper, ialloc *alloc.Alloc, balloc *alloc.Alloc) *Tree {
	t := &Tree{
		dev:    dev,
		sb:     sb,
		ialloc: ialloc,
		balloc: balloc,
		nodes:  make(map[common.Inum]*Node),
	}
	root := t.NewEdge("/", common.DIR)
	if root.Id != ROOTEDGE {
		panic("MkTree: root edge not in slot 0")
	}
	root.Inum = common.ROOTINUM
	return t
}

func (t *Tree) Root() *Edge {
	return t.edges[ROOTEDGE]
}

func (t *Tree) Edge(id EdgeId) *Edge {
	if id == NULLEDGE {
		return nil
	}
	return t.edges[id]
}

// Node returns the node e names, or nil if it is not resident.
func (t *Tree) Node(e *Edge) *Node {
	if !e.resident {
		return nil
	}
	return t.nodes[e.Inum]
}

func (e *Edge) Resident() bool {
	return e.resident
}

func (t *Tree) NewEdge(name string, ftype common.FileType) *Edge {
	e := &Edge{Name: name, Ftype: ftype, Valid: true, Parent: NULLEDGE, Next: NULLEDGE}
	if n := len(t.free); n > 0 {
		e.Id = t.free[n-1]
		t.free = t.free[:n-1]
		t.edges[e.Id] = e
	} else {
		e.Id = EdgeId(len(t.edges))
		t.edges = append(t.edges, e)
	}
	return e
}

// FreeEdge releases an edge slot. The edge must already be out of any chain.
func (t *Tree) FreeEdge(e *Edge) {
	if e.Id == ROOTEDGE {
		panic("FreeEdge: root")
	}
	t.edges[e.Id] = nil
	t.free = append(t.free, e.Id)
}

// MaxEntries bounds the children of one directory.
func (t *Tree) MaxEntries() uint64 {
	return inode.MaxDentries(t.sb.BlkSz)
}

// Link puts e at the head of parent's chain.
func (t *Tree) Link(parent *Node, e *Edge) error {
	if parent.Ftype != common.DIR {
		return fmt.Errorf("link %q into inode %d: %w", e.Name, parent.Inum, common.ErrNotDir)
	}
	if parent.Nchild >= t.MaxEntries() {
		return fmt.Errorf("link %q: directory %d holds %d entries: %w",
			e.Name, parent.Inum, parent.Nchild, common.ErrNoSpace)
	}
	e.Next = parent.Child
	e.Parent = parent.Edge
	parent.Child = e.Id
	parent.Nchild++
	return nil
}

// Unlink takes e out of parent's chain. The edge slot stays allocated.
func (t *Tree) Unlink(parent *Node, e *Edge) error {
	prev := NULLEDGE
	for id := parent.Child; id != NULLEDGE; id = t.edges[id].Next {
		if id != e.Id {
			prev = id
			continue
		}
		if prev == NULLEDGE {
			parent.Child = e.Next
		} else {
			t.edges[prev].Next = e.Next
		}
		e.Next = NULLEDGE
		e.Parent = NULLEDGE
		parent.Nchild--
		return nil
	}
	return fmt.Errorf("unlink %q from inode %d: %w", e.Name, parent.Inum, common.ErrNotFound)
}

// Children lists the edges of a directory in chain order.
func (t *Tree) Children(n *Node) []*Edge {
	var es []*Edge
	for id := n.Child; id != NULLEDGE; id = t.edges[id].Next {
		es = append(es, t.edges[id])
	}
	return es
}

// AllocNode gives e a fresh inode and NDIRECT data blocks. Nothing is written
// to disk until SyncNode.
func (t *Tree) AllocNode(e *Edge) (*Node, error) {
	inum, ok := t.ialloc.AllocNum()
	if !ok {
		return nil, fmt.Errorf("allocating inode for %q: %w", e.Name, common.ErrNoSpace)
	}
	bnos, ok := t.balloc.AllocN(common.NDIRECT)
	if !ok {
		t.ialloc.FreeNum(inum)
		return nil, fmt.Errorf("allocating blocks for %q: %w", e.Name, common.ErrNoSpace)
	}
	n := &Node{
		Inum:  common.Inum(inum),
		Nlink: nlink(e.Ftype),
		Ftype: e.Ftype,
		Child: NULLEDGE,
		Edge:  e.Id,
	}
	copy(n.Bnos[:], bnos)
	if n.Ftype == common.REG {
		for i := range n.Blocks {
			n.Blocks[i] = make([]byte, t.sb.BlkSz)
		}
	}
	e.Inum = n.Inum
	e.resident = true
	t.nodes[n.Inum] = n
	util.DPrintf(5, "AllocNode: %q -> inode %d blocks %v\n", e.Name, n.Inum, n.Bnos)
	return n, nil
}

// MkChild creates name under parent with a freshly allocated node. On failure
// nothing stays allocated.
func (t *Tree) MkChild(parent *Node, name string, ftype common.FileType) (*Edge, *Node, error) {
	e := t.NewEdge(name, ftype)
	n, err := t.AllocNode(e)
	if err != nil {
		t.FreeEdge(e)
		return nil, nil, err
	}
	if err := t.Link(parent, e); err != nil {
		t.release(n)
		t.FreeEdge(e)
		return nil, nil, err
	}
	return e, n, nil
}

func nlink(ftype common.FileType) uint64 {
	if ftype == common.DIR {
		return 2
	}
	return 1
}
