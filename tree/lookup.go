package tree

import (
	"strings"

	"github.com/mit-pdos/go-newfs/common"
)

// Components splits an absolute path, dropping empty components.
func Components(path string) []string {
	var cs []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			cs = append(cs, c)
		}
	}
	return cs
}

// Lookup finds name among the children of dir.
func (t *Tree) Lookup(dir *Node, name string) *Edge {
	for id := dir.Child; id != NULLEDGE; id = t.edges[id].Next {
		if e := t.edges[id]; e.Name == name {
			return e
		}
	}
	return nil
}

// Resolve walks path from the root, hydrating as it goes.
//
// If every component is found, the final edge is returned hydrated with found
// set; isRoot is set when the path names the root itself. Otherwise the
// deepest edge reached comes back with found clear: the directory in which a
// component was missing, or a regular file that a later component tried to
// descend into. err is only set by I/O failures.
func (t *Tree) Resolve(path string) (e *Edge, found bool, isRoot bool, err error) {
	cs := Components(path)
	cur := t.Root()
	if len(cs) == 0 {
		if _, err := t.Hydrate(cur); err != nil {
			return cur, false, true, err
		}
		return cur, true, true, nil
	}
	for i, name := range cs {
		n, err := t.Hydrate(cur)
		if err != nil {
			return cur, false, false, err
		}
		if n.Ftype == common.REG {
			return cur, false, false, nil
		}
		next := t.Lookup(n, name)
		if next == nil {
			return cur, false, false, nil
		}
		if i == len(cs)-1 {
			if _, err := t.Hydrate(next); err != nil {
				return next, false, false, err
			}
			return next, true, false, nil
		}
		cur = next
	}
	panic("unreachable")
}
