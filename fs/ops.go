package fs

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/tree"
	"github.com/mit-pdos/go-newfs/util"
)

// lookup resolves path to a resident node.
func (fs *Fs) lookup(path string) (*tree.Edge, *tree.Node, error) {
	if err := fs.checkMounted(); err != nil {
		return nil, nil, err
	}
	e, found, _, err := fs.tree.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		if e.Ftype == common.REG {
			return nil, nil, fmt.Errorf("%q: %q: %w", path, e.Name, common.ErrNotDir)
		}
		return nil, nil, fmt.Errorf("%q: %w", path, common.ErrNotFound)
	}
	return e, fs.tree.Node(e), nil
}

// lookupParent resolves the directory that would hold path and returns it
// with the final component.
func (fs *Fs) lookupParent(path string) (*tree.Node, string, error) {
	cs := tree.Components(path)
	if len(cs) == 0 {
		return nil, "", fmt.Errorf("%q names the root: %w", path, common.ErrInvalid)
	}
	name := cs[len(cs)-1]
	if uint64(len(name)) > common.MAXNAMELEN {
		return nil, "", fmt.Errorf("%q: %w", name, common.ErrNameTooLong)
	}
	_, dir, err := fs.lookup("/" + strings.Join(cs[:len(cs)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	if dir.Ftype != common.DIR {
		return nil, "", fmt.Errorf("%q: %w", path, common.ErrNotDir)
	}
	return dir, name, nil
}

func (fs *Fs) parentOf(e *tree.Edge) *tree.Node {
	p := fs.tree.Node(fs.tree.Edge(e.Parent))
	if p == nil {
		panic(fmt.Sprintf("parentOf: %q has no resident parent", e.Name))
	}
	return p
}

// Create makes an empty file or directory at path.
func (fs *Fs) Create(path string, ftype common.FileType) error {
	if err := fs.checkMounted(); err != nil {
		return err
	}
	if len(tree.Components(path)) == 0 {
		return fmt.Errorf("%q: %w", path, common.ErrExists)
	}
	dir, name, err := fs.lookupParent(path)
	if err != nil {
		return err
	}
	if fs.tree.Lookup(dir, name) != nil {
		return fmt.Errorf("%q: %w", path, common.ErrExists)
	}
	_, n, err := fs.tree.MkChild(dir, name, ftype)
	if err != nil {
		return err
	}
	util.DPrintf(3, "Create: %q %v inode %d\n", path, ftype, n.Inum)
	return nil
}

func (fs *Fs) Mkdir(path string) error {
	return fs.Create(path, common.DIR)
}

func (fs *Fs) Mknod(path string) error {
	return fs.Create(path, common.REG)
}

// remove drops the node at e and takes e out of its directory.
func (fs *Fs) remove(e *tree.Edge, n *tree.Node) error {
	if err := fs.tree.DropNode(n); err != nil {
		return err
	}
	if err := fs.tree.Unlink(fs.parentOf(e), e); err != nil {
		return err
	}
	fs.tree.FreeEdge(e)
	return nil
}

// Remove deletes path and everything below it.
func (fs *Fs) Remove(path string) error {
	e, n, err := fs.lookup(path)
	if err != nil {
		return err
	}
	if e.Id == tree.ROOTEDGE {
		return fmt.Errorf("remove root: %w", common.ErrInvalid)
	}
	util.DPrintf(3, "Remove: %q inode %d\n", path, n.Inum)
	return fs.remove(e, n)
}

// Unlink deletes a regular file.
func (fs *Fs) Unlink(path string) error {
	e, n, err := fs.lookup(path)
	if err != nil {
		return err
	}
	if n.Ftype != common.REG {
		return fmt.Errorf("unlink %q: %w", path, common.ErrIsDir)
	}
	return fs.remove(e, n)
}

// Rmdir deletes an empty directory.
func (fs *Fs) Rmdir(path string) error {
	e, n, err := fs.lookup(path)
	if err != nil {
		return err
	}
	if n.Ftype != common.DIR {
		return fmt.Errorf("rmdir %q: %w", path, common.ErrNotDir)
	}
	if e.Id == tree.ROOTEDGE {
		return fmt.Errorf("rmdir root: %w", common.ErrInvalid)
	}
	if n.Nchild != 0 {
		return fmt.Errorf("rmdir %q: %w", path, common.ErrNotEmpty)
	}
	return fs.remove(e, n)
}

func (fs *Fs) Read(path string, off uint64, sz uint64) ([]byte, error) {
	_, n, err := fs.lookup(path)
	if err != nil {
		return nil, err
	}
	return fs.tree.ReadAt(n, off, sz)
}

// Write stores data at off and returns the number of bytes written. The data
// reaches the device on the next Sync.
func (fs *Fs) Write(path string, off uint64, data []byte) (uint64, error) {
	_, n, err := fs.lookup(path)
	if err != nil {
		return 0, err
	}
	if err := fs.tree.WriteAt(n, off, data); err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}

func (fs *Fs) Truncate(path string, size uint64) error {
	_, n, err := fs.lookup(path)
	if err != nil {
		return err
	}
	return fs.tree.Truncate(n, size)
}

// Rename moves oldPath to newPath. An existing target is replaced when both
// are files or both are directories and the target is empty.
func (fs *Fs) Rename(oldPath string, newPath string) error {
	src, _, err := fs.lookup(oldPath)
	if err != nil {
		return err
	}
	if src.Id == tree.ROOTEDGE {
		return fmt.Errorf("rename root: %w", common.ErrInvalid)
	}
	dir, name, err := fs.lookupParent(newPath)
	if err != nil {
		return err
	}
	for id := dir.Edge; id != tree.NULLEDGE; id = fs.tree.Edge(id).Parent {
		if id == src.Id {
			return fmt.Errorf("rename %q into itself: %w", oldPath, common.ErrInvalid)
		}
	}

	if dst := fs.tree.Lookup(dir, name); dst != nil {
		if dst == src {
			return nil
		}
		if err := fs.replaceable(src, dst); err != nil {
			return fmt.Errorf("rename onto %q: %w", newPath, err)
		}
		if err := fs.remove(dst, fs.tree.Node(dst)); err != nil {
			return err
		}
	}

	from := fs.parentOf(src)
	if err := fs.tree.Unlink(from, src); err != nil {
		return err
	}
	oldName := src.Name
	src.Name = name
	if err := fs.tree.Link(dir, src); err != nil {
		src.Name = oldName
		if lerr := fs.tree.Link(from, src); lerr != nil {
			panic(lerr)
		}
		return err
	}
	util.DPrintf(3, "Rename: %q -> %q\n", oldPath, newPath)
	return nil
}

func (fs *Fs) replaceable(src *tree.Edge, dst *tree.Edge) error {
	dn, err := fs.tree.Hydrate(dst)
	if err != nil {
		return err
	}
	switch {
	case src.Ftype == common.REG && dn.Ftype == common.REG:
		return nil
	case src.Ftype == common.DIR && dn.Ftype == common.DIR:
		if dn.Nchild != 0 {
			return common.ErrNotEmpty
		}
		return nil
	case src.Ftype == common.DIR:
		return common.ErrNotDir
	default:
		return common.ErrIsDir
	}
}
