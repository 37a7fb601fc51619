package fuse

import (
	"context"
	"os"
	"path"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/fs"
)

const renameNoReplace = 0x1

// node is any file or directory of the volume.
type node struct {
	gofuse.Inode
	vol *volume
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeAccesser = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeMknoder = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)
var _ gofuse.NodeFsyncer = (*node)(nil)

func (n *node) path() string {
	return "/" + n.Path(nil)
}

func (n *node) child(name string) string {
	return path.Join(n.path(), name)
}

func (n *node) errno(op string, p string, err error) syscall.Errno {
	errno := toErrno(err)
	if errno == syscall.EIO {
		n.vol.logger.Error("volume error", "op", op, "path", p, "error", err)
	} else {
		n.vol.logger.Debug("request failed", "op", op, "path", p, "error", err)
	}
	return errno
}

func fillAttr(a *fs.Attr, out *fuse.Attr) {
	out.Ino = uint64(a.Inum) + 1
	out.Size = a.Size
	out.Mode = a.Mode
	out.Nlink = uint32(a.Nlink)
	out.Blksize = uint32(a.BlkSz)
	out.Blocks = a.Blocks * a.BlkSz / 512
	out.Uid = uint32(os.Getuid())
	out.Gid = uint32(os.Getgid())
}

// newChild makes the kernel-side inode for a volume entry whose attributes
// are already in out.
func (n *node) newChild(ctx context.Context, out *fuse.EntryOut) *gofuse.Inode {
	return n.NewInode(ctx, &node{vol: n.vol}, gofuse.StableAttr{
		Mode: out.Attr.Mode & syscall.S_IFMT,
		Ino:  out.Attr.Ino,
	})
}

// entry reads the attributes of p into out. Callers hold vol.mu.
func (n *node) entry(op string, p string, out *fuse.EntryOut) syscall.Errno {
	a, err := n.vol.fs.Getattr(p)
	if err != nil {
		return n.errno(op, p, err)
	}
	fillAttr(a, &out.Attr)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	if errno := n.entry("lookup", n.child(name), out); errno != 0 {
		return nil, errno
	}
	return n.newChild(ctx, out), 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	a, err := n.vol.fs.Getattr(p)
	if err != nil {
		return n.errno("getattr", p, err)
	}
	fillAttr(a, &out.Attr)
	return 0
}

// Setattr only honors size changes; every file has mode 0777.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	if sz, ok := in.GetSize(); ok {
		if err := n.vol.fs.Truncate(p, sz); err != nil {
			return n.errno("truncate", p, err)
		}
	}
	a, err := n.vol.fs.Getattr(p)
	if err != nil {
		return n.errno("setattr", p, err)
	}
	fillAttr(a, &out.Attr)
	return 0
}

func (n *node) Access(ctx context.Context, mask uint32) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	if _, err := n.vol.fs.Getattr(p); err != nil {
		return n.errno("access", p, err)
	}
	return 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	ents, err := n.vol.fs.Readdir(p)
	if err != nil {
		return nil, n.errno("readdir", p, err)
	}
	out := make([]fuse.DirEntry, 0, len(ents))
	for _, e := range ents {
		mode := uint32(syscall.S_IFREG)
		if e.Ftype == common.DIR {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: mode, Ino: uint64(e.Inum) + 1})
	}
	return gofuse.NewListDirStream(out), 0
}

func (n *node) mk(ctx context.Context, op string, name string, ftype common.FileType, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.child(name)
	if err := n.vol.fs.Create(p, ftype); err != nil {
		return nil, n.errno(op, p, err)
	}
	if errno := n.entry(op, p, out); errno != 0 {
		return nil, errno
	}
	return n.newChild(ctx, out), 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return n.mk(ctx, "mkdir", name, common.DIR, out)
}

func (n *node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if mode&syscall.S_IFMT != syscall.S_IFREG && mode&syscall.S_IFMT != 0 {
		return nil, syscall.ENOTSUP
	}
	return n.mk(ctx, "mknod", name, common.REG, out)
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	child, errno := n.mk(ctx, "create", name, common.REG, out)
	if errno != 0 {
		return nil, nil, 0, errno
	}
	return child, nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&syscall.O_TRUNC == 0 {
		return nil, fuse.FOPEN_DIRECT_IO, 0
	}
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	if err := n.vol.fs.Truncate(p, 0); err != nil {
		return nil, 0, n.errno("open", p, err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	data, err := n.vol.fs.Read(p, uint64(off), uint64(len(dest)))
	if err != nil {
		return nil, n.errno("read", p, err)
	}
	return fuse.ReadResultData(data), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.path()
	written, err := n.vol.fs.Write(p, uint64(off), data)
	if err != nil {
		return 0, n.errno("write", p, err)
	}
	return uint32(written), 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.child(name)
	if err := n.vol.fs.Unlink(p); err != nil {
		return n.errno("unlink", p, err)
	}
	return 0
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	p := n.child(name)
	if err := n.vol.fs.Rmdir(p); err != nil {
		return n.errno("rmdir", p, err)
	}
	return 0
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags&^renameNoReplace != 0 {
		return syscall.EINVAL
	}
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	from := n.child(name)
	to := path.Join("/"+newParent.EmbeddedInode().Path(nil), newName)
	if flags&renameNoReplace != 0 {
		if _, err := n.vol.fs.Getattr(to); err == nil {
			return syscall.EEXIST
		}
	}
	if err := n.vol.fs.Rename(from, to); err != nil {
		return n.errno("rename", from, err)
	}
	return 0
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	st, err := n.vol.fs.Statfs()
	if err != nil {
		return n.errno("statfs", "/", err)
	}
	out.Bsize = uint32(st.BlkSz)
	out.Frsize = uint32(st.BlkSz)
	out.Blocks = st.Blocks
	out.Bfree = st.BlocksFree
	out.Bavail = st.BlocksFree
	out.Files = st.Inodes
	out.Ffree = st.InodesFree
	out.NameLen = uint32(st.NameLen)
	return 0
}

// Fsync flushes the whole volume.
func (n *node) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno {
	n.vol.mu.Lock()
	defer n.vol.mu.Unlock()
	if err := n.vol.fs.Sync(); err != nil {
		return n.errno("fsync", n.path(), err)
	}
	return 0
}
