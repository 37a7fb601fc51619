package fs

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/inode"
)

type Attr struct {
	Inum   common.Inum
	Ftype  common.FileType
	Size   uint64
	Mode   uint32
	Nlink  uint64
	Blocks uint64 // volume blocks held
	BlkSz  uint64
}

func mode(ftype common.FileType) uint32 {
	if ftype == common.DIR {
		return unix.S_IFDIR | common.DEFAULTPERM
	}
	return unix.S_IFREG | common.DEFAULTPERM
}

func (fs *Fs) Getattr(path string) (*Attr, error) {
	_, n, err := fs.lookup(path)
	if err != nil {
		return nil, err
	}
	return &Attr{
		Inum:   n.Inum,
		Ftype:  n.Ftype,
		Size:   n.Size,
		Mode:   mode(n.Ftype),
		Nlink:  n.Nlink,
		Blocks: common.NDIRECT,
		BlkSz:  fs.sb.BlkSz,
	}, nil
}

type DirEntry struct {
	Name  string
	Inum  common.Inum
	Ftype common.FileType
}

// Readdir lists a directory, newest entry first.
func (fs *Fs) Readdir(path string) ([]DirEntry, error) {
	_, n, err := fs.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.Ftype != common.DIR {
		return nil, fmt.Errorf("readdir %q: %w", path, common.ErrNotDir)
	}
	es := fs.tree.Children(n)
	ents := make([]DirEntry, 0, len(es))
	for _, e := range es {
		ents = append(ents, DirEntry{Name: e.Name, Inum: e.Inum, Ftype: e.Ftype})
	}
	return ents, nil
}

type StatFs struct {
	BlkSz      uint64
	Blocks     uint64
	BlocksFree uint64
	Inodes     uint64
	InodesFree uint64
	Usage      uint64 // bytes held by regular files
	NameLen    uint64
}

func (fs *Fs) Statfs() (*StatFs, error) {
	if err := fs.checkMounted(); err != nil {
		return nil, err
	}
	return &StatFs{
		BlkSz:      fs.sb.BlkSz,
		Blocks:     fs.sb.NData,
		BlocksFree: fs.balloc.NumFree(),
		Inodes:     fs.sb.NInode,
		InodesFree: fs.ialloc.NumFree(),
		Usage:      fs.sb.Usage,
		NameLen:    common.MAXNAMELEN,
	}, nil
}

// MaxEntries bounds the children of one directory.
func (fs *Fs) MaxEntries() uint64 {
	return inode.MaxDentries(fs.sb.BlkSz)
}
