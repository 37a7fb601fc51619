package addr

import (
	"github.com/mit-pdos/go-newfs/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the filesystem block containing the object, and Off is the
// location of the object within the block (expressed as a byte offset). The
// size of the object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bytes
}

// Flatid is the absolute byte offset of a on a volume with blocks of blkSz.
func (a Addr) Flatid(blkSz uint64) uint64 {
	return uint64(a.Blkno)*blkSz + a.Off
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkByteAddr splits an absolute byte offset into block and in-block offset.
func MkByteAddr(off uint64, blkSz uint64) Addr {
	return MkAddr(common.Bnum(off/blkSz), off%blkSz)
}
