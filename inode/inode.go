// Package inode holds the fixed-width on-disk records for inodes and
// directory entries.
//
// An inode record occupies the front of its own block in the inode table; the
// rest of the block is unused. Directory entries are packed back to back
// inside a directory's direct blocks, DentriesPerBlock to a block, and never
// straddle a block boundary.
package inode

import (
	"bytes"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-newfs/common"
)

const (
	INODESZ  uint64 = 8 * (4 + common.NDIRECT)
	DENTRYSZ uint64 = 8*3 + common.MAXNAMELEN
)

// Dinode is the on-disk inode.
type Dinode struct {
	Inum   common.Inum
	Size   uint64
	Ftype  common.FileType
	Nchild uint64
	Bnos   [common.NDIRECT]common.Bnum
}

func (di *Dinode) Encode() []byte {
	enc := marshal.NewEnc(INODESZ)
	enc.PutInt(uint64(di.Inum))
	enc.PutInt(di.Size)
	enc.PutInt(uint64(di.Ftype))
	enc.PutInt(di.Nchild)
	enc.PutInts(di.Bnos[:])
	return enc.Finish()
}

func DecodeDinode(b []byte) *Dinode {
	dec := marshal.NewDec(b)
	di := &Dinode{}
	di.Inum = common.Inum(dec.GetInt())
	di.Size = dec.GetInt()
	di.Ftype = common.FileType(dec.GetInt())
	di.Nchild = dec.GetInt()
	copy(di.Bnos[:], dec.GetInts(common.NDIRECT))
	return di
}

// Dentry is the on-disk directory entry.
type Dentry struct {
	Inum  common.Inum
	Ftype common.FileType
	Valid bool
	Name  string
}

func boolToInt(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Encode lays out the integer header followed by the null-padded name. Names
// longer than MAXNAMELEN are cut; callers check the bound before creating
// entries.
func (de *Dentry) Encode() []byte {
	enc := marshal.NewEnc(DENTRYSZ)
	enc.PutInt(uint64(de.Inum))
	enc.PutInt(uint64(de.Ftype))
	enc.PutInt(boolToInt(de.Valid))
	b := enc.Finish()
	copy(b[DENTRYSZ-common.MAXNAMELEN:], de.Name)
	return b
}

func DecodeDentry(b []byte) *Dentry {
	dec := marshal.NewDec(b)
	de := &Dentry{}
	de.Inum = common.Inum(dec.GetInt())
	de.Ftype = common.FileType(dec.GetInt())
	de.Valid = dec.GetInt() != 0
	name := b[DENTRYSZ-common.MAXNAMELEN : DENTRYSZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	de.Name = string(name)
	return de
}

// DentriesPerBlock is how many entries fit in one block of blkSz bytes.
func DentriesPerBlock(blkSz uint64) uint64 {
	return blkSz / DENTRYSZ
}

// MaxDentries bounds the entries of one directory.
func MaxDentries(blkSz uint64) uint64 {
	return common.NDIRECT * DentriesPerBlock(blkSz)
}
