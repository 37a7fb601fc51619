package common

const (
	// MAGIC marks a formatted volume in the first superblock field.
	MAGIC uint64 = 0x20111427

	NDIRECT    uint64 = 6   // direct block pointers per inode
	MAXNAMELEN uint64 = 128 // on-disk name field, null-padded

	NINODE       uint64 = 512 // inode table slots, one block each
	NINODEBITMAP uint64 = 1
	NDATABITMAP  uint64 = 1
	NSUPER       uint64 = 1

	// MINIOSZ is the smallest device I/O unit we accept; a block is two units.
	MINIOSZ uint64 = 512

	DEFAULTPERM uint32 = 0777
)

type Inum uint64
type Bnum = uint64

const ROOTINUM Inum = 0

// FileType is the type tag shared by inodes and directory entries.
type FileType uint64

const (
	REG FileType = 0
	DIR FileType = 1
)

func (t FileType) String() string {
	switch t {
	case REG:
		return "reg"
	case DIR:
		return "dir"
	}
	return "unknown"
}
