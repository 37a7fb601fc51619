package disk

// Block is one device I/O unit worth of bytes
type Block = []byte

// DefaultUnitSize is the I/O unit assumed for regular image files, which have
// no native sector size to query.
const DefaultUnitSize uint64 = 512

// Disk provides access to a device addressed in native I/O units
type Disk interface {
	// Read reads an I/O unit by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// ReadTo reads the unit at a and stores the result in b
	//
	// Expects a < Size() and len(b) == UnitSize().
	ReadTo(a uint64, b Block) error

	// Write updates an I/O unit by address
	//
	// Expects a < Size() and len(v) == UnitSize().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in units
	Size() (uint64, error)

	// UnitSize reports the native I/O unit, in bytes
	UnitSize() uint64

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

// SizeBytes reports the device size in bytes.
func SizeBytes(d Disk) (uint64, error) {
	n, err := d.Size()
	if err != nil {
		return 0, err
	}
	return n * d.UnitSize(), nil
}
