package disk

import "fmt"

// ErrOutOfBounds reports an access past the end of the device.
type ErrOutOfBounds struct {
	Addr uint64
	Size uint64
}

func (err ErrOutOfBounds) Error() string {
	return fmt.Sprintf("unit %d out of bounds (device has %d units)", err.Addr, err.Size)
}

// ErrBadLength reports a buffer that is not exactly one unit long.
type ErrBadLength struct {
	Len  int
	Unit uint64
}

func (err ErrBadLength) Error() string {
	return fmt.Sprintf("buffer is %d bytes, not one %d-byte unit", err.Len, err.Unit)
}

func checkAccess(a uint64, n uint64, buf Block, unit uint64) error {
	if uint64(len(buf)) != unit {
		return ErrBadLength{Len: len(buf), Unit: unit}
	}
	if a >= n {
		return ErrOutOfBounds{Addr: a, Size: n}
	}
	return nil
}
