package alloc

import (
	"github.com/mit-pdos/go-newfs/util"
)

// Alloc uses a bit map to allocate and free numbers. Bit 0 of byte 0
// corresponds to number 0, bit 1 to 1, and so on. Only the first max numbers
// are handed out; the rest of the bitmap is padding up to a block boundary.
type Alloc struct {
	bitmap []byte
	max    uint64
}

// MkAlloc wraps a bitmap read from disk. The Alloc mutates bitmap in place.
func MkAlloc(bitmap []byte, max uint64) *Alloc {
	if uint64(len(bitmap))*8 < max {
		panic("MkAlloc: bitmap too small")
	}
	a := &Alloc{
		bitmap: bitmap,
		max:    max,
	}
	return a
}

// MkMaxAlloc returns an empty allocator for max numbers.
func MkMaxAlloc(max uint64) *Alloc {
	return MkAlloc(make([]byte, util.RoundUp(max, 8)), max)
}

func (a *Alloc) isSet(n uint64) bool {
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

func (a *Alloc) setBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

func (a *Alloc) clearBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

// AllocNum returns the lowest free number and marks it used. The second
// result is false when every number below max is taken.
func (a *Alloc) AllocNum() (uint64, bool) {
	for byt := uint64(0); byt*8 < a.max; byt++ {
		if a.bitmap[byt] == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			num := byt*8 + bit
			if num >= a.max {
				break
			}
			if !a.isSet(num) {
				a.setBit(num)
				util.DPrintf(10, "AllocNum: %d\n", num)
				return num, true
			}
		}
	}
	util.DPrintf(5, "AllocNum: full (%d)\n", a.max)
	return 0, false
}

// AllocN takes n numbers with successive AllocNum calls. If the bitmap runs
// out first, the numbers already taken are freed again and AllocN fails.
func (a *Alloc) AllocN(n uint64) ([]uint64, bool) {
	nums := make([]uint64, 0, n)
	for uint64(len(nums)) < n {
		num, ok := a.AllocNum()
		if !ok {
			for _, taken := range nums {
				a.FreeNum(taken)
			}
			return nil, false
		}
		nums = append(nums, num)
	}
	return nums, true
}

// FreeNum clears num. Freeing a free number is a no-op; the caller must not
// free a number that is still referenced.
func (a *Alloc) FreeNum(num uint64) {
	if num >= a.max {
		util.DPrintf(1, "FreeNum: %d out of range %d\n", num, a.max)
		return
	}
	util.DPrintf(10, "FreeNum: %d\n", num)
	a.clearBit(num)
}

func (a *Alloc) MarkUsed(num uint64) {
	if num >= a.max {
		panic("MarkUsed")
	}
	a.setBit(num)
}

func (a *Alloc) IsUsed(num uint64) bool {
	return num < a.max && a.isSet(num)
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

func (a *Alloc) NumUsed() uint64 {
	var count uint64
	for num := uint64(0); num < a.max; num += 8 {
		b := a.bitmap[num/8]
		if a.max-num < 8 {
			b = b & byte(1<<(a.max-num)-1)
		}
		count += popCnt(b)
	}
	return count
}

func (a *Alloc) NumFree() uint64 {
	return a.max - a.NumUsed()
}

func (a *Alloc) Max() uint64 {
	return a.max
}

// Bytes is the live bitmap, suitable for writing back to disk.
func (a *Alloc) Bytes() []byte {
	return a.bitmap
}
