package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(512), Min(512, 4096))
	assert.Equal(uint64(512), Min(4096, 512))
}

func TestRoundUp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(64), RoundUp(512, 8), "inode bitmap bytes")
	assert.Equal(uint64(1), RoundUp(1, 8))
	assert.Equal(uint64(0), RoundUp(0, 8))
	assert.Equal(uint64(5), RoundUp(1024*4+1, 1024), "round up by sz-1")
}

// Windows over [off, off+sz) in 1024-byte blocks.
func TestAlign(t *testing.T) {
	for _, c := range []struct {
		off, sz, start, end uint64
	}{
		{0, 1, 0, 1024},
		{1000, 100, 0, 2048},
		{1024, 1024, 1024, 2048},
		{2047, 2, 1024, 3072},
	} {
		assert.Equal(t, c.start, AlignDown(c.off, 1024), "start of %d+%d", c.off, c.sz)
		assert.Equal(t, c.end, AlignUp(c.off+c.sz, 1024), "end of %d+%d", c.off, c.sz)
	}
}

func TestSumOverflows(t *testing.T) {
	assert := assert.New(t)
	assert.False(SumOverflows(1<<64-2, 1))
	assert.False(SumOverflows(1<<32, 1<<32))
	assert.True(SumOverflows(1<<64-1, 1))
	assert.True(SumOverflows(1<<63, 1<<63))
}
