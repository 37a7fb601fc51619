package disk

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goosedisk "github.com/tchajed/goose/machine/disk"
)

func fill(sz uint64, b byte) Block {
	return bytes.Repeat([]byte{b}, int(sz))
}

func testReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)
	unit := d.UnitSize()
	n, err := d.Size()
	require.NoError(t, err)

	assert.NoError(d.Write(0, fill(unit, 0xAA)))
	assert.NoError(d.Write(n-1, fill(unit, 0x55)))

	b, err := d.Read(0)
	assert.NoError(err)
	assert.Equal(fill(unit, 0xAA), b)

	b = make(Block, unit)
	assert.NoError(d.ReadTo(n-1, b))
	assert.Equal(fill(unit, 0x55), b)

	var oob ErrOutOfBounds
	assert.ErrorAs(d.Write(n, fill(unit, 1)), &oob)
	assert.Equal(n, oob.Addr)
	_, err = d.Read(n)
	assert.ErrorAs(err, &oob)

	var bad ErrBadLength
	assert.ErrorAs(d.Write(0, fill(unit-1, 1)), &bad)

	assert.NoError(d.Barrier())
	assert.NoError(d.Close())
}

func TestMemDisk(t *testing.T) {
	testReadWrite(t, NewMemDisk(512, 16))
}

func TestGooseDisk(t *testing.T) {
	d := FromGoose(goosedisk.NewMemDisk(8))
	assert.Equal(t, goosedisk.BlockSize, d.UnitSize())
	testReadWrite(t, d)
}

func TestFileDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	d, err := NewFileDisk(path, 512, 32)
	require.NoError(t, err)
	testReadWrite(t, d)
}

func TestOpenImageProbesSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	d, err := NewFileDisk(path, 512, 64)
	require.NoError(t, err)
	require.NoError(t, d.Write(3, fill(512, 7)))
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, DefaultUnitSize, d.UnitSize())
	sz, err := SizeBytes(d)
	assert.NoError(t, err)
	assert.Equal(t, uint64(64*512), sz)

	b, err := d.Read(3)
	assert.NoError(t, err)
	assert.Equal(t, fill(512, 7), b)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
