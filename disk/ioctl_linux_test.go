package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openBlockDevice returns a read-only fd on the first block device with a
// nonzero size, or skips.
func openBlockDevice(t *testing.T) int {
	var paths []string
	for _, pat := range []string{"/dev/loop*", "/dev/vd*", "/dev/sd*", "/dev/nvme*n*"} {
		m, _ := filepath.Glob(pat)
		paths = append(paths, m...)
	}
	for _, p := range paths {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			continue
		}
		var stat unix.Stat_t
		if unix.Fstat(fd, &stat) == nil && stat.Mode&unix.S_IFMT == unix.S_IFBLK {
			if end, err := unix.Seek(fd, 0, unix.SEEK_END); err == nil && end > 0 {
				t.Cleanup(func() { unix.Close(fd) })
				return fd
			}
		}
		unix.Close(fd)
	}
	t.Skip("no readable block device")
	return -1
}

func TestQueryGeometry(t *testing.T) {
	fd := openBlockDevice(t)
	unit, size, err := queryGeometry(fd)
	require.NoError(t, err)
	end, err := unix.Seek(fd, 0, unix.SEEK_END)
	require.NoError(t, err)
	assert.Equal(t, uint64(end), size)
	assert.GreaterOrEqual(t, unit, uint64(512))
	assert.Equal(t, uint64(0), size%unit)
}

func TestBlockDevSizeNotADevice(t *testing.T) {
	d, err := NewFileDisk(filepath.Join(t.TempDir(), "img"), 512, 8)
	require.NoError(t, err)
	defer d.Close()
	_, err = blockDevSize(d.fd)
	assert.Error(t, err)
}
