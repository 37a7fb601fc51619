package fs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goosedisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-newfs/buf"
	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/disk"
	"github.com/mit-pdos/go-newfs/super"
)

const unit uint64 = 512
const devSz uint64 = 4 << 20

func mkMemDisk() *disk.MemDisk {
	return disk.NewMemDisk(unit, devSz/unit)
}

func mount(t *testing.T, d disk.Disk) *Fs {
	fs, err := Mount(d)
	require.NoError(t, err)
	return fs
}

func remount(t *testing.T, fs *Fs, d disk.Disk) *Fs {
	require.NoError(t, fs.Unmount())
	return mount(t, d)
}

func TestMountFreshThenRemount(t *testing.T) {
	assert := assert.New(t)
	d := mkMemDisk()
	fs := mount(t, d)
	assert.True(fs.Fresh())
	assert.True(fs.Mounted())
	require.NoError(t, fs.Unmount())
	assert.False(fs.Mounted())
	assert.NoError(fs.Unmount(), "second unmount is a no-op")

	fs = mount(t, d)
	assert.False(fs.Fresh(), "magic found")
	attr, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.Equal(common.ROOTINUM, attr.Inum)
	assert.Equal(common.DIR, attr.Ftype)
	require.NoError(t, fs.Unmount())
}

func TestFreshFormatIsDurable(t *testing.T) {
	d := mkMemDisk()
	_ = mount(t, d)
	// never unmounted
	fs := mount(t, d)
	assert.False(t, fs.Fresh())
	st, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(t, st.Inodes-1, st.InodesFree)
}

func TestOpsWhenUnmounted(t *testing.T) {
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Unmount())
	assert.ErrorIs(t, fs.Mknod("/f"), common.ErrInvalid)
	_, err := fs.Getattr("/")
	assert.ErrorIs(t, err, common.ErrInvalid)
	assert.ErrorIs(t, fs.Sync(), common.ErrInvalid)
}

func TestMountTinyUnit(t *testing.T) {
	_, err := Mount(disk.NewMemDisk(256, 1<<14))
	assert.ErrorIs(t, err, common.ErrInvalid)
}

func TestMountCorruptSuper(t *testing.T) {
	d := mkMemDisk()
	require.NoError(t, mount(t, d).Unmount())

	dev, err := buf.MkDev(d, 2*unit)
	require.NoError(t, err)
	sb, fresh, err := super.Load(dev, unit, devSz)
	require.NoError(t, err)
	require.False(t, fresh)
	sb.NInode = 1 << 20
	require.NoError(t, sb.Flush(dev))

	_, err = Mount(d)
	assert.ErrorIs(t, err, common.ErrInvalid)
}

func TestMountTooSmall(t *testing.T) {
	_, err := Mount(disk.NewMemDisk(unit, 64))
	assert.ErrorIs(t, err, common.ErrNoSpace)
}

func TestMountReadError(t *testing.T) {
	cd := disk.MkCountingDisk(mkMemDisk())
	cd.FailReads = true
	_, err := Mount(cd)
	assert.ErrorIs(t, err, common.ErrIO)
}

func TestMountWriteError(t *testing.T) {
	cd := disk.MkCountingDisk(mkMemDisk())
	cd.FailWrites = true
	_, err := Mount(cd)
	assert.ErrorIs(t, err, common.ErrIO)
}

func TestPersistAcrossRemount(t *testing.T) {
	assert := assert.New(t)
	d := mkMemDisk()
	fs := mount(t, d)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Mknod("/a/b"))
	data := []byte("hello newfs")
	n, err := fs.Write("/a/b", 3, data)
	require.NoError(t, err)
	assert.Equal(uint64(len(data)), n)

	fs = remount(t, fs, d)
	got, err := fs.Read("/a/b", 0, 100)
	require.NoError(t, err)
	assert.Equal(append([]byte{0, 0, 0}, data...), got)
	attr, err := fs.Getattr("/a/b")
	require.NoError(t, err)
	assert.Equal(uint64(3+len(data)), attr.Size)
	st, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(uint64(3+len(data)), st.Usage)
	require.NoError(t, fs.Unmount())
}

func TestSyncWhileMounted(t *testing.T) {
	d := mkMemDisk()
	fs := mount(t, d)
	require.NoError(t, fs.Mknod("/f"))
	_, err := fs.Write("/f", 0, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, fs.Sync())

	// a second session sees the flushed state without an unmount
	other := mount(t, d)
	got, err := other.Read("/f", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestCreateErrors(t *testing.T) {
	assert := assert.New(t)
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mknod("/f"))
	assert.ErrorIs(fs.Mknod("/f"), common.ErrExists)
	assert.ErrorIs(fs.Mkdir("/"), common.ErrExists)
	assert.ErrorIs(fs.Mknod("/missing/x"), common.ErrNotFound)
	assert.ErrorIs(fs.Mknod("/f/x"), common.ErrNotDir)
	assert.ErrorIs(fs.Mknod("/"+strings.Repeat("n", 129)), common.ErrNameTooLong)
	assert.NoError(fs.Mknod("/" + strings.Repeat("n", 128)))
}

func TestDirectoryEntryCap(t *testing.T) {
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mkdir("/d"))
	max := fs.MaxEntries()
	for i := uint64(0); i < max; i++ {
		require.NoError(t, fs.Mknod("/d/"+strings.Repeat("x", int(i)+1)))
	}
	st, err := fs.Statfs()
	require.NoError(t, err)
	assert.ErrorIs(t, fs.Mknod("/d/full"), common.ErrNoSpace)
	st2, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(t, st, st2, "failed create leaks nothing")
}

func TestCapacityBoundary(t *testing.T) {
	assert := assert.New(t)
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mknod("/f"))
	max := common.NDIRECT * 2 * unit
	full := bytes.Repeat([]byte{1}, int(max))
	_, err := fs.Write("/f", 0, full)
	require.NoError(t, err)
	_, err = fs.Write("/f", max, []byte{2})
	assert.ErrorIs(err, common.ErrFileTooBig)
	assert.ErrorIs(fs.Truncate("/f", max+1), common.ErrFileTooBig)
	attr, err := fs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(max, attr.Size)
}

func TestTruncate(t *testing.T) {
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mknod("/f"))
	_, err := fs.Write("/f", 0, []byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, fs.Truncate("/f", 2))
	got, err := fs.Read("/f", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), got)
	require.NoError(t, fs.Mkdir("/d"))
	assert.ErrorIs(t, fs.Truncate("/d", 0), common.ErrIsDir)
}

func TestReaddir(t *testing.T) {
	assert := assert.New(t)
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mknod("/a"))
	require.NoError(t, fs.Mkdir("/b"))
	ents, err := fs.Readdir("/")
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal("b", ents[0].Name)
	assert.Equal(common.DIR, ents[0].Ftype)
	assert.Equal("a", ents[1].Name)

	_, err = fs.Readdir("/a")
	assert.ErrorIs(err, common.ErrNotDir)
	_, err = fs.Readdir("/nope")
	assert.ErrorIs(err, common.ErrNotFound)
}

func TestGetattr(t *testing.T) {
	assert := assert.New(t)
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.Mknod("/d/f"))
	attr, err := fs.Getattr("/d")
	require.NoError(t, err)
	assert.Equal(uint32(0o40777), attr.Mode)
	assert.Equal(uint64(2), attr.Nlink)
	attr, err = fs.Getattr("/d/f")
	require.NoError(t, err)
	assert.Equal(uint32(0o100777), attr.Mode)
	assert.Equal(uint64(1), attr.Nlink)
	assert.Equal(common.NDIRECT, attr.Blocks)
	assert.Equal(2*unit, attr.BlkSz)
	_, err = fs.Getattr("/d/f/g")
	assert.ErrorIs(err, common.ErrNotDir)
}

func TestRemoveRecursiveReusesInodes(t *testing.T) {
	assert := assert.New(t)
	d := mkMemDisk()
	fs := mount(t, d)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Mknod("/a/b"))
	require.NoError(t, fs.Mknod("/a/c"))
	b, err := fs.Getattr("/a/b")
	require.NoError(t, err)
	fs = remount(t, fs, d)

	before, err := fs.Statfs()
	require.NoError(t, err)
	require.NoError(t, fs.Remove("/a"))
	after, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(before.InodesFree+3, after.InodesFree)
	assert.Equal(before.BlocksFree+3*common.NDIRECT, after.BlocksFree)
	_, err = fs.Getattr("/a")
	assert.ErrorIs(err, common.ErrNotFound)

	require.NoError(t, fs.Mknod("/x"))
	require.NoError(t, fs.Mknod("/y"))
	y, err := fs.Getattr("/y")
	require.NoError(t, err)
	assert.Equal(b.Inum, y.Inum)

	fs = remount(t, fs, d)
	ents, err := fs.Readdir("/")
	require.NoError(t, err)
	assert.Len(ents, 2)
	assert.ErrorIs(fs.Remove("/"), common.ErrInvalid)
}

func TestUnlinkRmdir(t *testing.T) {
	assert := assert.New(t)
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.Mknod("/d/f"))
	assert.ErrorIs(fs.Unlink("/d"), common.ErrIsDir)
	assert.ErrorIs(fs.Rmdir("/d/f"), common.ErrNotDir)
	assert.ErrorIs(fs.Rmdir("/d"), common.ErrNotEmpty)
	assert.ErrorIs(fs.Rmdir("/"), common.ErrInvalid)
	assert.NoError(fs.Unlink("/d/f"))
	assert.NoError(fs.Rmdir("/d"))
	assert.ErrorIs(fs.Unlink("/d/f"), common.ErrNotFound)
}

func TestRename(t *testing.T) {
	assert := assert.New(t)
	d := mkMemDisk()
	fs := mount(t, d)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Mkdir("/b"))
	require.NoError(t, fs.Mknod("/a/f"))
	_, err := fs.Write("/a/f", 0, []byte("data"))
	require.NoError(t, err)

	require.NoError(t, fs.Rename("/a/f", "/b/g"))
	_, err = fs.Getattr("/a/f")
	assert.ErrorIs(err, common.ErrNotFound)
	got, err := fs.Read("/b/g", 0, 4)
	require.NoError(t, err)
	assert.Equal([]byte("data"), got)

	require.NoError(t, fs.Rename("/b", "/a/b"))
	fs = remount(t, fs, d)
	got, err = fs.Read("/a/b/g", 0, 4)
	require.NoError(t, err)
	assert.Equal([]byte("data"), got)
	require.NoError(t, fs.Unmount())
}

func TestRenameReplace(t *testing.T) {
	assert := assert.New(t)
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mknod("/f"))
	require.NoError(t, fs.Mknod("/g"))
	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.Mkdir("/e"))
	require.NoError(t, fs.Mkdir("/full"))
	require.NoError(t, fs.Mknod("/full/x"))
	_, err := fs.Write("/f", 0, []byte("f"))
	require.NoError(t, err)

	assert.ErrorIs(fs.Rename("/f", "/d"), common.ErrIsDir)
	assert.ErrorIs(fs.Rename("/d", "/f"), common.ErrNotDir)
	assert.ErrorIs(fs.Rename("/d", "/full"), common.ErrNotEmpty)
	assert.ErrorIs(fs.Rename("/d", "/d/sub"), common.ErrInvalid)
	assert.ErrorIs(fs.Rename("/", "/z"), common.ErrInvalid)

	st, err := fs.Statfs()
	require.NoError(t, err)
	require.NoError(t, fs.Rename("/f", "/g"))
	got, err := fs.Read("/g", 0, 1)
	require.NoError(t, err)
	assert.Equal([]byte("f"), got)
	require.NoError(t, fs.Rename("/d", "/e"))
	st2, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(st.InodesFree+2, st2.InodesFree)

	ents, err := fs.Readdir("/")
	require.NoError(t, err)
	var ns []string
	for _, e := range ents {
		ns = append(ns, e.Name)
	}
	assert.ElementsMatch([]string{"g", "e", "full"}, ns)
	assert.NoError(fs.Rename("/g", "/g"))
}

func TestDumpMaps(t *testing.T) {
	fs := mount(t, mkMemDisk())
	require.NoError(t, fs.Mknod("/f"))
	var out bytes.Buffer
	require.NoError(t, fs.DumpMaps(&out))
	s := out.String()
	assert.Contains(t, s, "block size 1.0 KiB")
	assert.Contains(t, s, "inode map:\n1 1 0 0 0 0 0 0 \t0 0 0 0 0 0 0 0 ")
	assert.Contains(t, s, "data map:\n1 1 1 1 1 1 1 1 \t1 1 1 1 0 0 0 0 ")
	assert.Contains(t, s, "2 of 512 used")
}

func TestMountGooseDisk(t *testing.T) {
	assert := assert.New(t)
	d := disk.FromGoose(goosedisk.NewMemDisk(1100))
	fs := mount(t, d)
	assert.True(fs.Fresh())
	require.NoError(t, fs.Mknod("/f"))
	_, err := fs.Write("/f", 8000, []byte("goose"))
	require.NoError(t, err)
	fs = remount(t, fs, d)
	got, err := fs.Read("/f", 8000, 5)
	require.NoError(t, err)
	assert.Equal([]byte("goose"), got)
	st, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(uint64(8192), st.BlkSz)
}

func TestMountDeviceImage(t *testing.T) {
	assert := assert.New(t)
	img := filepath.Join(t.TempDir(), "newfs.img")
	f, err := disk.NewFileDisk(img, unit, devSz/unit)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fs, err := MountDevice(Options{Device: img})
	require.NoError(t, err)
	require.NoError(t, fs.Mknod("/f"))
	_, err = fs.Write("/f", 0, []byte("on disk"))
	require.NoError(t, err)
	require.NoError(t, fs.Unmount())

	raw, err := os.ReadFile(img)
	require.NoError(t, err)
	sb := super.Decode(raw[:super.SUPERSZ])
	assert.Equal(common.MAGIC, sb.Magic)
	assert.Equal(uint64(7), sb.Usage)

	fs, err = MountDevice(Options{Device: img})
	require.NoError(t, err)
	got, err := fs.Read("/f", 0, 7)
	require.NoError(t, err)
	assert.Equal([]byte("on disk"), got)
	require.NoError(t, fs.Unmount())

	_, err = MountDevice(Options{Device: filepath.Join(t.TempDir(), "missing")})
	assert.Error(err)
}
