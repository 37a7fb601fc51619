package fs

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mit-pdos/go-newfs/alloc"
)

const dumpRowBytes = 4

// DumpMaps prints the layout and both bitmaps, four bytes of bits per row,
// lowest number first.
func (fs *Fs) DumpMaps(w io.Writer) error {
	if err := fs.checkMounted(); err != nil {
		return err
	}
	sb := fs.sb
	var out strings.Builder
	fmt.Fprintf(&out, "block size %s, volume %s, in use %s\n",
		humanize.IBytes(sb.BlkSz),
		humanize.IBytes(sb.DataOff+sb.NData*sb.BlkSz),
		humanize.IBytes(sb.Usage))
	fmt.Fprintf(&out, "inode table at %s: %s of %s used\n",
		humanize.IBytes(sb.InodeOff),
		humanize.Comma(int64(fs.ialloc.NumUsed())), humanize.Comma(int64(sb.NInode)))
	fmt.Fprintf(&out, "data region at %s: %s of %s blocks used\n",
		humanize.IBytes(sb.DataOff),
		humanize.Comma(int64(fs.balloc.NumUsed())), humanize.Comma(int64(sb.NData)))
	out.WriteString("inode map:\n")
	dumpBits(&out, fs.ialloc)
	out.WriteString("data map:\n")
	dumpBits(&out, fs.balloc)
	_, err := io.WriteString(w, out.String())
	return err
}

func dumpBits(sb *strings.Builder, a *alloc.Alloc) {
	bm := a.Bytes()
	n := (a.Max() + 7) / 8
	for row := uint64(0); row < n; row += dumpRowBytes {
		for i := row; i < row+dumpRowBytes && i < n; i++ {
			if i > row {
				sb.WriteByte('\t')
			}
			for bit := uint(0); bit < 8; bit++ {
				fmt.Fprintf(sb, "%d ", (bm[i]>>bit)&1)
			}
		}
		sb.WriteByte('\n')
	}
}
