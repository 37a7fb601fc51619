// Package fuse serves a mounted newfs volume through the kernel FUSE driver.
//
// Every node is addressed by its path from the mount root; each request
// resolves the path against the volume afresh. Requests arrive on many
// goroutines and are serialized by a single mutex.
package fuse

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mit-pdos/go-newfs/fs"
)

const DefaultFsName = "newfs"

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the volume is mounted. It is
	// created if it does not exist.
	Mountpoint string

	// Fs is the mounted volume to serve. The caller unmounts it after the
	// server exits.
	Fs *fs.Fs

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// FsName shows up as the source in /proc/mounts. Empty uses
	// DefaultFsName.
	FsName string

	// Logger receives diagnostic messages. If nil, errors go to stderr.
	Logger *slog.Logger
}

type volume struct {
	mu     sync.Mutex
	fs     *fs.Fs
	logger *slog.Logger
}

// Mount serves options.Fs at options.Mountpoint. The caller must call
// Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Fs == nil {
		return nil, fmt.Errorf("volume is required")
	}
	if options.FsName == "" {
		options.FsName = DefaultFsName
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	vol := &volume{fs: options.Fs, logger: options.Logger}
	root := &node{vol: vol}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.FsName,
			Name:       "newfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("newfs mounted", "mountpoint", options.Mountpoint, "fsname", options.FsName)
	return server, nil
}
