// newfs serves a newfs volume over FUSE.
//
// The device may be a block device or a regular image file. A device without
// a newfs superblock is formatted on first mount. The volume is flushed when
// the mount is torn down (fusermount -u, SIGINT or SIGTERM).
//
// With --dump the volume is mounted, its layout and bitmaps are printed, and
// the program exits without serving anything.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mit-pdos/go-newfs/config"
	"github.com/mit-pdos/go-newfs/fs"
	"github.com/mit-pdos/go-newfs/fuse"
	"github.com/mit-pdos/go-newfs/util"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var dump bool
	cfg := config.Default()

	flagSet := pflag.NewFlagSet("newfs", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML config file; flags override its values")
	flagSet.StringVar(&cfg.Device, "device", "", "block device or image file holding the volume")
	flagSet.StringVar(&cfg.Mountpoint, "mountpoint", "", "directory to serve the volume at")
	flagSet.Uint64Var(&cfg.Debug, "debug", 0, "engine trace verbosity (0 is off)")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	flagSet.BoolVar(&cfg.AllowOther, "allow-other", false, "let other users access the mount")
	flagSet.StringVar(&cfg.FsName, "fsname", cfg.FsName, "source name shown in /proc/mounts")
	flagSet.BoolVar(&dump, "dump", false, "print the layout and bitmaps, then exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if configPath != "" {
		fileCfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		overrideFromFlags(flagSet, fileCfg, cfg)
		cfg = fileCfg
	}
	if err := cfg.Validate(dump); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	util.Debug = cfg.Debug

	vol, err := fs.MountDevice(fs.Options{Device: cfg.Device})
	if err != nil {
		return fmt.Errorf("mounting %s: %w", cfg.Device, err)
	}
	logger.Info("volume mounted", "device", cfg.Device, "formatted", vol.Fresh())

	if dump {
		derr := vol.DumpMaps(os.Stdout)
		if err := vol.Unmount(); err != nil {
			return err
		}
		return derr
	}

	server, err := fuse.Mount(fuse.Options{
		Mountpoint: cfg.Mountpoint,
		Fs:         vol,
		AllowOther: cfg.AllowOther,
		FsName:     cfg.FsName,
		Logger:     logger,
	})
	if err != nil {
		if uerr := vol.Unmount(); uerr != nil {
			logger.Error("unmounting volume", "error", uerr)
		}
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Info("shutting down", "signal", sig.String())
		if err := server.Unmount(); err != nil {
			logger.Error("unmounting FUSE server", "error", err)
		}
	}()

	server.Wait()
	signal.Stop(signals)
	if err := vol.Unmount(); err != nil {
		return fmt.Errorf("flushing %s: %w", cfg.Device, err)
	}
	logger.Info("volume unmounted", "device", cfg.Device)
	return nil
}

// overrideFromFlags copies every flag the user set from flagCfg into dst.
func overrideFromFlags(flagSet *pflag.FlagSet, dst *config.Config, flagCfg *config.Config) {
	flagSet.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "device":
			dst.Device = flagCfg.Device
		case "mountpoint":
			dst.Mountpoint = flagCfg.Mountpoint
		case "debug":
			dst.Debug = flagCfg.Debug
		case "log-level":
			dst.LogLevel = flagCfg.LogLevel
		case "allow-other":
			dst.AllowOther = flagCfg.AllowOther
		case "fsname":
			dst.FsName = flagCfg.FsName
		}
	})
}
