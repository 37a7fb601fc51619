// Package config loads the settings of the newfs binary from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Device is the block device or image file holding the volume.
	Device string `yaml:"device"`

	// Mountpoint is where the volume is served over FUSE.
	Mountpoint string `yaml:"mountpoint"`

	AllowOther bool `yaml:"allow_other"`

	// Debug is the verbosity of the engine's debug trace; 0 is silent.
	Debug uint64 `yaml:"debug"`

	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	FsName string `yaml:"fsname"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		FsName:   "newfs",
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Validate checks the settings needed to serve a volume. dumpOnly relaxes
// the mountpoint requirement.
func (c *Config) Validate(dumpOnly bool) error {
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if c.Mountpoint == "" && !dumpOnly {
		return fmt.Errorf("mountpoint is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}
