// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package config loads block cache settings from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Size is a number of bytes. In TOML it is an integer or a string such as "64MiB" or "1 GB".
type Size int64

// UnmarshalText parses a humanized size.
func (s *Size) UnmarshalText(text []byte) error {
	v := strings.ReplaceAll(strings.TrimSpace(string(text)), "_", "")
	if v == "" {
		*s = 0
		return nil
	}

	n, err := humanize.ParseBytes(v)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", v, err)
	}
	*s = Size(n)
	return nil
}

// MarshalText formats the size with IEC units.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(strings.ReplaceAll(humanize.IBytes(uint64(s)), " ", "")), nil
}

// String returns the size with IEC units.
func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Metrics configures metrics collection.
type Metrics struct {
	// Addr is the address to serve /metrics on. Empty disables the endpoint.
	Addr   string `toml:"addr"`
	Prefix string `toml:"prefix"`
}

// Config is the content of a configuration file.
type Config struct {
	Engine               string  `toml:"engine"`
	BlockSize            Size    `toml:"block_size"`
	MemSpaceSize         Size    `toml:"mem_space_size"`
	MaxConcurrentInserts int64   `toml:"max_concurrent_inserts"`
	LRUInsertionPoint    float64 `toml:"lru_insertion_point"`
	DiskPaths            string  `toml:"disk_paths"`
	DiskSpaceSize        Size    `toml:"disk_space_size"`
	MaxExtents           int     `toml:"max_extents"`

	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`
}

// Default returns the configuration used for settings a file leaves out.
func Default() Config {
	return Config{
		Engine:               "hybrid",
		BlockSize:            1 << 20,
		MemSpaceSize:         64 << 20,
		MaxConcurrentInserts: 1024,
		LRUInsertionPoint:    0.5,
		MaxExtents:           blockcache.DefaultMaxExtents,
		Log:                  Log{Level: "info"},
		Metrics:              Metrics{Prefix: "blockcache"},
	}
}

// Load reads the configuration file at path on top of the defaults.
// Unknown keys are an error.
func Load(fs afero.Fs, path string) (Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes a TOML document on top of the defaults.
func Parse(b []byte) (Config, error) {
	c := Default()

	d := toml.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	if err := d.Decode(&c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("%w: line %d, column %d: %v", blockcache.ErrInvalidConfig, row, col, derr)
		}
		return Config{}, fmt.Errorf("%w: %w", blockcache.ErrInvalidConfig, err)
	}

	return c, nil
}

// Write stores the configuration at path.
func Write(fs afero.Fs, path string, c Config) error {
	b, err := toml.Marshal(&c)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, b, 0644)
}

// Options converts the configuration into cache options. Disk paths are parsed, and created if needed.
// If some disk paths are invalid, the options hold the valid ones and the error describes the rest.
func (c Config) Options() (blockcache.Options, error) {
	opts := blockcache.Options{
		Engine:               c.Engine,
		BlockSize:            int64(c.BlockSize),
		MemSpaceSize:         int64(c.MemSpaceSize),
		MaxConcurrentInserts: c.MaxConcurrentInserts,
		LRUInsertionPoint:    c.LRUInsertionPoint,
		MaxExtents:           c.MaxExtents,
	}

	if strings.TrimSpace(c.DiskPaths) == "" {
		return opts, nil
	}

	spaces, err := blockcache.ParseDiskSpaces(c.DiskPaths, int64(c.DiskSpaceSize))
	opts.DiskSpaces = spaces
	return opts, err
}

// Level returns the configured log level.
func (c Config) Level() (zerolog.Level, error) {
	if c.Log.Level == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: %w", blockcache.ErrInvalidConfig, err)
	}
	return l, nil
}
