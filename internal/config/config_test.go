// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	d1 := filepath.Join(dir, "bc1")
	d2 := filepath.Join(dir, "bc2")

	fs := afero.NewMemMapFs()
	doc := `
engine = "memory"
block_size = "64KiB"
mem_space_size = 1048576
max_concurrent_inserts = 16
lru_insertion_point = 0.25
disk_paths = "` + d1 + `;` + d2 + `"
disk_space_size = "10 MB"

[log]
level = "debug"

[metrics]
addr = ":9090"
`
	require.NoError(t, afero.WriteFile(fs, "/etc/blockcache.toml", []byte(doc), 0644))

	c, err := Load(fs, "/etc/blockcache.toml")
	require.NoError(t, err)
	require.Equal(t, "memory", c.Engine)
	require.Equal(t, Size(64*1024), c.BlockSize)
	require.Equal(t, Size(1<<20), c.MemSpaceSize)
	require.Equal(t, int64(16), c.MaxConcurrentInserts)
	require.Equal(t, 0.25, c.LRUInsertionPoint)
	require.Equal(t, Size(10_000_000), c.DiskSpaceSize)
	require.Equal(t, ":9090", c.Metrics.Addr)
	require.Equal(t, "blockcache", c.Metrics.Prefix)
	require.Equal(t, blockcache.DefaultMaxExtents, c.MaxExtents)

	l, err := c.Level()
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, l)

	opts, err := c.Options()
	require.NoError(t, err)
	require.Equal(t, int64(64*1024), opts.BlockSize)
	require.Equal(t, []blockcache.DiskSpace{{Path: d1, Size: 10_000_000}, {Path: d2, Size: 10_000_000}}, opts.DiskSpaces)

	for _, d := range []string{d1, d2} {
		st, err := os.Stat(d)
		require.NoError(t, err)
		require.True(t, st.IsDir())
	}
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), c)

	opts, err := c.Options()
	require.NoError(t, err)
	require.Empty(t, opts.DiskSpaces)
	require.Equal(t, "hybrid", opts.Engine)
	require.Equal(t, int64(1<<20), opts.BlockSize)
	require.Equal(t, 0.5, opts.LRUInsertionPoint)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", `block_sise = "1MiB"`},
		{"bad size", `block_size = "lots"`},
		{"bad syntax", `engine = `},
		{"wrong type", `max_concurrent_inserts = "many"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, blockcache.ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nope.toml")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := Default()
	c.Engine = "lfu"
	c.MemSpaceSize = 3 << 30

	require.NoError(t, Write(fs, "/c.toml", c))

	got, err := Load(fs, "/c.toml")
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestLevel(t *testing.T) {
	c := Default()
	c.Log.Level = "WARN"
	l, err := c.Level()
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, l)

	c.Log.Level = "loud"
	_, err = c.Level()
	require.ErrorIs(t, err, blockcache.ErrInvalidConfig)
}

func TestOptionsInvalidDiskPaths(t *testing.T) {
	dir := t.TempDir()
	c := Default()
	c.DiskPaths = filepath.Join(dir, "ok") + ";relative/path"
	c.DiskSpaceSize = 1 << 20

	opts, err := c.Options()
	require.Error(t, err)
	require.Equal(t, []blockcache.DiskSpace{{Path: filepath.Join(dir, "ok"), Size: 1 << 20}}, opts.DiskSpaces)
}
