// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/azure/blockcache/internal/config"
	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, size int) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "source")
	require.NoError(t, os.WriteFile(p, bytes.Repeat([]byte("0123456789abcdef"), size/16), 0644))
	return p
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.BlockSize = 4096
	cfg.MemSpaceSize = 16 * 4096
	cfg.DiskPaths = filepath.Join(t.TempDir(), "disk")
	cfg.DiskSpaceSize = 64 * 4096
	return cfg
}

func TestLoadConfigOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bc.toml", []byte("engine = \"lfu\"\nblock_size = \"4KiB\"\n[log]\nlevel = \"warn\"\n"), 0644))

	cfg, err := loadConfig(fs, &Arguments{Config: "/bc.toml", MemSpaceSize: "2MiB", LogLevel: "debug"})
	require.NoError(t, err)
	require.Equal(t, "lfu", cfg.Engine)
	require.Equal(t, config.Size(4096), cfg.BlockSize)
	require.Equal(t, config.Size(2<<20), cfg.MemSpaceSize)
	require.Equal(t, "debug", cfg.Log.Level)

	cfg, err = loadConfig(fs, &Arguments{Engine: "memory"})
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Engine)
	require.Equal(t, config.Default().BlockSize, cfg.BlockSize)

	_, err = loadConfig(fs, &Arguments{BlockSize: "huge"})
	require.ErrorIs(t, err, blockcache.ErrInvalidConfig)

	_, err = loadConfig(fs, &Arguments{Config: "/missing.toml"})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadCommand(t *testing.T) {
	src := writeSource(t, 32*4096)
	args := &Arguments{Read: &ReadCmd{Source: src, Passes: 2}, PrefetchWorkers: 0, Report: true}

	require.NoError(t, run(context.Background(), args, testConfig(t)))
}

func TestBenchCommand(t *testing.T) {
	src := writeSource(t, 32*4096)
	args := &Arguments{Bench: &BenchCmd{Source: src, Workers: 4, Reads: 50, ReadSize: "6KiB"}, PrefetchWorkers: 2}

	cfg := testConfig(t)
	cfg.Engine = "memory"
	cfg.DiskPaths = ""
	require.NoError(t, run(context.Background(), args, cfg))
}

func TestBenchCommandInvalid(t *testing.T) {
	src := writeSource(t, 4096)
	args := &Arguments{Bench: &BenchCmd{Source: src, Workers: 0, Reads: 50, ReadSize: "4KiB"}}

	require.Error(t, run(context.Background(), args, testConfig(t)))
}

func TestReadCommandMissingSource(t *testing.T) {
	args := &Arguments{Read: &ReadCmd{Source: filepath.Join(t.TempDir(), "missing"), Passes: 1}}

	require.ErrorIs(t, run(context.Background(), args, testConfig(t)), os.ErrNotExist)
}

func TestParsePathsCommand(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "a")

	require.NoError(t, run(context.Background(), &Arguments{ParsePaths: &ParsePathsCmd{Paths: ok}}, config.Default()))
	require.Error(t, run(context.Background(), &Arguments{ParsePaths: &ParsePathsCmd{Paths: ok + ";relative"}}, config.Default()))
}

func TestUnknownSubcommand(t *testing.T) {
	require.Error(t, run(context.Background(), &Arguments{}, config.Default()))
}

func TestIsURL(t *testing.T) {
	require.True(t, isURL("https://example.com/blob"))
	require.True(t, isURL("http://127.0.0.1:5000/data"))
	require.False(t, isURL("/var/data/blob"))
}
