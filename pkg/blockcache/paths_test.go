// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package blockcache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCachePaths(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	paths, err := ParseCachePaths(fmt.Sprintf("%s/block_disk_cache/cache1;%s/block_disk_cache/cache2", dir, dir))
	require.NoError(t, err)
	require.Equal(t, []string{dir + "/block_disk_cache/cache1", dir + "/block_disk_cache/cache2"}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	paths, err = ParseCachePaths(fmt.Sprintf(" %s/block_disk_cache/cache3 ; %s/block_disk_cache/cache4/ ", dir, dir))
	require.NoError(t, err)
	require.Equal(t, []string{dir + "/block_disk_cache/cache3", dir + "/block_disk_cache/cache4"}, paths)

	paths, err = ParseCachePaths(fmt.Sprintf("//;%s/block_disk_cache/cache4 ", dir))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Equal(t, []string{dir + "/block_disk_cache/cache4"}, paths)

	// A path under a regular file cannot be created, and '+' is not a portable filename character.
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	paths, err = ParseCachePaths(fmt.Sprintf(" %s/cache5;%s/+/cache6", file, dir))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Empty(t, paths)
	_, err = os.Stat(filepath.Join(dir, "+"))
	require.True(t, os.IsNotExist(err), "invalid path must not be created")
}

func TestParseCachePathsRejects(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		valid int
	}{
		{"relative", "relative/cache", 0},
		{"empty entry", dir + "/a;;" + dir + "/b", 2},
		{"empty component", dir + "//a", 0},
		{"space in component", dir + "/a b", 0},
		{"duplicate", dir + "/a;" + dir + "/a/", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := ParseCachePaths(tt.input)
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.Len(t, paths, tt.valid)
		})
	}
}

func TestParseCachePathsEmpty(t *testing.T) {
	paths, err := ParseCachePaths("  ")
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestParseDiskSpaces(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	spaces, err := ParseDiskSpaces(dir+"/c1;"+dir+"/c2", 1<<20)
	require.NoError(t, err)
	require.Equal(t, []DiskSpace{{Path: dir + "/c1", Size: 1 << 20}, {Path: dir + "/c2", Size: 1 << 20}}, spaces)

	spaces, err = ParseDiskSpaces("rel;"+dir+"/c3", 10)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Equal(t, []DiskSpace{{Path: dir + "/c3", Size: 10}}, spaces)
}
