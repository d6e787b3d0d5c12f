// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

//go:build linux || darwin || freebsd

package engine

import "golang.org/x/sys/unix"

// capacity returns the total size in bytes of the filesystem holding path.
func capacity(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Blocks) * int64(st.Bsize), nil
}
