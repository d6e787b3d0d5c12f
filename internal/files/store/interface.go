// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package store serves remote files through a block cache.
package store

import (
	"context"

	"github.com/azure/blockcache/internal/remote"
)

// FilesStore describes a store for files.
type FilesStore interface {
	// Open opens the named file, backed by r on cache misses, and starts prefetching it.
	Open(ctx context.Context, name string, r remote.Reader) (File, error)

	// Close stops prefetching. Files opened from the store remain readable.
	Close()
}

// File is an abstraction for a file that can be read from this store.
// It is similar to os.File.
type File interface {
	// Seek sets the current file offset.
	Seek(offset int64, whence int) (int64, error)

	// Fstat returns the size of the file.
	Fstat() (int64, error)

	// Read reads up to len(p) bytes into p. It returns the number of bytes read (0 <= n <= len(p)) and any error encountered.
	Read(p []byte) (n int, err error)

	// ReadAt reads len(p) bytes from the File starting at byte offset off. It returns the number of bytes read and the error, if any.
	ReadAt(buff []byte, off int64) (int, error)
}

var (
	// PrefetchWorkers is the number of workers that will be used to prefetch files.
	// To disable prefetch, set this to 0.
	PrefetchWorkers = 50

	// MaxFiles is the number of file sizes the store remembers.
	MaxFiles = 100_000
)
