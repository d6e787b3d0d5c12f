// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package engine implements the storage backends of the block cache.
//
// An engine stores whole blocks. Callers hand it CacheKeys whose range lies within a single block; the
// engine merges partial writes into the block, decides which tier holds it and evicts when a tier is full.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/blockcache/pkg/iobuf"
	"github.com/azure/blockcache/pkg/metrics"
)

// Kind selects an engine implementation.
type Kind string

const (
	// KindMemory is a memory only engine with a plain recency list.
	KindMemory Kind = "memory"

	// KindHybrid uses memory as a hot tier and disk paths as a second tier.
	KindHybrid Kind = "hybrid"

	// KindLFU is a memory only engine with frequency based admission and eviction.
	KindLFU Kind = "lfu"
)

// ParseKind resolves an engine name. Empty selects the hybrid engine.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(KindHybrid):
		return KindHybrid, nil
	case string(KindMemory):
		return KindMemory, nil
	case string(KindLFU):
		return KindLFU, nil
	default:
		return "", fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, name)
	}
}

// CacheKey identifies a byte range of a named object.
type CacheKey struct {
	ID     string
	Offset int64
	Length int64
}

// DiskSpace is a directory the cache may use and the number of bytes it may store there.
type DiskSpace struct {
	Path string `toml:"path"`
	Size int64  `toml:"size"`
}

// Config is the configuration of an engine.
type Config struct {
	// MemSpaceSize is the memory tier quota in bytes.
	MemSpaceSize int64

	// DiskSpaces are the disk tiers. Only used by the hybrid engine.
	DiskSpaces []DiskSpace

	// BlockSize is the size of a block in bytes.
	BlockSize int64

	// MaxConcurrentInserts bounds the number of concurrent writes. 0 means unlimited.
	MaxConcurrentInserts int64

	// InsertionPoint is the fraction of the recency list where new blocks are inserted.
	InsertionPoint float64

	// Metrics receives cache events. Optional.
	Metrics metrics.Metrics

	// Registry tracks disk path ownership. Defaults to DefaultRegistry.
	Registry *Registry
}

// Stats is a point in time snapshot of an engine.
type Stats struct {
	MemBlocks  int
	MemBytes   int64
	DiskBlocks int
	DiskBytes  int64
	Hits       int64
	Misses     int64
	Evictions  int64
	Rejects    int64
}

// Engine is a cache storage backend.
type Engine interface {
	// Init validates the configuration and acquires tier resources.
	Init(ctx context.Context, cfg Config) error

	// Write stores data for the range of key. The range must lie within one block.
	Write(ctx context.Context, key CacheKey, data *iobuf.Buffer, overwrite bool) error

	// Read copies the range of key into dest and returns the number of bytes read.
	Read(ctx context.Context, key CacheKey, dest []byte) (int, error)

	// Remove drops the block holding the range of key.
	Remove(ctx context.Context, key CacheKey) error

	// Shutdown releases tier resources. The engine cannot be used afterwards.
	Shutdown(ctx context.Context)

	// Status returns the first fatal fault observed, if any.
	Status() error

	// Stats returns a snapshot of the engine.
	Stats() Stats
}

// New creates an engine of the given kind. The engine must be initialized before use.
func New(kind Kind) (Engine, error) {
	switch kind {
	case KindMemory:
		return &memoryEngine{tiered: newTiered(kind)}, nil
	case KindHybrid:
		return newTiered(kind), nil
	case KindLFU:
		return &lfuEngine{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, kind)
	}
}

// validateKey checks that the range of key lies within one block.
func validateKey(key CacheKey, blockSize int64) (blockKey, int64, error) {
	if key.Offset < 0 || key.Length <= 0 {
		return blockKey{}, 0, fmt.Errorf("%w: invalid range, offset: %d, length: %d", ErrInvalidArgument, key.Offset, key.Length)
	}

	aligned := key.Offset / blockSize * blockSize
	if key.Offset+key.Length > aligned+blockSize {
		return blockKey{}, 0, fmt.Errorf("%w: range [%d, %d) crosses a block boundary", ErrInvalidArgument, key.Offset, key.Offset+key.Length)
	}
	return blockKey{id: key.ID, offset: aligned}, key.Offset - aligned, nil
}

// validateCommon checks the settings shared by all engines.
func validateCommon(cfg Config) error {
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidConfig, cfg.BlockSize)
	}
	if cfg.MemSpaceSize < 0 {
		return fmt.Errorf("%w: memory space size must not be negative, got %d", ErrInvalidConfig, cfg.MemSpaceSize)
	}
	if cfg.MaxConcurrentInserts < 0 {
		return fmt.Errorf("%w: max concurrent inserts must not be negative, got %d", ErrInvalidConfig, cfg.MaxConcurrentInserts)
	}
	if cfg.InsertionPoint < 0 || cfg.InsertionPoint > 1 {
		return fmt.Errorf("%w: lru insertion point must be within [0, 1], got %v", ErrInvalidConfig, cfg.InsertionPoint)
	}
	return nil
}
