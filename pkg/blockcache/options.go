// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package blockcache

import (
	"fmt"

	"github.com/azure/blockcache/internal/engine"
	"github.com/azure/blockcache/pkg/math"
	"github.com/azure/blockcache/pkg/metrics"
)

// DiskSpace is a directory the cache may use and the number of bytes it may store there.
type DiskSpace = engine.DiskSpace

// Stats is a point in time snapshot of a cache.
type Stats = engine.Stats

// DefaultMaxExtents is the default number of identifiers whose written extent is remembered.
const DefaultMaxExtents = 1_000_000

// Options configures a BlockCache. It is read once by Init.
type Options struct {
	// MemSpaceSize is the memory quota in bytes.
	MemSpaceSize int64

	// DiskSpaces are the disk paths and their quotas. Only used by the hybrid engine.
	DiskSpaces []DiskSpace

	// BlockSize is the unit of storage in bytes. It must be a power of two.
	BlockSize int64

	// MaxConcurrentInserts bounds the number of concurrent block writes. 0 means unlimited.
	MaxConcurrentInserts int64

	// Engine selects the storage engine: "hybrid" (default), "memory" or "lfu".
	Engine string

	// LRUInsertionPoint is where new blocks enter the recency list: 0 is the head, 1 the tail.
	LRUInsertionPoint float64

	// MaxExtents bounds the number of identifiers whose written extent is remembered.
	// Defaults to DefaultMaxExtents.
	MaxExtents int

	// Metrics receives cache events. Defaults to the collector in the Init context, if any.
	Metrics metrics.Metrics

	// Registry tracks disk path ownership across caches. Defaults to a process wide registry.
	Registry *engine.Registry
}

// validate checks the options that are not the engine's concern and returns the engine configuration.
func (o Options) validate() (engine.Kind, engine.Config, error) {
	kind, err := engine.ParseKind(o.Engine)
	if err != nil {
		return "", engine.Config{}, err
	}
	if !math.IsPowerOfTwo(o.BlockSize) {
		return "", engine.Config{}, fmt.Errorf("%w: block size must be a positive power of two, got %d", ErrInvalidConfig, o.BlockSize)
	}
	if o.MaxExtents < 0 {
		return "", engine.Config{}, fmt.Errorf("%w: max extents must not be negative, got %d", ErrInvalidConfig, o.MaxExtents)
	}

	return kind, engine.Config{
		MemSpaceSize:         o.MemSpaceSize,
		DiskSpaces:           o.DiskSpaces,
		BlockSize:            o.BlockSize,
		MaxConcurrentInserts: o.MaxConcurrentInserts,
		InsertionPoint:       o.LRUInsertionPoint,
		Metrics:              o.Metrics,
		Registry:             o.Registry,
	}, nil
}
