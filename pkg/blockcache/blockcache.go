// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package blockcache is a block level cache for byte ranges of slow or remote objects.
//
// A BlockCache stages data in memory and, with the hybrid engine, on local disk paths. Writes are split
// into fixed size blocks; a read either returns the cached bytes or ErrNotFound, in which case fetching
// from the source and repopulating the cache is up to the caller.
package blockcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/azure/blockcache/internal/engine"
	"github.com/azure/blockcache/internal/extent"
	"github.com/azure/blockcache/pkg/iobuf"
	"github.com/azure/blockcache/pkg/math"
	"github.com/azure/blockcache/pkg/metrics"
	"github.com/rs/zerolog"
)

type state int

const (
	uninitialized state = iota
	active
	shutdown
)

// BlockCache is the cache façade. It is safe for concurrent use.
type BlockCache struct {
	lock      sync.RWMutex
	state     state
	engine    engine.Engine
	blockSize int64
	extents   *extent.Map
	log       zerolog.Logger
}

// New creates an uninitialized cache.
func New() *BlockCache {
	return &BlockCache{log: zerolog.Nop()}
}

// WriteOption configures a write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	overwrite bool
}

// WithOverwrite sets whether a write may replace cached blocks. The default is true.
func WithOverwrite(overwrite bool) WriteOption {
	return func(o *writeOptions) {
		o.overwrite = overwrite
	}
}

// Init validates opts and starts the engine. A failed Init leaves the cache uninitialized.
func (c *BlockCache) Init(ctx context.Context, opts Options) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch c.state {
	case active:
		return ErrAlreadyInitialized
	case shutdown:
		return ErrShutdown
	}

	kind, cfg, err := opts.validate()
	if err != nil {
		return err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.FromContext(ctx)
	}

	e, err := engine.New(kind)
	if err != nil {
		return err
	}
	if err := e.Init(ctx, cfg); err != nil {
		return err
	}

	maxExtents := opts.MaxExtents
	if maxExtents == 0 {
		maxExtents = DefaultMaxExtents
	}

	c.engine = e
	c.blockSize = opts.BlockSize
	c.extents = extent.NewMap(maxExtents)
	c.log = zerolog.Ctx(ctx).With().Str("component", "blockcache").Str("engine", string(kind)).Logger()
	c.state = active

	c.log.Info().Int64("block", opts.BlockSize).Int64("mem", opts.MemSpaceSize).Int("disks", len(opts.DiskSpaces)).Msg("block cache initialized")
	return nil
}

// usable returns the error for operations issued in the current state. The caller must hold the lock.
func (c *BlockCache) usable() error {
	switch c.state {
	case uninitialized:
		return ErrNotInitialized
	case shutdown:
		return ErrShutdown
	}
	return nil
}

// segments splits [offset, offset+length) into block sized pieces.
func (c *BlockCache) segments(offset, length int64) ([]math.Segment, error) {
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("%w: invalid range, offset: %d, length: %d", ErrInvalidArgument, offset, length)
	}
	segs, err := math.NewSegments(offset, int(c.blockSize), length, offset+length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return segs.All(), nil
}

// WriteCache writes data at offset of the object named key.
//
// The range is written block by block. The first failing block aborts the write and its error is
// returned; blocks written before it stay in the cache.
func (c *BlockCache) WriteCache(ctx context.Context, key string, offset int64, data []byte, opts ...WriteOption) error {
	return c.WriteBuffer(ctx, key, offset, iobuf.New(data), opts...)
}

// WriteBuffer is WriteCache for data held in a scatter gather buffer.
func (c *BlockCache) WriteBuffer(ctx context.Context, key string, offset int64, buf *iobuf.Buffer, opts ...WriteOption) error {
	o := writeOptions{overwrite: true}
	for _, opt := range opts {
		opt(&o)
	}

	c.lock.RLock()
	defer c.lock.RUnlock()
	if err := c.usable(); err != nil {
		return err
	}

	segs, err := c.segments(offset, buf.Size())
	if err != nil {
		return err
	}

	for _, s := range segs {
		part, err := buf.Slice(s.Pos, int64(s.Count))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}

		k := engine.CacheKey{ID: key, Offset: s.Start(), Length: int64(s.Count)}
		if err := c.engine.Write(ctx, k, part, o.overwrite); err != nil {
			c.log.Debug().Err(err).Str("key", key).Int64("offset", k.Offset).Int("count", s.Count).Msg("write block")
			return err
		}
		c.extents.Record(key, k.Offset+k.Length)
	}
	return nil
}

// ReadCache fills dest with the bytes at offset of the object named key and returns the number of bytes read.
//
// The first block that is not cached stops the read with ErrNotFound. dest may then be partially filled and
// must not be trusted.
func (c *BlockCache) ReadCache(ctx context.Context, key string, offset int64, dest []byte) (int, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if err := c.usable(); err != nil {
		return 0, err
	}

	segs, err := c.segments(offset, int64(len(dest)))
	if err != nil {
		return 0, err
	}

	if c.extents.Beyond(key, offset) {
		return 0, fmt.Errorf("%w: offset %d is past the written extent of %v", ErrNotFound, offset, key)
	}

	read := 0
	for _, s := range segs {
		k := engine.CacheKey{ID: key, Offset: s.Start(), Length: int64(s.Count)}
		n, err := c.engine.Read(ctx, k, dest[s.Pos:s.Pos+int64(s.Count)])
		read += n
		if err != nil {
			return read, err
		}
	}
	return read, nil
}

// RemoveCache drops every block that holds a byte of [offset, offset+length) of the object named key.
func (c *BlockCache) RemoveCache(ctx context.Context, key string, offset, length int64) error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if err := c.usable(); err != nil {
		return err
	}

	segs, err := c.segments(offset, length)
	if err != nil {
		return err
	}

	for _, s := range segs {
		k := engine.CacheKey{ID: key, Offset: s.Start(), Length: int64(s.Count)}
		if err := c.engine.Remove(ctx, k); err != nil {
			return err
		}
	}

	if end, ok := c.extents.Get(key); ok && offset == 0 && length >= end {
		c.extents.Delete(key)
	}
	return nil
}

// Shutdown waits for in-flight operations and releases the engine. It is safe to call more than once.
func (c *BlockCache) Shutdown(ctx context.Context) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.state == active {
		c.engine.Shutdown(ctx)
		c.log.Info().Msg("block cache shutdown")
	}
	c.state = shutdown
}

// Status returns nil if the cache is healthy, or the error that makes it unusable.
func (c *BlockCache) Status() error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if err := c.usable(); err != nil {
		return err
	}
	return c.engine.Status()
}

// Stats returns a snapshot of the engine. It is zero unless the cache is active.
func (c *BlockCache) Stats() Stats {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.state != active {
		return Stats{}
	}
	return c.engine.Stats()
}

// BlockSize returns the block size the cache was initialized with.
func (c *BlockCache) BlockSize() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.blockSize
}
