// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/azure/blockcache/pkg/iobuf"
	"github.com/azure/blockcache/pkg/metrics"
	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
)

// lfuEngine keeps blocks in memory in a ristretto cache, which admits by TinyLFU and evicts by sampled LFU.
type lfuEngine struct {
	state atomic.Int32
	fault fault

	// lock serializes mutations so that every Set has been applied before the next one starts.
	lock      sync.Mutex
	cfg       Config
	cache     *ristretto.Cache
	admission *admission
	rejected  atomic.Bool

	log     zerolog.Logger
	metrics metrics.Metrics

	blocks, bytes                    atomic.Int64
	hits, misses, evictions, rejects atomic.Int64
}

var _ Engine = &lfuEngine{}

// Init creates the ristretto cache.
func (e *lfuEngine) Init(ctx context.Context, cfg Config) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.state.Load() != stateNew {
		return fmt.Errorf("%w: engine already initialized", ErrInvalidConfig)
	}
	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.MemSpaceSize <= 0 {
		return fmt.Errorf("%w: lfu engine needs a positive memory space size, got %d", ErrInvalidConfig, cfg.MemSpaceSize)
	}

	l := zerolog.Ctx(ctx).With().Str("component", "engine").Str("engine", string(KindLFU)).Logger()
	if len(cfg.DiskSpaces) > 0 {
		l.Warn().Int("disks", len(cfg.DiskSpaces)).Msg("lfu engine ignores disk spaces")
	}

	// Ten counters per block that fits in memory, as ristretto recommends.
	counters := max(cfg.MemSpaceSize/cfg.BlockSize*10, 100)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        counters,
		MaxCost:            cfg.MemSpaceSize,
		BufferItems:        64,
		IgnoreInternalCost: true,

		OnEvict: func(item *ristretto.Item) {
			e.blocks.Add(-1)
			e.bytes.Add(-item.Cost)
			e.evictions.Add(1)
			e.metrics.RecordEviction(metrics.TierMemory, item.Cost)
		},

		OnReject: func(item *ristretto.Item) {
			e.rejected.Store(true)
		},

		Cost: func(val interface{}) int64 {
			return int64(len(val.(*block).data))
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e.cfg = cfg
	e.cache = cache
	e.admission = newAdmission(cfg.MaxConcurrentInserts)
	e.log = l
	e.metrics = metrics.Discard
	if cfg.Metrics != nil {
		e.metrics = cfg.Metrics
	}
	e.state.Store(stateActive)

	l.Info().Int64("mem", cfg.MemSpaceSize).Int64("block", cfg.BlockSize).Int64("counters", counters).Msg("engine initialized")
	return nil
}

func (e *lfuEngine) usable() error {
	switch e.state.Load() {
	case stateNew:
		return fmt.Errorf("%w: engine is not initialized", ErrInvalidConfig)
	case stateClosed:
		return ErrShutdown
	}
	return e.fault.Err()
}

func (e *lfuEngine) get(k blockKey) (*block, bool) {
	v, ok := e.cache.Get(k.flat())
	if !ok {
		return nil, false
	}
	return v.(*block), true
}

// Write merges data into the block and stores the result.
func (e *lfuEngine) Write(ctx context.Context, key CacheKey, data *iobuf.Buffer, overwrite bool) error {
	if err := e.usable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	k, off, err := validateKey(key, e.cfg.BlockSize)
	if err != nil {
		return err
	}
	if data.Size() != key.Length {
		return fmt.Errorf("%w: buffer holds %d bytes for a range of %d", ErrInvalidArgument, data.Size(), key.Length)
	}

	if !e.admission.tryAcquire() {
		e.reject("admission")
		return fmt.Errorf("%w: too many concurrent inserts, limit: %d", ErrResourceExhausted, e.cfg.MaxConcurrentInserts)
	}
	defer e.admission.release()

	start := time.Now()
	fresh := make([]byte, key.Length)
	if _, err := data.CopyTo(fresh, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	if e.state.Load() == stateClosed {
		return ErrShutdown
	}

	old, found := e.get(k)
	if found && !overwrite {
		return fmt.Errorf("%w: %v", ErrAlreadyExists, k)
	}

	nb := merge(old, off, fresh)
	size := int64(len(nb.data))
	if size > e.cfg.MemSpaceSize {
		e.reject("capacity")
		return fmt.Errorf("%w: block of %d bytes exceeds the memory space size %d", ErrResourceExhausted, size, e.cfg.MemSpaceSize)
	}

	e.rejected.Store(false)
	if !e.cache.Set(k.flat(), &nb, size) {
		e.reject("dropped")
		return fmt.Errorf("%w: write of %v was dropped", ErrResourceExhausted, k)
	}
	e.cache.Wait()

	if e.rejected.Load() {
		e.reject("policy")
		return fmt.Errorf("%w: write of %v was not admitted", ErrResourceExhausted, k)
	}

	if found {
		e.bytes.Add(size - int64(len(old.data)))
	} else {
		e.blocks.Add(1)
		e.bytes.Add(size)
	}
	e.metrics.RecordWrite(metrics.TierMemory, len(nb.data))
	e.metrics.RecordOperation("write", time.Since(start).Seconds())
	return nil
}

func (e *lfuEngine) reject(reason string) {
	e.rejects.Add(1)
	e.metrics.RecordReject(reason)
}

// Read copies the range of key into dest.
func (e *lfuEngine) Read(ctx context.Context, key CacheKey, dest []byte) (int, error) {
	if err := e.usable(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	k, off, err := validateKey(key, e.cfg.BlockSize)
	if err != nil {
		return 0, err
	}
	if int64(len(dest)) < key.Length {
		return 0, fmt.Errorf("%w: destination holds %d bytes for a range of %d", ErrInvalidArgument, len(dest), key.Length)
	}

	b, ok := e.get(k)
	if !ok || !b.covers(off, int(key.Length)) {
		e.misses.Add(1)
		e.metrics.RecordMiss()
		return 0, fmt.Errorf("%w: %v", ErrNotFound, k)
	}

	n := b.read(dest[:key.Length], off)
	e.hits.Add(1)
	e.metrics.RecordHit(metrics.TierMemory, n)
	return n, nil
}

// Remove deletes the block holding the range of key.
func (e *lfuEngine) Remove(ctx context.Context, key CacheKey) error {
	if err := e.usable(); err != nil {
		return err
	}

	k, _, err := validateKey(key, e.cfg.BlockSize)
	if err != nil {
		return err
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	if e.state.Load() == stateClosed {
		return ErrShutdown
	}

	if old, ok := e.get(k); ok {
		e.cache.Del(k.flat())
		e.blocks.Add(-1)
		e.bytes.Add(-int64(len(old.data)))
	}
	return nil
}

// Shutdown closes the ristretto cache.
func (e *lfuEngine) Shutdown(ctx context.Context) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.state.Swap(stateClosed) != stateActive {
		return
	}
	e.cache.Close()
	e.log.Info().Int64("hits", e.hits.Load()).Int64("misses", e.misses.Load()).Msg("engine shutdown")
}

// Status returns the latched fault.
func (e *lfuEngine) Status() error {
	return e.fault.Err()
}

// Stats returns a snapshot of the cache.
func (e *lfuEngine) Stats() Stats {
	return Stats{
		MemBlocks: int(e.blocks.Load()),
		MemBytes:  e.bytes.Load(),
		Hits:      e.hits.Load(),
		Misses:    e.misses.Load(),
		Evictions: e.evictions.Load(),
		Rejects:   e.rejects.Load(),
	}
}
