// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/azure/blockcache/internal/evict"
	"github.com/azure/blockcache/pkg/iobuf"
	"github.com/azure/blockcache/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	stateNew int32 = iota
	stateActive
	stateClosed
)

// instanceDirPrefix prefixes the directory an engine owns under each disk path.
const instanceDirPrefix = "blockcache-"

// tiered is an engine with a memory tier and any number of disk tiers.
//
// All tier metadata is guarded by lock. Block file I/O happens outside of it: a block leaving memory is
// first linked into its disk tier with its bytes pending, then written by the goroutine that evicted it.
type tiered struct {
	kind  Kind
	state atomic.Int32
	fault fault

	lock      sync.Mutex
	cfg       Config
	id        string
	mem       *memTier
	disks     []*diskTier
	admission *admission
	registry  *Registry
	installs  sync.WaitGroup
	seq       atomic.Uint64

	log     zerolog.Logger
	metrics metrics.Metrics

	hits, misses, evictions, rejects atomic.Int64
}

var _ Engine = &tiered{}

// install is a block file write that must happen outside the lock.
type install struct {
	tier  *diskTier
	entry *evict.Entry[*diskBlock]
	data  []byte
}

// work collects the file I/O a locked section leaves behind.
type work struct {
	installs []install
	drops    []string
}

func newTiered(kind Kind) *tiered {
	return &tiered{kind: kind, log: zerolog.Nop(), metrics: metrics.Discard}
}

// Init validates cfg, claims the disk paths and creates the tiers.
func (e *tiered) Init(ctx context.Context, cfg Config) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.state.Load() != stateNew {
		return fmt.Errorf("%w: engine already initialized", ErrInvalidConfig)
	}

	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.MemSpaceSize == 0 && len(cfg.DiskSpaces) == 0 {
		return fmt.Errorf("%w: %v engine needs memory or disk space", ErrInvalidConfig, e.kind)
	}

	roots, err := validateDiskSpaces(cfg.DiskSpaces)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	l := zerolog.Ctx(ctx).With().Str("component", "engine").Str("engine", string(e.kind)).Str("id", id).Logger()

	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	if err := registry.Claim(id, roots...); err != nil {
		return err
	}

	mem, err := newMemTier(cfg.MemSpaceSize, cfg.InsertionPoint)
	if err != nil {
		registry.Release(id)
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var disks []*diskTier
	for i, root := range roots {
		dir := filepath.Join(root, instanceDirPrefix+id)
		d, err := newDiskTier(root, dir, cfg.DiskSpaces[i].Size, cfg.InsertionPoint)
		if err == nil {
			err = os.MkdirAll(dir, 0755)
		}
		if err != nil {
			for _, created := range disks {
				_ = os.RemoveAll(created.dir)
			}
			registry.Release(id)
			return fmt.Errorf("%w: failed to create cache directory under %v: %w", ErrInvalidConfig, root, err)
		}
		disks = append(disks, d)
	}

	e.cfg = cfg
	e.id = id
	e.mem = mem
	e.disks = disks
	e.admission = newAdmission(cfg.MaxConcurrentInserts)
	e.registry = registry
	e.log = l
	if cfg.Metrics != nil {
		e.metrics = cfg.Metrics
	}
	e.state.Store(stateActive)

	l.Info().Int64("mem", cfg.MemSpaceSize).Int("disks", len(disks)).Int64("block", cfg.BlockSize).
		Float64("point", cfg.InsertionPoint).Msg("engine initialized")
	return nil
}

// validateDiskSpaces checks every disk space and returns the canonical paths.
func validateDiskSpaces(spaces []DiskSpace) ([]string, error) {
	var roots []string
	for _, s := range spaces {
		if s.Path == "" || !filepath.IsAbs(s.Path) {
			return nil, fmt.Errorf("%w: disk path %q must be absolute", ErrInvalidConfig, s.Path)
		}
		if s.Size <= 0 {
			return nil, fmt.Errorf("%w: disk space size for %v must be positive, got %d", ErrInvalidConfig, s.Path, s.Size)
		}

		if err := os.MkdirAll(s.Path, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create disk path %v: %w", ErrInvalidConfig, s.Path, err)
		}
		root, err := filepath.EvalSymlinks(filepath.Clean(s.Path))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to resolve disk path %v: %w", ErrInvalidConfig, s.Path, err)
		}
		for _, r := range roots {
			if overlaps(root, r) {
				return nil, fmt.Errorf("%w: disk paths %v and %v overlap", ErrInvalidConfig, r, root)
			}
		}

		total, err := capacity(root)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to stat filesystem of %v: %w", ErrInvalidConfig, root, err)
		}
		if total > 0 && s.Size > total {
			return nil, fmt.Errorf("%w: disk space size %d for %v exceeds the filesystem capacity %d", ErrInvalidConfig, s.Size, root, total)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// usable reports why the engine cannot serve requests, if it cannot.
func (e *tiered) usable() error {
	switch e.state.Load() {
	case stateNew:
		return fmt.Errorf("%w: engine is not initialized", ErrInvalidConfig)
	case stateClosed:
		return ErrShutdown
	}
	return e.fault.Err()
}

// diskFor returns the disk tier a block belongs to, or nil if there are no disks.
func (e *tiered) diskFor(k blockKey) *diskTier {
	if len(e.disks) == 0 {
		return nil
	}
	return e.disks[k.hash()%uint64(len(e.disks))]
}

// Write stores data for the range of key, merging it into the existing block.
func (e *tiered) Write(ctx context.Context, key CacheKey, data *iobuf.Buffer, overwrite bool) error {
	if err := e.usable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	k, inBlock, err := validateKey(key, e.cfg.BlockSize)
	if err != nil {
		return err
	}
	if data.Size() != key.Length {
		return fmt.Errorf("%w: buffer holds %d bytes for a range of %d", ErrInvalidArgument, data.Size(), key.Length)
	}

	if !e.admission.tryAcquire() {
		e.rejects.Add(1)
		e.metrics.RecordReject("admission")
		return fmt.Errorf("%w: too many concurrent inserts, limit: %d", ErrResourceExhausted, e.cfg.MaxConcurrentInserts)
	}
	defer e.admission.release()

	start := time.Now()
	fresh := make([]byte, key.Length)
	if _, err := data.CopyTo(fresh, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	e.lock.Lock()
	old, err := e.current(k, inBlock, key.Length, overwrite)
	if err != nil {
		e.lock.Unlock()
		return err
	}

	w, err := e.storeLocked(k, merge(old, inBlock, fresh))
	e.lock.Unlock()
	if err != nil {
		e.rejects.Add(1)
		e.metrics.RecordReject("capacity")
		return err
	}

	err = e.finish(w)
	e.metrics.RecordOperation("write", time.Since(start).Seconds())
	return err
}

// current returns the block held for k, for merging a write of [off, off+n) into it. It is called with the
// lock held and returns with the lock held, but may release it to read a block file.
func (e *tiered) current(k blockKey, off, n int64, overwrite bool) (*block, error) {
	for {
		if e.state.Load() == stateClosed {
			return nil, ErrShutdown
		}

		if me, ok := e.mem.get(k); ok {
			if !overwrite {
				return nil, fmt.Errorf("%w: %v", ErrAlreadyExists, k)
			}
			b := me.Value.blk
			return &b, nil
		}

		d := e.diskFor(k)
		if d == nil {
			return nil, nil
		}
		de, ok := d.get(k)
		if !ok {
			return nil, nil
		}
		if !overwrite {
			return nil, fmt.Errorf("%w: %v", ErrAlreadyExists, k)
		}

		db := de.Value
		if db.pending != nil {
			return &block{start: db.start, data: db.pending}, nil
		}
		if !mergesWith(db.start, db.start+db.size, off, off+n) {
			return nil, nil
		}

		file, size := db.file, db.size
		e.lock.Unlock()
		data, err := readBlockFile(file, size)
		e.lock.Lock()

		if cur, ok := d.get(k); !ok || cur != de {
			// The block changed while the lock was released.
			continue
		}
		if err != nil {
			return nil, e.diskFault(d, de, file, err)
		}
		return &block{start: db.start, data: data}, nil
	}
}

// diskFault handles a failed read of a linked block file. A missing file drops the block, anything else
// latches a fault. It is called with the lock held.
func (e *tiered) diskFault(d *diskTier, de *evict.Entry[*diskBlock], file string, err error) error {
	d.remove(de)
	if errors.Is(err, fs.ErrNotExist) {
		e.log.Warn().Str("name", file).Msg("block file vanished")
		return nil
	}

	err = fmt.Errorf("failed to read block file %v: %w", file, err)
	if e.fault.Set(err) {
		e.log.Error().Err(err).Msg("engine fault")
	}
	return e.fault.Err()
}

// storeLocked replaces the block held for k with b. The caller must hold the lock and then call finish.
func (e *tiered) storeLocked(k blockKey, b block) (work, error) {
	var w work
	size := int64(len(b.data))

	d := e.diskFor(k)
	toMem := e.mem.fits(size)
	if !toMem && (d == nil || !d.fits(size)) {
		return w, fmt.Errorf("%w: block of %d bytes exceeds the capacity of every tier", ErrResourceExhausted, size)
	}

	e.dropLocked(k, &w)
	if toMem {
		for _, v := range e.mem.evictFor(size) {
			e.demoteLocked(v, &w)
		}
		e.mem.insert(k, b)
		e.metrics.RecordWrite(metrics.TierMemory, len(b.data))
		return w, nil
	}

	e.installLocked(d, k, b, &w)
	return w, nil
}

// dropLocked removes k from every tier.
func (e *tiered) dropLocked(k blockKey, w *work) {
	if me, ok := e.mem.get(k); ok {
		e.mem.remove(me)
	}
	if d := e.diskFor(k); d != nil {
		if de, ok := d.get(k); ok {
			d.remove(de)
			if de.Value.pending == nil {
				w.drops = append(w.drops, de.Value.file)
			}
		}
	}
}

// demoteLocked moves a block evicted from memory to its disk tier, or drops it.
func (e *tiered) demoteLocked(v *memBlock, w *work) {
	size := int64(len(v.blk.data))
	e.evictions.Add(1)
	e.metrics.RecordEviction(metrics.TierMemory, size)

	d := e.diskFor(v.key)
	if d == nil || !d.fits(size) {
		e.log.Debug().Str("key", v.key.String()).Int64("size", size).Msg("memory eviction")
		return
	}
	e.installLocked(d, v.key, v.blk, w)
}

// installLocked links a block into a disk tier with its bytes pending and queues the file write.
func (e *tiered) installLocked(d *diskTier, k blockKey, b block, w *work) {
	size := int64(len(b.data))
	for _, victim := range d.evictFor(size) {
		e.evictions.Add(1)
		e.metrics.RecordEviction(metrics.TierDisk, victim.size)
		if victim.pending == nil {
			w.drops = append(w.drops, victim.file)
		}
	}

	db := &diskBlock{key: k, start: b.start, size: size, file: d.fileFor(k, e.seq.Add(1)), pending: b.data}
	entry := d.insert(db)
	e.installs.Add(1)
	w.installs = append(w.installs, install{tier: d, entry: entry, data: b.data})
}

// finish performs the file I/O queued by a locked section and returns the first fault it caused.
func (e *tiered) finish(w work) error {
	var ferr error
	for _, in := range w.installs {
		if err := e.install(in); err != nil && ferr == nil {
			ferr = err
		}
	}
	for _, name := range w.drops {
		dropBlockFile(e.log, name)
	}
	return ferr
}

// install writes a pending block file and publishes it.
func (e *tiered) install(in install) error {
	defer e.installs.Done()

	db := in.entry.Value
	err := writeBlockFile(e.log, db.file, in.data)

	e.lock.Lock()
	linked := in.entry.Linked() && e.state.Load() != stateClosed
	if linked {
		if err != nil {
			in.tier.remove(in.entry)
		} else {
			db.pending = nil
			e.metrics.RecordWrite(metrics.TierDisk, len(in.data))
		}
	}
	e.lock.Unlock()

	if err != nil {
		err = fmt.Errorf("failed to write block file %v: %w", db.file, err)
		if e.fault.Set(err) {
			e.log.Error().Err(err).Msg("engine fault")
		}
		dropBlockFile(e.log, db.file)
		return e.fault.Err()
	}

	if !linked {
		// Removed or replaced while the file was being written.
		dropBlockFile(e.log, db.file)
	}
	return nil
}

// Read copies the range of key into dest.
func (e *tiered) Read(ctx context.Context, key CacheKey, dest []byte) (int, error) {
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
	dst := dest[:key.Length]

	start := time.Now()
	n, err := e.read(k, off, dst)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.misses.Add(1)
			e.metrics.RecordMiss()
		}
		return n, err
	}
	e.hits.Add(1)
	e.metrics.RecordOperation("read", time.Since(start).Seconds())
	return n, nil
}

func (e *tiered) read(k blockKey, off int64, dst []byte) (int, error) {
	e.lock.Lock()
	if e.state.Load() == stateClosed {
		e.lock.Unlock()
		return 0, ErrShutdown
	}

	if me, ok := e.mem.get(k); ok {
		b := me.Value.blk
		if !b.covers(off, len(dst)) {
			e.lock.Unlock()
			return 0, fmt.Errorf("%w: %v", ErrNotFound, k)
		}
		n := b.read(dst, off)
		e.mem.lru.Touch(me)
		e.lock.Unlock()
		e.metrics.RecordHit(metrics.TierMemory, n)
		return n, nil
	}

	d := e.diskFor(k)
	if d == nil {
		e.lock.Unlock()
		return 0, fmt.Errorf("%w: %v", ErrNotFound, k)
	}
	de, ok := d.get(k)
	if !ok || !de.Value.covers(off, len(dst)) {
		e.lock.Unlock()
		return 0, fmt.Errorf("%w: %v", ErrNotFound, k)
	}

	db := de.Value
	d.lru.Touch(de)
	if db.pending != nil {
		n := copy(dst, db.pending[off-db.start:])
		e.lock.Unlock()
		e.metrics.RecordHit(metrics.TierDisk, n)
		return n, nil
	}

	file, bstart, size := db.file, db.start, db.size
	promote := e.mem.fits(size) && e.admission.tryAcquire()
	e.lock.Unlock()

	if !promote {
		n, err := readBlockFileAt(file, dst, off-bstart)
		if err != nil {
			return 0, e.readFault(d, de, file, err)
		}
		e.metrics.RecordHit(metrics.TierDisk, n)
		return n, nil
	}
	defer e.admission.release()

	data, err := readBlockFile(file, size)
	if err != nil {
		return 0, e.readFault(d, de, file, err)
	}
	n := copy(dst, data[off-bstart:])
	e.metrics.RecordHit(metrics.TierDisk, n)

	return n, e.promote(d, de, k, block{start: bstart, data: data})
}

// readFault turns a failed block file read into a miss or a fault.
func (e *tiered) readFault(d *diskTier, de *evict.Entry[*diskBlock], file string, err error) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if cur, ok := d.get(de.Value.key); !ok || cur != de {
		// Evicted or replaced concurrently.
		return fmt.Errorf("%w: %v", ErrNotFound, de.Value.key)
	}
	if ferr := e.diskFault(d, de, file, err); ferr != nil {
		return ferr
	}
	return fmt.Errorf("%w: %v", ErrNotFound, de.Value.key)
}

// promote moves a block read from disk back into memory if it was not changed meanwhile.
func (e *tiered) promote(d *diskTier, de *evict.Entry[*diskBlock], k blockKey, b block) error {
	var w work

	e.lock.Lock()
	if e.state.Load() == stateClosed {
		e.lock.Unlock()
		return nil
	}
	if cur, ok := d.get(k); !ok || cur != de {
		e.lock.Unlock()
		return nil
	}

	d.remove(de)
	w.drops = append(w.drops, de.Value.file)
	for _, v := range e.mem.evictFor(int64(len(b.data))) {
		e.demoteLocked(v, &w)
	}
	e.mem.insert(k, b)
	e.lock.Unlock()

	e.log.Debug().Str("key", k.String()).Int("size", len(b.data)).Msg("block promoted")
	return e.finish(w)
}

// Remove drops the block holding the range of key.
func (e *tiered) Remove(ctx context.Context, key CacheKey) error {
	if err := e.usable(); err != nil {
		return err
	}

	k, _, err := validateKey(key, e.cfg.BlockSize)
	if err != nil {
		return err
	}

	var w work
	e.lock.Lock()
	if e.state.Load() == stateClosed {
		e.lock.Unlock()
		return ErrShutdown
	}
	e.dropLocked(k, &w)
	e.lock.Unlock()

	return e.finish(w)
}

// Shutdown waits for pending block files, then removes everything the engine stored on disk.
func (e *tiered) Shutdown(ctx context.Context) {
	e.lock.Lock()
	if e.state.Load() != stateActive {
		e.state.Store(stateClosed)
		e.lock.Unlock()
		return
	}
	e.state.Store(stateClosed)
	e.lock.Unlock()

	e.installs.Wait()

	e.lock.Lock()
	e.mem.clear()
	for _, d := range e.disks {
		d.index = map[blockKey]*evict.Entry[*diskBlock]{}
		d.lru.Clear()
		if err := os.RemoveAll(d.dir); err != nil {
			e.log.Error().Err(err).Str("dir", d.dir).Msg("failed to remove cache directory")
		}
	}
	e.lock.Unlock()

	e.registry.Release(e.id)
	e.log.Info().Int64("hits", e.hits.Load()).Int64("misses", e.misses.Load()).Msg("engine shutdown")
}

// Status returns the latched fault.
func (e *tiered) Status() error {
	return e.fault.Err()
}

// Stats returns a snapshot of the tiers and counters.
func (e *tiered) Stats() Stats {
	s := Stats{
		Hits:      e.hits.Load(),
		Misses:    e.misses.Load(),
		Evictions: e.evictions.Load(),
		Rejects:   e.rejects.Load(),
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	if e.mem != nil {
		s.MemBlocks = e.mem.lru.Len()
		s.MemBytes = e.mem.lru.Size()
	}
	for _, d := range e.disks {
		s.DiskBlocks += d.lru.Len()
		s.DiskBytes += d.lru.Size()
	}
	return s
}
