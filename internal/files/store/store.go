// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/azure/blockcache/internal/extent"
	"github.com/azure/blockcache/internal/files"
	"github.com/azure/blockcache/internal/remote"
	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// NewFilesStore creates a new store over an initialized cache. Prefetch workers stop when ctx is done
// or the store is closed.
func NewFilesStore(ctx context.Context, c *blockcache.BlockCache) (FilesStore, error) {
	if err := c.Status(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	fs := &store{
		cache:        c,
		blockSize:    c.BlockSize(),
		sizes:        extent.NewMap(MaxFiles),
		prefetchChan: make(chan prefetchableSegment, PrefetchWorkers),
		prefetchable: PrefetchWorkers > 0,
		done:         ctx.Done(),
		cancel:       cancel,
		log:          zerolog.Ctx(ctx).With().Str("component", "store").Logger(),
	}

	fs.workers.Add(PrefetchWorkers)
	for i := 0; i < PrefetchWorkers; i++ {
		go fs.prefetch()
	}

	return fs, nil
}

// prefetchableSegment describes a block of a file to prefetch.
type prefetchableSegment struct {
	ctx    context.Context
	name   string
	offset int64
	count  int

	reader remote.Reader
}

// store describes a content store whose contents come from the cache or a remote source.
type store struct {
	cache     *blockcache.BlockCache
	blockSize int64

	// sizes remembers the size of each file.
	sizes *extent.Map

	// fetches collapses concurrent upstream reads of the same block.
	fetches singleflight.Group

	prefetchable bool
	prefetchChan chan prefetchableSegment
	done         <-chan struct{}
	cancel       context.CancelFunc
	workers      sync.WaitGroup

	log zerolog.Logger
}

var _ FilesStore = &store{}

// Open opens the requested file and starts prefetching it.
func (s *store) Open(ctx context.Context, name string, r remote.Reader) (File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty file name", blockcache.ErrInvalidArgument)
	}

	f := &file{
		Name:   name,
		ctx:    ctx,
		store:  s,
		reader: r,
	}

	fileSize, err := f.Fstat() // Fstat sets up the file size appropriately.
	if err != nil {
		return nil, err
	}

	if s.prefetchable {
		f.prefetch(0, fileSize, fileSize)
	}

	return f, nil
}

// block returns the count bytes of the block at the aligned offset of the named file.
// A cache miss is filled from r and written back to the cache.
func (s *store) block(ctx context.Context, name string, r remote.Reader, offset int64, count int) ([]byte, error) {
	data := make([]byte, count)
	_, err := s.cache.ReadCache(ctx, name, offset, data)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, blockcache.ErrNotFound) {
		s.log.Warn().Err(err).Str("name", name).Int64("offset", offset).Msg("cache read failed, reading upstream")
	}

	v, err, _ := s.fetches.Do(fmt.Sprintf("%s@%d", name, offset), func() (interface{}, error) {
		d, err := files.FetchFile(r, name, offset, count)
		if err != nil {
			return nil, err
		}
		if len(d) != count {
			return nil, fmt.Errorf("short upstream read of %v at %d: %d of %d bytes", name, offset, len(d), count)
		}

		if err := s.cache.WriteCache(ctx, name, offset, d); err != nil {
			// The data is still good; only the cache copy is lost.
			s.log.Debug().Err(err).Str("name", name).Int64("offset", offset).Msg("cache write skipped")
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Close stops the prefetch workers and waits for them to exit.
func (s *store) Close() {
	s.cancel()
	s.workers.Wait()
}

// prefetch prefetches files.
func (s *store) prefetch() {
	defer s.workers.Done()
	for {
		select {
		case <-s.done:
			return
		case p := <-s.prefetchChan:
			if _, err := s.block(p.ctx, p.name, p.reader, p.offset, p.count); err != nil {
				p.reader.Log().Error().Err(err).Str("name", p.name).Msg("prefetch failed")
			}
		}
	}
}
