// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/azure/blockcache/internal/config"
	"github.com/azure/blockcache/internal/files/store"
	"github.com/azure/blockcache/internal/math"
	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// benchCommand runs random reads of the source through the cache and reports read speeds.
func benchCommand(ctx context.Context, c *blockcache.BlockCache, args *BenchCmd) error {
	l := zerolog.Ctx(ctx)

	var readSize config.Size
	if err := readSize.UnmarshalText([]byte(args.ReadSize)); err != nil {
		return err
	}
	if readSize <= 0 || args.Reads <= 0 || args.Workers <= 0 {
		return errors.New("read size, reads and workers must be positive")
	}

	r, closeFn, err := openSource(ctx, args.Source)
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := store.NewFilesStore(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := s.Open(ctx, args.Source, r)
	if err != nil {
		return err
	}

	size, err := f.Fstat()
	if err != nil {
		return err
	}
	if size == 0 {
		return errors.New("source is empty")
	}

	offsets, err := randomOffsets(args.Reads, size)
	if err != nil {
		return err
	}

	var lock sync.Mutex
	speeds := make([]float64, 0, args.Reads)
	failures := 0

	g, ctx := errgroup.WithContext(ctx)
	per := (len(offsets) + args.Workers - 1) / args.Workers
	for _, group := range math.RandomizedGroups(offsets, per) {
		group := group
		g.Go(func() error {
			buf := make([]byte, readSize)
			for _, off := range group {
				if err := ctx.Err(); err != nil {
					return err
				}

				st := time.Now()
				n, err := f.ReadAt(buf, off)
				since := time.Since(st)

				lock.Lock()
				if err != nil && err != io.EOF {
					l.Debug().Err(err).Int64("offset", off).Msg("read error")
					failures++
				} else {
					speeds = append(speeds, float64(n)/since.Seconds())
				}
				lock.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p := math.PercentilesFloat64Reverse(speeds, 0.50, 0.75, 0.9, 0.99, 1)
	if len(p) > 0 {
		l.Info().
			Float64("p50", p[0]).
			Float64("p75", p[1]).
			Float64("p90", p[2]).
			Float64("p99", p[3]).
			Float64("p100", p[4]).
			Msg("speeds (MiB/s)")
	}

	l.Info().Int("reads", len(offsets)).Float64("error_rate", float64(failures)/float64(len(offsets))).Msg("error rates")
	return nil
}

// randomOffsets returns n uniformly random offsets in [0, size).
func randomOffsets(n int, size int64) ([]int64, error) {
	offsets := make([]int64, n)
	for i := range offsets {
		v, err := rand.Int(rand.Reader, big.NewInt(size))
		if err != nil {
			return nil, err
		}
		offsets[i] = v.Int64()
	}
	return offsets, nil
}
