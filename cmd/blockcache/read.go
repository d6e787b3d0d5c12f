// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/azure/blockcache/internal/files/store"
	"github.com/azure/blockcache/internal/remote"
	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// openSource returns a reader for a local file or an http(s) URL, and a function that releases it.
func openSource(ctx context.Context, src string) (remote.Reader, func(), error) {
	if isURL(src) {
		return remote.NewHTTPReader(ctx, nil, src, nil), func() {}, nil
	}

	r, err := remote.NewFileReader(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}

// readCommand reads the source sequentially through the cache, passes times.
func readCommand(ctx context.Context, c *blockcache.BlockCache, args *ReadCmd) error {
	l := zerolog.Ctx(ctx)

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

	l.Info().Str("source", args.Source).Int64("size", size).Int("passes", args.Passes).Msg("starting read")

	for i := 0; i < args.Passes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		bar := progressbar.DefaultBytes(size, fmt.Sprintf("pass %d", i+1))

		before := c.Stats()
		st := time.Now()
		w, err := io.Copy(io.MultiWriter(io.Discard, bar), io.NewSectionReader(f, 0, size))
		if err != nil {
			l.Error().Err(err).Int("pass", i+1).Msg("failed to read source")
			return err
		}
		since := time.Since(st)
		after := c.Stats()

		l.Info().Int("pass", i+1).Int64("read", w).Dur("duration", since).
			Int64("hits", after.Hits-before.Hits).Int64("misses", after.Misses-before.Misses).
			Msg("pass complete")
	}

	return nil
}
