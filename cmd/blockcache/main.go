// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/azure/blockcache/internal/config"
	"github.com/azure/blockcache/internal/files/store"
	"github.com/azure/blockcache/pkg/blockcache"
	"github.com/azure/blockcache/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	args := &Arguments{}
	arg.MustParse(args)

	cfg, err := loadConfig(afero.NewOsFs(), args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ll, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %s\n", cfg.Log.Level)
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(ll)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	hostname, _ := os.Hostname()
	l := zerolog.New(os.Stderr).With().Timestamp().Str("self", hostname).Str("version", version).Logger()
	ctx := l.WithContext(context.Background())

	err = run(ctx, args, cfg)
	if err != nil {
		l.Error().Err(err).Msg("error")
		os.Exit(1)
	}

	l.Info().Msg("shutdown")
}

// loadConfig reads the configuration file, if any, and applies the command line overrides.
func loadConfig(fs afero.Fs, args *Arguments) (config.Config, error) {
	cfg := config.Default()
	if args.Config != "" {
		var err error
		if cfg, err = config.Load(fs, args.Config); err != nil {
			return config.Config{}, err
		}
	}

	if args.Engine != "" {
		cfg.Engine = args.Engine
	}
	if args.DiskPaths != "" {
		cfg.DiskPaths = args.DiskPaths
	}
	if args.MetricsAddr != "" {
		cfg.Metrics.Addr = args.MetricsAddr
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}

	sizes := []struct {
		flag string
		dst  *config.Size
	}{
		{args.BlockSize, &cfg.BlockSize},
		{args.MemSpaceSize, &cfg.MemSpaceSize},
		{args.DiskSpaceSize, &cfg.DiskSpaceSize},
	}
	for _, s := range sizes {
		if s.flag == "" {
			continue
		}
		if err := s.dst.UnmarshalText([]byte(s.flag)); err != nil {
			return config.Config{}, fmt.Errorf("%w: %w", blockcache.ErrInvalidConfig, err)
		}
	}

	return cfg, nil
}

func run(ctx context.Context, args *Arguments, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer cancel()

	switch {
	case args.Version:
		zerolog.Ctx(ctx).Info().Msg("version") // version field is already added to the logger
		return nil
	case args.ParsePaths != nil:
		return parsePathsCommand(ctx, args.ParsePaths)
	case args.Read != nil:
		return withCache(ctx, args, cfg, func(ctx context.Context, c *blockcache.BlockCache) error {
			return readCommand(ctx, c, args.Read)
		})
	case args.Bench != nil:
		return withCache(ctx, args, cfg, func(ctx context.Context, c *blockcache.BlockCache) error {
			return benchCommand(ctx, c, args.Bench)
		})
	default:
		return fmt.Errorf("unknown subcommand")
	}
}

// withCache starts a cache and its metrics endpoint, runs fn and shuts everything down.
func withCache(ctx context.Context, args *Arguments, cfg config.Config, fn func(context.Context, *blockcache.BlockCache) error) (err error) {
	l := zerolog.Ctx(ctx)

	opts, perr := cfg.Options()
	if perr != nil {
		l.Warn().Err(perr).Int("disks", len(opts.DiskSpaces)).Msg("skipping invalid disk paths")
	}

	hostname, _ := os.Hostname()
	reg := prometheus.NewRegistry()
	report := metrics.NewMemoryMetrics()
	m := metrics.Multi(metrics.NewPromMetrics(reg, hostname, cfg.Metrics.Prefix), report)
	ctx = metrics.WithMetrics(ctx, m)

	store.PrefetchWorkers = args.PrefetchWorkers

	c := blockcache.New()
	if err := c.Init(ctx, opts); err != nil {
		return err
	}
	defer func() {
		c.Shutdown(context.Background())
		if args.Report {
			if rerr := report.Report(os.Stdout); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			select {
			case <-ctx.Done():
			case <-done:
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		l.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server start")
	}

	g.Go(func() error {
		defer close(done)
		return fn(ctx, c)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	st := c.Stats()
	l.Info().Int("mem.blocks", st.MemBlocks).Int64("mem.bytes", st.MemBytes).Int("disk.blocks", st.DiskBlocks).
		Int64("disk.bytes", st.DiskBytes).Int64("hits", st.Hits).Int64("misses", st.Misses).
		Int64("evictions", st.Evictions).Int64("rejects", st.Rejects).Msg("cache stats")
	return c.Status()
}

// parsePathsCommand prints the canonical form of every valid path in the list.
func parsePathsCommand(ctx context.Context, args *ParsePathsCmd) error {
	paths, err := blockcache.ParseCachePaths(args.Paths)
	for _, p := range paths {
		fmt.Println(p)
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("valid", len(paths)).Msg("invalid disk paths")
		return err
	}
	return nil
}

// isURL reports whether the source is read over HTTP.
func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
