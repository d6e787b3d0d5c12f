// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// memoryEngine keeps blocks in memory only and evicts in plain recency order.
type memoryEngine struct {
	*tiered
}

var _ Engine = &memoryEngine{}

// Init drops disk spaces and the insertion point from cfg before initializing the memory tier.
func (m *memoryEngine) Init(ctx context.Context, cfg Config) error {
	if cfg.MemSpaceSize <= 0 {
		return fmt.Errorf("%w: memory engine needs a positive memory space size, got %d", ErrInvalidConfig, cfg.MemSpaceSize)
	}

	l := zerolog.Ctx(ctx)
	if len(cfg.DiskSpaces) > 0 {
		l.Warn().Int("disks", len(cfg.DiskSpaces)).Msg("memory engine ignores disk spaces")
	}
	if cfg.InsertionPoint != 0 {
		l.Warn().Float64("point", cfg.InsertionPoint).Msg("memory engine ignores the lru insertion point")
	}

	cfg.DiskSpaces = nil
	cfg.InsertionPoint = 0
	return m.tiered.Init(ctx, cfg)
}
