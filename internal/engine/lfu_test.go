// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"context"
	"testing"

	"github.com/azure/blockcache/pkg/iobuf"
	"github.com/stretchr/testify/require"
)

func TestLFUAccounting(t *testing.T) {
	e := newTestEngine(t, KindLFU, Config{MemSpaceSize: 64 * testBlockSize})
	ctx := context.Background()

	writeBlock(t, e, blockOf("f", 0), 'a')
	writeBlock(t, e, blockOf("f", 1), 'b')
	require.NoError(t, e.Write(ctx, CacheKey{ID: "f", Offset: 2 * testBlockSize, Length: 10}, iobuf.New(fill('c', 10)), true))

	s := e.Stats()
	require.Equal(t, 3, s.MemBlocks)
	require.Equal(t, int64(2*testBlockSize+10), s.MemBytes)

	// Extending a block changes its cost.
	require.NoError(t, e.Write(ctx, CacheKey{ID: "f", Offset: 2*testBlockSize + 10, Length: 10}, iobuf.New(fill('d', 10)), true))
	s = e.Stats()
	require.Equal(t, 3, s.MemBlocks)
	require.Equal(t, int64(2*testBlockSize+20), s.MemBytes)

	require.NoError(t, e.Remove(ctx, blockOf("f", 0)))
	s = e.Stats()
	require.Equal(t, 2, s.MemBlocks)
	require.Equal(t, int64(testBlockSize+20), s.MemBytes)
}

func TestLFUNeverExceedsMemory(t *testing.T) {
	e := newTestEngine(t, KindLFU, Config{MemSpaceSize: 4 * testBlockSize})

	for i := 0; i < 32; i++ {
		// Rejections by the admission policy are allowed, overflow is not.
		_ = e.Write(context.Background(), blockOf("f", i), iobuf.New(fill('a', testBlockSize)), true)
		require.LessOrEqual(t, e.Stats().MemBytes, int64(4*testBlockSize))
	}
}

func TestLFUShutdown(t *testing.T) {
	e, err := New(KindLFU)
	require.NoError(t, err)
	require.NoError(t, e.Init(context.Background(), Config{MemSpaceSize: testBlockSize, BlockSize: testBlockSize}))

	e.Shutdown(context.Background())
	e.Shutdown(context.Background())

	_, err = readBlock(e, blockOf("f", 0))
	require.ErrorIs(t, err, ErrShutdown)
}
