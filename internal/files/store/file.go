// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package store

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/azure/blockcache/internal/remote"
	"github.com/azure/blockcache/pkg/math"
)

// file describes a file that can be read from this content store.
// It implements the File interface. It is similar to os.File.
type file struct {
	Name string

	ctx  context.Context
	cur  int64
	size int64

	statLock sync.Mutex

	reader remote.Reader
	store  *store
}

var _ File = &file{}

// prefetch tries to prefetch the specified parts of the file block by block.
// It can silently fail.
func (f *file) prefetch(offset, count, fileSize int64) {
	go func() {
		segs, err := math.NewSegments(offset, int(f.store.blockSize), count, fileSize)
		if err != nil {
			f.reader.Log().Error().Err(err).Msg("prefetch error: failed to create segments")
			return
		}

		for _, seg := range segs.All() {
			p := prefetchableSegment{
				ctx:    f.ctx,
				name:   f.Name,
				reader: f.reader,
				offset: seg.Index,
				count:  f.blockLen(seg.Index, fileSize),
			}
			select {
			case f.store.prefetchChan <- p:
			case <-f.store.done:
				return
			case <-f.ctx.Done():
				return
			}
		}
	}()
}

// blockLen returns the number of bytes of the file in the block at the aligned offset.
func (f *file) blockLen(aligned, fileSize int64) int {
	return int(math.Min64(f.store.blockSize, fileSize-aligned))
}

// Seek sets the current file offset.
func (f *file) Seek(offset int64, whence int) (int64, error) {
	var cur int64
	switch whence {
	case io.SeekCurrent:
		cur = f.cur + offset
	case io.SeekStart:
		cur = offset
	case io.SeekEnd:
		cur = f.size + offset
	default:
		return f.cur, fmt.Errorf("invalid whence: %d", whence)
	}

	if cur < 0 {
		return f.cur, fmt.Errorf("negative position: %d", cur)
	}
	f.cur = cur
	return f.cur, nil
}

// Fstat returns the size of the file.
func (f *file) Fstat() (int64, error) {
	size, hit := f.store.sizes.Get(f.Name)
	if hit {
		f.size = size
		return size, nil
	}

	f.statLock.Lock()
	defer f.statLock.Unlock()

	if size, hit = f.store.sizes.Get(f.Name); !hit {
		f.reader.Log().Debug().Str("name", f.Name).Msg("fstat getlen cache miss")
		var err error
		size, err = f.reader.FstatRemote()
		if err != nil {
			f.reader.Log().Error().Err(err).Msg("fstat error")
			return 0, err
		}
		f.store.sizes.Record(f.Name, size)
		f.reader.Log().Debug().Str("name", f.Name).Int64("size", size).Msg("fstat putlen")
	}

	f.size = size
	return size, nil
}

// Read reads up to len(p) bytes into p. It returns the number of bytes read (0 <= n <= len(p)) and any error encountered.
func (f *file) Read(p []byte) (n int, err error) {
	ret, err := f.ReadAt(p, f.cur)
	f.cur += int64(ret)
	return ret, err
}

// ReadAt reads len(p) bytes from the File starting at byte offset off. It returns the number of bytes read and the error, if any.
// A read that reaches the end of the file returns io.EOF.
func (f *file) ReadAt(buff []byte, offset int64) (int, error) {
	fileSize, err := f.Fstat()
	if err != nil {
		return 0, err
	}

	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	} else if offset >= fileSize {
		return 0, io.EOF
	}

	segs, err := math.NewSegments(offset, int(f.store.blockSize), int64(len(buff)), fileSize)
	if err != nil {
		return 0, err
	}

	ret := 0
	for _, seg := range segs.All() {
		data, err := f.store.block(f.ctx, f.Name, f.reader, seg.Index, f.blockLen(seg.Index, fileSize))
		if err != nil {
			f.reader.Log().Error().Err(err).Msg("readat error")
			return ret, fmt.Errorf("failed to ReadAt, path: %v, offset: %v, error: %w", f.Name, offset, err)
		}

		ret += copy(buff[seg.Pos:seg.Pos+int64(seg.Count)], data[seg.Offset:seg.Offset+int64(seg.Count)])
	}

	if offset+int64(len(buff)) > fileSize {
		err = io.EOF
	}

	return ret, err
}
