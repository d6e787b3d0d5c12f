// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package remote

import (
	"context"
	"os"
	"time"

	"github.com/azure/blockcache/pkg/metrics"
	"github.com/rs/zerolog"
)

// FileReader reads a local file as if it were remote. Close releases the file.
type FileReader struct {
	f       *os.File
	log     zerolog.Logger
	metrics metrics.Metrics
}

var _ Reader = &FileReader{}

// Log returns the logger with context for this reader.
func (r *FileReader) Log() *zerolog.Logger {
	return &r.log
}

// PreadRemote reads len(buf) bytes at offset. It returns io.EOF with a short count at the end of the file.
func (r *FileReader) PreadRemote(buf []byte, offset int64) (int, error) {
	s := time.Now()
	defer func() {
		r.metrics.RecordOperation("upstream_pread", time.Since(s).Seconds())
	}()

	n, err := r.f.ReadAt(buf, offset)
	if err != nil {
		r.log.Debug().Err(err).Int64("offset", offset).Int("count", len(buf)).Int("read", n).Msg("reader preadRemote stop")
	}
	return n, err
}

// FstatRemote returns the size of the file.
func (r *FileReader) FstatRemote() (int64, error) {
	st, err := r.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Close closes the file.
func (r *FileReader) Close() error {
	return r.f.Close()
}

// NewFileReader opens the file at path for reading.
func NewFileReader(ctx context.Context, path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileReader{
		f:       f,
		log:     zerolog.Ctx(ctx).With().Str("component", "remote").Str("path", path).Logger(),
		metrics: metrics.FromContext(ctx),
	}, nil
}
