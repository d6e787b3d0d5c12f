package tests

import (
	"io"
	"sync/atomic"

	"github.com/azure/blockcache/internal/remote"
	"github.com/rs/zerolog"
)

var l = zerolog.Nop()

// MockReader serves an in-memory object and counts the reads made against it.
type MockReader struct {
	data   []byte
	preads atomic.Int64
}

var _ remote.Reader = &MockReader{}

// FstatRemote implements remote.Reader.
func (m *MockReader) FstatRemote() (int64, error) {
	return int64(len(m.data)), nil
}

// Log implements remote.Reader.
func (*MockReader) Log() *zerolog.Logger {
	return &l
}

// PreadRemote implements remote.Reader.
func (m *MockReader) PreadRemote(buf []byte, offset int64) (int, error) {
	m.preads.Add(1)
	if offset >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(buf, m.data[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// Preads returns the number of PreadRemote calls so far.
func (m *MockReader) Preads() int64 {
	return m.preads.Load()
}

// NewMockReader creates a new mock reader for testing purposes.
func NewMockReader(data []byte) *MockReader {
	return &MockReader{data: data}
}
