// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package files

import (
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/azure/blockcache/internal/remote"
	"github.com/rs/zerolog"
)

func TestFetchFile(t *testing.T) {
	r := &mockReader{data: map[string][]byte{
		"0": []byte("abc"),
		"3": []byte("def"),
	}}

	tests := []struct {
		offset  int64
		count   int
		want    string
		wantErr bool
	}{
		{offset: 0, count: 3, want: "abc"},
		{offset: 0, count: 4, want: "abc"}, // short read at the end
		{offset: 3, count: 3, want: "def"},
		{offset: 3, count: 1, want: "d"},
		{offset: 31, count: 4, wantErr: true},
	}

	for _, tt := range tests {
		b, err := FetchFile(r, "test", tt.offset, tt.count)
		if tt.wantErr {
			if err == nil {
				t.Errorf("offset %d: expected error, got %q", tt.offset, b)
			}
			continue
		}
		if err != nil {
			t.Errorf("offset %d: expected no error, got %v", tt.offset, err)
		} else if string(b) != tt.want {
			t.Errorf("offset %d: expected %q, got %q", tt.offset, tt.want, b)
		}
	}
}

type mockReader struct {
	data map[string][]byte
}

// FstatRemote implements remote.Reader.
func (*mockReader) FstatRemote() (int64, error) {
	panic("unimplemented")
}

// Log implements remote.Reader.
func (*mockReader) Log() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// PreadRemote implements remote.Reader.
func (m *mockReader) PreadRemote(buf []byte, offset int64) (int, error) {
	d, ok := m.data[strconv.FormatInt(offset, 10)]
	if !ok {
		return 0, os.ErrNotExist
	}
	n := copy(buf, d)
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

var _ remote.Reader = &mockReader{}
