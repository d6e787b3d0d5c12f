// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package files reads remote files through a block cache.
package files

import (
	"io"

	"github.com/azure/blockcache/internal/remote"
)

// FetchFile gets count bytes of a file from the given offset using a remote reader.
// The result is shorter than count if the file ends first.
func FetchFile(r remote.Reader, name string, offset int64, count int) ([]byte, error) {
	d := make([]byte, count)
	l := r.Log().With().Str("name", name).Int64("offset", offset).Int("count", count).Logger()
	l.Debug().Msg("fetch file start")

	n, err := r.PreadRemote(d, offset)
	if err != nil && err != io.EOF {
		l.Error().Err(err).Msg("fetch file error")
		return nil, err
	}

	l.Debug().Int("read", n).Msg("fetch file stop")
	return d[:n], nil
}
