// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var fileCnt int32

// writeBlockFile creates name with the given content.
func writeBlockFile(l zerolog.Logger, name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := writeAll(file, data); err != nil {
		_ = file.Close()
		if rerr := os.Remove(name); rerr != nil {
			l.Error().Err(rerr).Str("name", name).Msg("attempted to remove file because the write failed")
		}
		return err
	}

	if err := file.Close(); err != nil {
		return err
	}

	count := atomic.AddInt32(&fileCnt, 1)
	l.Debug().Str("name", name).Int32("count", count).Msg("block file written")
	return nil
}

// readBlockFile reads the entire block file, which must hold exactly size bytes.
func readBlockFile(name string, size int64) ([]byte, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b, err := readFromStart(file)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) != size {
		return nil, io.ErrUnexpectedEOF
	}
	return b, nil
}

// readBlockFileAt fills dst from the block file starting at off.
func readBlockFileAt(name string, dst []byte, off int64) (int, error) {
	file, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n, err := file.ReadAt(dst, off)
	if n == len(dst) {
		return n, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// dropBlockFile deletes a block file. A missing file is not an error.
func dropBlockFile(l zerolog.Logger, name string) {
	if err := os.Remove(name); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.Error().Err(err).Str("name", name).Msg("failed to remove file")
		}
		return
	}

	count := atomic.AddInt32(&fileCnt, -1)
	l.Debug().Str("name", name).Int32("count", count).Msg("block file drop")
}

// readFromStart reads the entire file from the beginning.
func readFromStart(file *os.File) ([]byte, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	fileSize := info.Size()
	fileContent := make([]byte, fileSize)
	offset := int64(0)

	for offset < fileSize && err == nil {
		var l int
		l, err = file.ReadAt(fileContent[offset:], offset)
		offset += int64(l)
	}
	if err == io.EOF {
		err = nil
	}

	if err != nil {
		return nil, err
	}

	if offset != fileSize {
		return nil, io.ErrUnexpectedEOF
	}

	return fileContent[:offset], nil
}

// writeAll writes the whole buffer to the file.
func writeAll(file *os.File, buff []byte) (int, error) {
	written := 0
	for written < len(buff) {
		n, err := file.Write(buff[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
