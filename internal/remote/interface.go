// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package remote reads objects from the slow storage a block cache sits in front of.
package remote

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Reader provides a read-only interface to a remote file.
type Reader interface {
	// PreadRemote is like pread but to a remote file.
	PreadRemote(buf []byte, offset int64) (int, error)

	// FstatRemote stats a remote file.
	FstatRemote() (int64, error)

	// Log returns the logger with context for this reader.
	Log() *zerolog.Logger
}

// Error describes an error that occurred during a remote operation.
type Error struct {
	*http.Response
	error
}

// Error returns the message of the wrapped error and the response status, if any.
func (e Error) Error() string {
	if e.Response == nil {
		return e.error.Error()
	}
	return fmt.Sprintf("%v (status: %d)", e.error, e.StatusCode)
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.error
}
