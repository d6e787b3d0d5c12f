// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import "errors"

var (
	// ErrInvalidConfig is returned when the configuration cannot be used to start an engine.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrInvalidArgument is returned for ranges an engine cannot address.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists is returned when a write without overwrite targets a cached block.
	ErrAlreadyExists = errors.New("block already exists")

	// ErrNotFound is the cache miss signal.
	ErrNotFound = errors.New("block not found")

	// ErrResourceExhausted is returned when a write cannot be admitted.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrInternal is returned for faults that make the engine unusable.
	ErrInternal = errors.New("internal cache error")

	// ErrShutdown is returned by an engine that has been shut down.
	ErrShutdown = errors.New("cache is shut down")
)
