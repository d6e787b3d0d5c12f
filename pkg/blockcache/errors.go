// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package blockcache

import (
	"errors"

	"github.com/azure/blockcache/internal/engine"
)

var (
	// ErrInvalidConfig is returned by Init when the options cannot be used.
	ErrInvalidConfig = engine.ErrInvalidConfig

	// ErrInvalidArgument is returned for empty or negative ranges.
	ErrInvalidArgument = engine.ErrInvalidArgument

	// ErrAlreadyExists is returned by a write without overwrite that targets a cached block.
	ErrAlreadyExists = engine.ErrAlreadyExists

	// ErrNotFound is the cache miss signal.
	ErrNotFound = engine.ErrNotFound

	// ErrResourceExhausted is returned when a write cannot be admitted. Callers may retry later.
	ErrResourceExhausted = engine.ErrResourceExhausted

	// ErrInternal is returned once the cache has recorded a fatal fault. The cache should be replaced.
	ErrInternal = engine.ErrInternal

	// ErrShutdown is returned by a cache that has been shut down.
	ErrShutdown = engine.ErrShutdown

	// ErrNotInitialized is returned by operations on a cache that has not been initialized.
	ErrNotInitialized = errors.New("cache is not initialized")

	// ErrAlreadyInitialized is returned by Init on an active cache.
	ErrAlreadyInitialized = errors.New("cache is already initialized")
)
