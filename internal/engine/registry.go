// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultRegistry is the registry used by engines that are not given one.
var DefaultRegistry = NewRegistry()

// Registry records which engine owns which disk path. A path may be owned by one engine at a time.
type Registry struct {
	lock   sync.Mutex
	owners map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: map[string]string{}}
}

// Claim gives owner all paths, or none of them if any overlaps a path already owned.
// The paths must not overlap each other either.
func (r *Registry) Claim(owner string, paths ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for i, p := range paths {
		for owned, o := range r.owners {
			if overlaps(p, owned) {
				return fmt.Errorf("%w: disk path %v overlaps %v used by cache %v", ErrInvalidConfig, p, owned, o)
			}
		}
		for _, q := range paths[i+1:] {
			if overlaps(p, q) {
				return fmt.Errorf("%w: disk paths %v and %v overlap", ErrInvalidConfig, p, q)
			}
		}
	}
	for _, p := range paths {
		r.owners[p] = owner
	}
	return nil
}

// Release gives up all paths owned by owner.
func (r *Registry) Release(owner string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for p, o := range r.owners {
		if o == owner {
			delete(r.owners, p)
		}
	}
}

// Owner returns the owner of a path.
func (r *Registry) Owner(path string) (string, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	o, ok := r.owners[path]
	return o, ok
}

// overlaps reports whether one of the clean absolute paths a and b is the other or lies under it.
func overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}

func within(parent, p string) bool {
	rel, err := filepath.Rel(parent, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
