// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package blockcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathSeparator separates entries of a disk path list.
const PathSeparator = ";"

// ParseCachePaths parses a list of disk cache directories such as "/disk1/cache; /disk2/cache".
//
// Every entry is trimmed, stripped of trailing slashes, validated and created. All entries are processed:
// the valid ones are returned even when the error is not nil, and the error joins one ErrInvalidConfig per
// invalid entry. Callers must check the error, not just the returned list.
func ParseCachePaths(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var paths []string
	var errs []error
	seen := map[string]bool{}

	for _, entry := range strings.Split(s, PathSeparator) {
		p, err := parseCachePath(entry)
		if err == nil && seen[p] {
			err = fmt.Errorf("%w: duplicate cache path %q", ErrInvalidConfig, entry)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}

	return paths, errors.Join(errs...)
}

// parseCachePath validates one entry and returns its canonical form.
func parseCachePath(entry string) (string, error) {
	p := strings.TrimRight(strings.TrimSpace(entry), "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty cache path %q", ErrInvalidConfig, entry)
	}
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: cache path %q is not absolute", ErrInvalidConfig, p)
	}

	for _, c := range strings.Split(p[1:], "/") {
		if c == "" {
			return "", fmt.Errorf("%w: cache path %q has an empty component", ErrInvalidConfig, p)
		}
		if !portable(c) {
			return "", fmt.Errorf("%w: cache path %q has an invalid component %q", ErrInvalidConfig, p, c)
		}
	}

	if err := os.MkdirAll(p, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create cache path %q: %w", ErrInvalidConfig, p, err)
	}
	canonical, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve cache path %q: %w", ErrInvalidConfig, p, err)
	}
	return canonical, nil
}

// portable reports whether a path component only uses the POSIX portable filename character set.
func portable(c string) bool {
	for _, r := range c {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// ParseDiskSpaces parses a disk path list and gives every path the same quota.
func ParseDiskSpaces(s string, quota int64) ([]DiskSpace, error) {
	paths, err := ParseCachePaths(s)
	spaces := make([]DiskSpace, 0, len(paths))
	for _, p := range paths {
		spaces = append(spaces, DiskSpace{Path: p, Size: quota})
	}
	return spaces, err
}
