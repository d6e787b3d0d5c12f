// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package math

// Max64 returns the larger of x or y.
func Max64(x, y int64) int64 {
	if x > y {
		return x
	}
	return y
}

// Min64 returns the smaller of x or y.
func Min64(x, y int64) int64 {
	if x < y {
		return x
	}
	return y
}

// Min returns the smaller of x or y.
func Min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// AlignDown will align down the x by align. For example:
// AlignDown(1, 2) = 0
// AlignDown(29, 14) = 28
func AlignDown(x int64, align int64) int64 {
	return x / align * align
}

// AlignUp will align up the x by align. For example:
// AlignUp(1, 2) = 2
// AlignUp(28, 14) = 28
func AlignUp(x int64, align int64) int64 {
	return (x + align - 1) / align * align
}

// IsPowerOfTwo reports whether x is a positive power of two.
func IsPowerOfTwo(x int64) bool {
	return x > 0 && x&(x-1) == 0
}
