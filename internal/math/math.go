// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package math summarizes benchmark samples.
package math

import (
	"crypto/rand"
	"math/big"
	"sort"
)

// PercentilesFloat64Reverse calculates the percentiles of a slice of floats sorted in descending order,
// so that p90 is the value 90% of the samples reach. xs is sorted in place.
// NOTE: The unit of each value of xs is bytes per second and the result is MiB per second.
func PercentilesFloat64Reverse(xs []float64, ps ...float64) []float64 {
	if len(xs) == 0 {
		return nil
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(xs)))
	results := make([]float64, 0, len(ps))

	for _, p := range ps {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}

		i := int(float64(len(xs)-1) * p)
		results = append(results, xs[i]/1024/1024)
	}

	return results
}

// RandomizedGroups shuffles s in place and splits it into groups of at most n elements.
func RandomizedGroups[T any](s []T, n int) [][]T {
	if n <= 0 {
		n = 1
	}
	numGroups := (len(s) + n - 1) / n
	groups := make([][]T, 0, numGroups)

	// Fisher-Yates with a crypto source.
	for i := range s {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			panic(err)
		}
		s[i], s[j.Int64()] = s[j.Int64()], s[i]
	}

	for i := 0; i < len(s); i += n {
		groups = append(groups, append([]T(nil), s[i:min(i+n, len(s))]...))
	}

	return groups
}
