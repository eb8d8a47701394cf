// Copyright Reflow Labs, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataflow

import "golang.org/x/exp/constraints"

// Sets are sorted slices without duplicates. Solver facts are sets of
// interned indices; taint label sets are sets of strings. Both share the
// merge below.

// union returns a ∪ b, and whether the result is the same as `a` (first
// arg). The caller uses sameAsA as its change signal.
func union[E constraints.Ordered](a, b []E) (r []E, sameAsA bool) {
	if len(b) == 0 {
		return a, true
	}
	r = make([]E, 0, len(a)+len(b))
	sameAsA = true
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			r = append(r, a[i])
			i++
		case a[i] > b[j]:
			r = append(r, b[j])
			j++
			sameAsA = false
		default:
			r = append(r, a[i])
			i++
			j++
		}
	}
	r = append(r, a[i:]...)
	if j < len(b) {
		r = append(r, b[j:]...)
		sameAsA = false
	}
	return r, sameAsA
}

// minus returns a − b.
func minus[E constraints.Ordered](a, b []E) []E {
	if len(a) == 0 || len(b) == 0 {
		return a
	}
	var r []E
	j := 0
	for _, x := range a {
		for j < len(b) && b[j] < x {
			j++
		}
		if j < len(b) && b[j] == x {
			continue
		}
		r = append(r, x)
	}
	return r
}

// insert adds x to the sorted set in place of a.
func insert[E constraints.Ordered](a []E, x E) []E {
	i := 0
	for i < len(a) && a[i] < x {
		i++
	}
	if i < len(a) && a[i] == x {
		return a
	}
	a = append(a, x)
	copy(a[i+1:], a[i:])
	a[i] = x
	return a
}

func has[E constraints.Ordered](a []E, x E) bool {
	for _, y := range a {
		if y == x {
			return true
		}
		if y > x {
			return false
		}
	}
	return false
}

func sameSet[E constraints.Ordered](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
