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

package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in cg, using Donald
// B. Johnson's algorithm from "Finding All The Elementary Circuits of a
// Directed Graph", 1975. Strongly connected components come from
// yourbasic/graph over the CGraph iterator. Self-loops are reported as
// two-element cycles [v, v].
func FindAllElementaryCycles(cg CGraph) [][]int64 {
	s := &circuitSearch{
		blocked:   map[int64]bool{},
		blockedOn: map[int64]map[int64]bool{},
	}
	for _, v := range cg.Keys {
		if cg.Edges[v][v] {
			s.found = append(s.found, []int64{v, v})
		}
	}
	nodeid := 0
	for nodeid < len(cg.Keys) {
		fg := Subgraph(cg, cg.Keys[nodeid:])
		components := graph.StrongComponents(fg)
		foundNontrivial := false
		for _, component := range components {
			if len(component) < 2 {
				continue
			}
			foundNontrivial = true
			sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
			least := component[0]
			nodeid = least
			s.stack = s.stack[:0]
			s.blocked = map[int64]bool{}
			s.blockedOn = map[int64]map[int64]bool{}
			s.circuit(int64(least), int64(least), fg)
			nodeid++
		}
		if !foundNontrivial {
			break
		}
	}
	return s.found
}

// circuitSearch holds the bookkeeping of Johnson's algorithm: the blocked
// set, the B-lists (blockedOn), the current path and the cycles found.
type circuitSearch struct {
	blocked   map[int64]bool
	blockedOn map[int64]map[int64]bool
	stack     []int64
	found     [][]int64
}

func (s *circuitSearch) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blockedOn[u] {
		if s.blocked[w] {
			s.unblock(w)
		}
	}
	delete(s.blockedOn, u)
}

func (s *circuitSearch) circuit(v int64, start int64, g CGraph) bool {
	closed := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for w := range g.Edges[v] {
		if w == start {
			if w != v { // self-loops are collected up front
				cycle := make([]int64, len(s.stack), len(s.stack)+1)
				copy(cycle, s.stack)
				s.found = append(s.found, append(cycle, w))
			}
			closed = true
		} else if !s.blocked[w] {
			if s.circuit(w, start, g) {
				closed = true
			}
		}
	}

	if closed {
		s.unblock(v)
	} else {
		for w := range g.Edges[v] {
			if s.blockedOn[w] == nil {
				s.blockedOn[w] = map[int64]bool{}
			}
			s.blockedOn[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return closed
}
