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

package callgraph

import (
	"sort"

	"github.com/yourbasic/graph"

	"github.com/reflowlabs/reflow/internal/funcutil"
	"github.com/reflowlabs/reflow/internal/graphutil"
)

// Recursive lists the functions taking part in a call cycle, self-calls
// included, in sorted order. External nodes never qualify since they
// have no outgoing edges.
func (g *Graph) Recursive() []string {
	rec := map[string]bool{}
	for _, comp := range graph.StrongComponents(g.cg) {
		if len(comp) < 2 {
			continue
		}
		for _, v := range comp {
			rec[g.names[v]] = true
		}
	}
	for name, id := range g.ids {
		if g.cg.Edges[id][id] {
			rec[name] = true
		}
	}
	return funcutil.SetToOrderedSlice(rec)
}

// Cycles enumerates the elementary call cycles as closed name paths
// (first and last element equal). Each cycle starts at its least node
// and the list is sorted, so the output is stable across runs.
func (g *Graph) Cycles() [][]string {
	raw := graphutil.FindAllElementaryCycles(g.cg)
	cycles := make([][]string, 0, len(raw))
	for _, ids := range raw {
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = g.names[id]
		}
		cycles = append(cycles, names)
	}
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return cycles
}
