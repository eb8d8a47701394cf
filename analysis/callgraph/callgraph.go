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

// Package callgraph builds the cross-file call graph over a snapshot's
// function table and answers recursion, cycle and rendering queries on
// it. Nodes are function names. Callees with no definition in the
// snapshot appear as external nodes, so dangling edges stay visible
// instead of silently vanishing from the graph.
package callgraph

import (
	"gonum.org/v1/gonum/graph"

	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/internal/funcutil"
	"github.com/reflowlabs/reflow/internal/graphutil"
)

// Graph is the call graph of one snapshot. Node IDs are dense, with the
// snapshot's defined functions first in name order, then the external
// callees in name order.
type Graph struct {
	snap  *state.Snapshot
	names []string
	ids   map[string]int64
	ndef  int
	cg    graphutil.CGraph
}

// Build constructs the call graph of snap.
func Build(snap *state.Snapshot) *Graph {
	defined := funcutil.SortedKeys(snap.Functions)
	external := map[string]bool{}
	for _, name := range defined {
		for _, e := range snap.Functions[name].Calls {
			if !snap.Resolves(e.Callee) {
				external[e.Callee] = true
			}
		}
	}
	names := append([]string{}, defined...)
	names = append(names, funcutil.SetToOrderedSlice(external)...)

	g := &Graph{
		snap:  snap,
		names: names,
		ids:   make(map[string]int64, len(names)),
		ndef:  len(defined),
	}
	labels := make(map[int64]string, len(names))
	for i, name := range names {
		g.ids[name] = int64(i)
		labels[int64(i)] = name
	}
	succs := map[int64][]int64{}
	for _, name := range defined {
		id := g.ids[name]
		for _, e := range snap.Functions[name].Calls {
			succs[id] = append(succs[id], g.ids[e.Callee])
		}
	}
	g.cg = graphutil.New(labels, succs)
	return g
}

// Size returns the number of defined and external nodes.
func (g *Graph) Size() (defined, external int) {
	return g.ndef, len(g.names) - g.ndef
}

// ID returns the node ID of a function name.
func (g *Graph) ID(name string) (int64, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// Name returns the function name of a node ID.
func (g *Graph) Name(id int64) (string, bool) {
	if id < 0 || id >= int64(len(g.names)) {
		return "", false
	}
	return g.names[id], true
}

// Directed exposes the call graph in gonum form, so gonum's algorithms
// can run over it. IDs translate through ID and Name.
func (g *Graph) Directed() graph.Directed { return g.cg }
