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

// Package graphutil adapts the labeled directed graphs built by the
// analyses to third-party graph libraries, so that strongly-connected
// component and cycle algorithms can run over them unchanged.
package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// CGraph is a directed graph over dense int64 node IDs with a string label
// per node. It satisfies both yourbasic/graph's Iterator interface and
// gonum's graph.Graph, so either library's algorithms apply.
type CGraph struct {
	// The order of the graph
	order int

	// Labels maps node IDs to display labels
	Labels map[int64]string

	// Keys holds all node IDs in increasing order
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed
	// edge from x to y
	Edges map[int64]map[int64]bool

	// preds is the reverse adjacency of Edges
	preds map[int64]map[int64]bool
}

var _ graph.Directed = CGraph{}

// New builds a CGraph from node labels and a successor map. Every node
// must appear as a key of labels; successor IDs not present in labels are
// dropped.
func New(labels map[int64]string, succs map[int64][]int64) CGraph {
	n := len(labels)
	edges := make(map[int64]map[int64]bool, n)
	preds := make(map[int64]map[int64]bool, n)
	keys := make([]int64, 0, n)
	for id := range labels {
		keys = append(keys, id)
		edges[id] = map[int64]bool{}
		if preds[id] == nil {
			preds[id] = map[int64]bool{}
		}
		for _, succ := range succs[id] {
			if _, ok := labels[succ]; ok {
				edges[id][succ] = true
				if preds[succ] == nil {
					preds[succ] = map[int64]bool{}
				}
				preds[succ][id] = true
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CGraph{
		order:  n,
		Labels: labels,
		Edges:  edges,
		preds:  preds,
		Keys:   keys,
	}
}

// Subgraph returns the graph restricted to the nodes in include. Only
// edges with both endpoints in include survive. The subgraph keeps the
// original's order and labels so node indices stay consistent across
// subgraphs, which the cycle search relies on.
func Subgraph(original CGraph, include []int64) CGraph {
	inSub := make(map[int64]bool, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		inSub[i] = true
	}

	preds := make(map[int64]map[int64]bool, len(include))
	for _, i := range include {
		edges[i] = map[int64]bool{}
		if preds[i] == nil {
			preds[i] = map[int64]bool{}
		}
		for e := range original.Edges[i] {
			if inSub[e] {
				edges[i][e] = true
				if preds[e] == nil {
					preds[e] = map[int64]bool{}
				}
				preds[e][i] = true
			}
		}
	}

	return CGraph{
		order:  original.Order(),
		Labels: original.Labels,
		Edges:  edges,
		preds:  preds,
		Keys:   keys,
	}
}

// Order implements yourbasic's graph.Iterator.
func (c CGraph) Order() int {
	return c.order
}

// Visit implements yourbasic's graph.Iterator.
func (c CGraph) Visit(v int, do func(w int, cost int64) (skip bool)) (aborted bool) {
	if _, ok := c.Edges[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// Node implements gonum's graph.Graph.
func (c CGraph) Node(id int64) graph.Node {
	if _, ok := c.Labels[id]; !ok {
		return nil
	}
	return CNode{id: id, label: c.Labels[id]}
}

// Nodes implements gonum's graph.Graph.
func (c CGraph) Nodes() graph.Nodes {
	ids := make([]int64, len(c.Keys))
	copy(ids, c.Keys)
	return &NodeSet{labels: c.Labels, ids: ids, cur: -1}
}

// From implements gonum's graph.Graph, returning the successors of id.
func (c CGraph) From(id int64) graph.Nodes {
	var ids []int64
	for out := range c.Edges[id] {
		ids = append(ids, out)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &NodeSet{labels: c.Labels, ids: ids, cur: -1}
}

// To implements gonum's graph.Directed, returning the predecessors of id.
func (c CGraph) To(id int64) graph.Nodes {
	var ids []int64
	for in := range c.preds[id] {
		ids = append(ids, in)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &NodeSet{labels: c.Labels, ids: ids, cur: -1}
}

// HasEdgeBetween implements gonum's graph.Graph; direction is ignored.
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo implements gonum's graph.Directed.
func (c CGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge implements gonum's graph.Graph; nil when no edge exists.
func (c CGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return CEdge{
			from: CNode{id: uid, label: c.Labels[uid]},
			to:   CNode{id: vid, label: c.Labels[vid]},
		}
	}
	return nil
}

// CNode is a labeled node implementing gonum's graph.Node.
type CNode struct {
	id    int64
	label string
}

// ID returns the id of the node.
func (n CNode) ID() int64 { return n.id }

func (n CNode) String() string { return n.label }

// NodeSet iterates over a fixed set of node IDs, implementing gonum's
// graph.Nodes contract: Next must be called before the first Node.
type NodeSet struct {
	labels map[int64]string
	ids    []int64
	cur    int
}

// Next advances the iterator and reports whether Node is valid.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	ns.cur = len(ns.ids)
	return false
}

// Len returns the number of nodes remaining.
func (ns *NodeSet) Len() int {
	if ns.cur >= len(ns.ids) {
		return 0
	}
	return len(ns.ids) - ns.cur - 1
}

// Reset rewinds the iterator.
func (ns *NodeSet) Reset() { ns.cur = -1 }

// Node returns the current node.
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	id := ns.ids[ns.cur]
	return CNode{id: id, label: ns.labels[id]}
}

// CEdge implements gonum's graph.Edge.
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge.
func (e CEdge) From() graph.Node { return e.from }

// To returns the destination of the edge.
func (e CEdge) To() graph.Node { return e.to }

// ReversedEdge returns a new value representing the reversed edge.
func (e CEdge) ReversedEdge() graph.Edge {
	return CEdge{from: e.to, to: e.from}
}
