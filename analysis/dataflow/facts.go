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

import (
	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
)

// defSite identifies one definition of a variable. Definitions are numbered
// in walk order (parameters first, then statements block by block), so a
// definition id doubles as a stable display order.
type defSite struct {
	Var    int // interned variable
	Block  int
	Index  int // statement index in the block; -1 for parameter bindings
	Strong bool
	Pos    lang.Pos
}

// blockFacts holds the local facts of one block that the equations consume.
type blockFacts struct {
	// use and def drive liveness: use holds the upward-exposed reads, def
	// the strongly defined variables.
	use []int
	def []int

	// gen and kill drive reaching definitions, as definition ids.
	gen  []int
	kill []int

	// defs lists the block's definition sites in statement order.
	defs []int
}

// funcIndex interns the variables and definition sites of one function and
// precomputes the per-block fact tables. All three analyses of a function
// share one index.
type funcIndex struct {
	fn     *cfg.Function
	vars   []string
	varID  map[string]int
	defs   []defSite
	defsOf [][]int // per variable, definition ids in ascending order
	blocks []blockFacts
}

func newFuncIndex(fn *cfg.Function) *funcIndex {
	ix := &funcIndex{fn: fn, varID: map[string]int{}}
	// Parameters bind at the entry block, before any statement runs.
	for _, p := range fn.Info.Params {
		v := ix.intern(p)
		ix.addDef(defSite{Var: v, Block: fn.Entry, Index: -1, Strong: true, Pos: fn.Info.Span.Start})
	}
	for _, blk := range fn.Blocks {
		for j, s := range blk.Stmts {
			for _, name := range lang.Reads(s) {
				ix.intern(name)
			}
			if name, ok := lang.Def(s); ok {
				v := ix.intern(name)
				ix.addDef(defSite{Var: v, Block: blk.ID, Index: j, Strong: lang.StrongDef(s), Pos: s.Pos()})
			}
		}
	}
	ix.blocks = make([]blockFacts, len(fn.Blocks))
	for id, d := range ix.defs {
		bf := &ix.blocks[d.Block]
		bf.defs = append(bf.defs, id)
	}
	for i := range fn.Blocks {
		ix.buildBlockFacts(i)
	}
	return ix
}

func (ix *funcIndex) intern(name string) int {
	if id, ok := ix.varID[name]; ok {
		return id
	}
	id := len(ix.vars)
	ix.vars = append(ix.vars, name)
	ix.varID[name] = id
	ix.defsOf = append(ix.defsOf, nil)
	return id
}

func (ix *funcIndex) addDef(d defSite) {
	id := len(ix.defs)
	ix.defs = append(ix.defs, d)
	ix.defsOf[d.Var] = append(ix.defsOf[d.Var], id)
}

func (ix *funcIndex) buildBlockFacts(i int) {
	blk := ix.fn.Blocks[i]
	bf := &ix.blocks[i]

	// Liveness locals. A read is upward-exposed unless a strong definition
	// of the same variable came earlier in the block; compound assignments
	// and element stores read their own variable, which lang.Reads already
	// reports.
	for _, s := range blk.Stmts {
		for _, name := range lang.Reads(s) {
			v := ix.varID[name]
			if !has(bf.def, v) {
				bf.use = insert(bf.use, v)
			}
		}
		if name, ok := lang.Def(s); ok && lang.StrongDef(s) {
			bf.def = insert(bf.def, ix.varID[name])
		}
	}

	// Reaching-definition locals. cur tracks, per variable, the definitions
	// of this block still reaching its end: a strong definition restarts the
	// list, a weak one extends it.
	cur := map[int][]int{}
	strong := map[int]bool{}
	for _, id := range bf.defs {
		d := ix.defs[id]
		if d.Strong {
			cur[d.Var] = []int{id}
			strong[d.Var] = true
		} else {
			cur[d.Var] = append(cur[d.Var], id)
		}
	}
	for _, ids := range cur {
		for _, id := range ids {
			bf.gen = insert(bf.gen, id)
		}
	}
	// Only strong definitions stop outside definitions from flowing
	// through.
	for v := range strong {
		bf.kill, _ = union(bf.kill, minus(ix.defsOf[v], bf.gen))
	}
}

// lookup returns the interned id of a variable seen during indexing.
func (ix *funcIndex) lookup(name string) (int, bool) {
	v, ok := ix.varID[name]
	return v, ok
}
