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
	"sort"

	"github.com/reflowlabs/reflow/analysis/lang"
)

// Diagnostic kinds derived from the converged solutions.
const (
	// UnusedAssignment marks an assignment whose variable is dead
	// immediately after it.
	UnusedAssignment = "unused-assignment"

	// UndefinedUse marks a read with no reaching definition and no
	// parameter binding.
	UndefinedUse = "undefined-use"
)

// Diagnostic is a per-function dataflow observation that is not a security
// finding.
type Diagnostic struct {
	Kind string   `json:"kind"`
	Var  string   `json:"var"`
	Pos  lang.Pos `json:"pos"`
}

func (r *FuncResult) diagnostics() []Diagnostic {
	out := r.unusedAssignments()
	out = append(out, r.undefinedUses()...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos.Before(out[j].Pos)
		}
		if out[i].Var != out[j].Var {
			return out[i].Var < out[j].Var
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// unusedAssignments replays liveness backward through each block, starting
// from the converged liveOut set. Bare declarations do not count: only a
// statement that stores a value can store one in vain.
func (r *FuncResult) unusedAssignments() []Diagnostic {
	ix := r.ix
	var out []Diagnostic
	for _, blk := range r.Fn.Blocks {
		live := append([]int(nil), r.liveOut[blk.ID]...)
		for i := len(blk.Stmts) - 1; i >= 0; i-- {
			s := blk.Stmts[i]
			if name, ok := lang.Def(s); ok && lang.StrongDef(s) {
				v, _ := ix.lookup(name)
				if assignsValue(s) && !has(live, v) {
					out = append(out, Diagnostic{Kind: UnusedAssignment, Var: name, Pos: s.Pos()})
				}
				live = minus(live, []int{v})
			}
			for _, name := range lang.Reads(s) {
				if v, ok := ix.lookup(name); ok {
					live = insert(live, v)
				}
			}
		}
	}
	return out
}

func assignsValue(s lang.Stmt) bool {
	switch x := s.(type) {
	case *lang.DeclStmt:
		return x.Init != nil
	case *lang.AssignStmt:
		return true
	}
	return false
}

// undefinedUses replays reaching definitions forward through each block,
// starting from the converged in set. Parameter bindings are definitions,
// so a parameter read never trips this.
func (r *FuncResult) undefinedUses() []Diagnostic {
	ix := r.ix
	var out []Diagnostic
	for _, blk := range r.Fn.Blocks {
		defined := map[int]bool{}
		for _, id := range r.rdIn[blk.ID] {
			defined[ix.defs[id].Var] = true
		}
		for _, s := range blk.Stmts {
			for _, name := range lang.Reads(s) {
				if v, ok := ix.lookup(name); ok && !defined[v] {
					out = append(out, Diagnostic{Kind: UndefinedUse, Var: name, Pos: s.Pos()})
				}
			}
			if name, ok := lang.Def(s); ok {
				if v, ok := ix.lookup(name); ok {
					defined[v] = true
				}
			}
		}
	}
	return out
}
