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

// Package cfg turns the syntax trees produced by the front ends into
// per-function control flow graphs. Blocks hold only straight-line
// statements; branching statements are split into a CondStmt in the
// branching block and edges to the successor blocks. Block IDs are dense
// integers starting at 0 so that downstream solvers and graph algorithms
// can index arrays by block.
package cfg

import (
	"fmt"

	"github.com/reflowlabs/reflow/analysis/lang"
)

// BlockKind distinguishes the two synthetic blocks of every function from
// ordinary body blocks.
type BlockKind int

const (
	// BodyBlock is an ordinary basic block.
	BodyBlock BlockKind = iota
	// EntryBlock is the unique entry of a function. It holds no statements.
	EntryBlock
	// ExitBlock is the unique exit of a function. Every return and every
	// fallthrough off the end of the body leads here.
	ExitBlock
)

func (k BlockKind) String() string {
	switch k {
	case EntryBlock:
		return "entry"
	case ExitBlock:
		return "exit"
	default:
		return "body"
	}
}

// Block is a basic block. Succs and Preds hold block IDs of the same
// function.
type Block struct {
	ID    int
	Kind  BlockKind
	Stmts []lang.Stmt
	Succs []int
	Preds []int
	Span  lang.Range
}

// Label returns the display name of the block, "Entry", "Exit" or "B<id>".
func (b *Block) Label() string {
	switch b.Kind {
	case EntryBlock:
		return "Entry"
	case ExitBlock:
		return "Exit"
	default:
		return fmt.Sprintf("B%d", b.ID)
	}
}

// CallEdge records one call site inside a function. Whether the callee is
// defined anywhere is not stored here: resolution is a property of a whole
// snapshot and is derived against its function table.
type CallEdge struct {
	Callee string   `json:"callee"`
	Site   lang.Pos `json:"site"`
}

// FunctionInfo is the interface-level description of a function, the part
// that outlives an update and is shared through snapshots. It carries no
// pointers into the graph.
type FunctionInfo struct {
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Params []string   `json:"params,omitempty"`
	Span   lang.Range `json:"span"`
	Calls  []CallEdge `json:"calls,omitempty"`
}

// Function is one function's control flow graph. Blocks[i].ID == i.
type Function struct {
	Info   *FunctionInfo
	Blocks []*Block
	Entry  int
	Exit   int
}

// Block returns the block with the given ID, or nil if out of range.
func (f *Function) Block(id int) *Block {
	if id < 0 || id >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// Result is the outcome of building one file. Functions are in source
// order. Directives are the analysis annotations the front end collected
// from comments.
type Result struct {
	Path       string
	Functions  []*Function
	Directives []lang.Directive
}

// Function returns the named function of the file, or nil.
func (r *Result) Function(name string) *Function {
	for _, f := range r.Functions {
		if f.Info.Name == name {
			return f
		}
	}
	return nil
}
