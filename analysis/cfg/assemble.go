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

package cfg

import (
	"github.com/reflowlabs/reflow/analysis/lang"
)

// RawBlock is one block of a pre-built graph, as emitted by an external
// CFG exporter. The index of the block in its function is its ID.
type RawBlock struct {
	IsEntry bool
	IsExit  bool
	Stmts   []lang.Stmt
	Succs   []int
	Span    lang.Range
}

// RawFunction is one function of a pre-built graph.
type RawFunction struct {
	Name   string
	Params []string
	Span   lang.Range
	Blocks []RawBlock
}

// Assemble validates pre-built graphs and turns them into the same Result
// the AST builder produces. It enforces the same well-formedness rules:
// exactly one entry and one exit per function, successor IDs in range, no
// function redefined, and no statements in blocks the entry cannot reach.
func Assemble(path string, fns []RawFunction) (*Result, error) {
	res := &Result{Path: path}
	seen := map[string]bool{}
	for i := range fns {
		raw := &fns[i]
		if seen[raw.Name] {
			return nil, lang.Errorf(path, raw.Span.Start, "function %s redefined", raw.Name)
		}
		seen[raw.Name] = true
		fn, err := assembleFunc(path, raw)
		if err != nil {
			return nil, err
		}
		res.Functions = append(res.Functions, fn)
	}
	return res, nil
}

func assembleFunc(path string, raw *RawFunction) (*Function, error) {
	entry, exit := -1, -1
	blocks := make([]*Block, len(raw.Blocks))
	for id := range raw.Blocks {
		rb := &raw.Blocks[id]
		kind := BodyBlock
		switch {
		case rb.IsEntry && rb.IsExit:
			return nil, lang.Errorf(path, raw.Span.Start, "function %s: block %d is both entry and exit", raw.Name, id)
		case rb.IsEntry:
			if entry >= 0 {
				return nil, lang.Errorf(path, raw.Span.Start, "function %s has more than one entry block", raw.Name)
			}
			entry, kind = id, EntryBlock
		case rb.IsExit:
			if exit >= 0 {
				return nil, lang.Errorf(path, raw.Span.Start, "function %s has more than one exit block", raw.Name)
			}
			exit, kind = id, ExitBlock
		}
		blocks[id] = &Block{ID: id, Kind: kind, Stmts: rb.Stmts, Span: rb.Span}
		for _, s := range rb.Succs {
			if s < 0 || s >= len(raw.Blocks) {
				return nil, lang.Errorf(path, raw.Span.Start, "function %s: block %d has successor %d out of range", raw.Name, id, s)
			}
			if !hasEdge(blocks[id].Succs, s) {
				blocks[id].Succs = append(blocks[id].Succs, s)
			}
		}
	}
	if entry < 0 {
		return nil, lang.Errorf(path, raw.Span.Start, "function %s has no entry block", raw.Name)
	}
	if exit < 0 {
		return nil, lang.Errorf(path, raw.Span.Start, "function %s has no exit block", raw.Name)
	}

	for _, blk := range blocks {
		for _, s := range blk.Succs {
			blocks[s].Preds = append(blocks[s].Preds, blk.ID)
		}
	}
	if err := checkReachable(path, blocks, entry); err != nil {
		return nil, err
	}

	info := &FunctionInfo{
		Name:   raw.Name,
		File:   path,
		Params: append([]string(nil), raw.Params...),
		Span:   raw.Span,
		Calls:  collectCalls(blocks),
	}
	return &Function{Info: info, Blocks: blocks, Entry: entry, Exit: exit}, nil
}

func hasEdge(succs []int, to int) bool {
	for _, s := range succs {
		if s == to {
			return true
		}
	}
	return false
}
