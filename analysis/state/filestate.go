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

package state

import (
	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/scanner"
)

// StmtView is one rendered statement of a block.
type StmtView struct {
	Text string     `json:"text"`
	Span lang.Range `json:"span"`
}

// BlockView is the display form of a basic block.
type BlockView struct {
	ID    int        `json:"id"`
	Label string     `json:"label"`
	Span  lang.Range `json:"span"`
	Succs []int      `json:"succs,omitempty"`
	Preds []int      `json:"preds,omitempty"`
	Stmts []StmtView `json:"stmts,omitempty"`
}

// BlockFacts carries the converged dataflow facts at one block's
// boundaries.
type BlockFacts struct {
	LiveIn   []string            `json:"liveIn,omitempty"`
	LiveOut  []string            `json:"liveOut,omitempty"`
	ReachIn  []dataflow.Def      `json:"reachIn,omitempty"`
	ReachOut []dataflow.Def      `json:"reachOut,omitempty"`
	TaintIn  map[string][]string `json:"taintIn,omitempty"`
	TaintOut map[string][]string `json:"taintOut,omitempty"`
}

// FuncView is the per-function slice of a FileState. Info is the same
// immutable record the snapshot's function table points to. Blocks and
// Facts are indexed by block ID.
type FuncView struct {
	Info   *cfg.FunctionInfo     `json:"info"`
	Blocks []BlockView           `json:"blocks"`
	Facts  []BlockFacts          `json:"facts"`
	Diags  []dataflow.Diagnostic `json:"diags,omitempty"`
}

// FileState is everything one committed update produced for one file.
// It holds plain data, not solver structures, so queries and the store
// can consume it directly. A FileState is built once and never mutated;
// snapshots replace a file's entry wholesale.
type FileState struct {
	Path      string            `json:"path"`
	Functions []*FuncView       `json:"functions"`
	Findings  []scanner.Finding `json:"findings,omitempty"`
}

// Function returns the view of the named function, or nil.
func (fs *FileState) Function(name string) *FuncView {
	for _, fv := range fs.Functions {
		if fv.Info.Name == name {
			return fv
		}
	}
	return nil
}

// NewFileState renders one file's solver results and findings into the
// form snapshots carry.
func NewFileState(path string, results []*dataflow.FuncResult, findings []scanner.Finding) *FileState {
	fs := &FileState{Path: path, Findings: findings}
	for _, res := range results {
		fv := &FuncView{Info: res.Fn.Info, Diags: res.Diags}
		for _, blk := range res.Fn.Blocks {
			bv := BlockView{
				ID:    blk.ID,
				Label: blk.Label(),
				Span:  blk.Span,
				Succs: blk.Succs,
				Preds: blk.Preds,
			}
			for _, st := range blk.Stmts {
				bv.Stmts = append(bv.Stmts, StmtView{
					Text: lang.StmtString(st),
					Span: lang.Range{Start: st.Pos(), End: st.End()},
				})
			}
			fv.Blocks = append(fv.Blocks, bv)
			fv.Facts = append(fv.Facts, BlockFacts{
				LiveIn:   res.LiveIn(blk.ID),
				LiveOut:  res.LiveOut(blk.ID),
				ReachIn:  res.ReachIn(blk.ID),
				ReachOut: res.ReachOut(blk.ID),
				TaintIn:  res.TaintIn(blk.ID),
				TaintOut: res.TaintOut(blk.ID),
			})
		}
		fs.Functions = append(fs.Functions, fv)
	}
	return fs
}
