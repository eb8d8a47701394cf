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
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/internal/funcutil"
)

// ErrNonTermination reports a fixed-point loop that exceeded its iteration
// cap. Errors returned by the solvers unwrap to it.
var ErrNonTermination = errors.New("fixed point not reached within the iteration cap")

// SolveError identifies the function and analysis whose loop overran.
type SolveError struct {
	Function   string
	Analysis   string
	Iterations int
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%s analysis of %s did not converge after %d sweeps", e.Analysis, e.Function, e.Iterations)
}

func (e *SolveError) Unwrap() error { return ErrNonTermination }

// Options parameterize a solver run.
type Options struct {
	// Rules are the compiled taint tables. Nil runs the taint pass with
	// empty tables.
	Rules *config.TaintRules

	// MaxIterations caps every fixed-point loop when positive. Zero
	// derives the cap from the function size.
	MaxIterations int

	// Parallelism bounds the goroutines of AnalyzeAll. Non-positive uses
	// the number of CPUs.
	Parallelism int
}

// sweepCap returns the iteration guard for one analysis: generous enough
// that a monotone solver can never hit it, small enough to stop a broken
// transfer function quickly.
func sweepCap(blocks, facts, configured int) int {
	if configured > 0 {
		return configured
	}
	c := blocks*(facts+1) + 8
	if c < 16 {
		c = 16
	}
	return c
}

// FuncResult carries the converged solutions of one function. Accessors
// translate the interned facts back to variable names; the zero-exposure
// rule is that a FuncResult either has all three solutions or does not
// exist.
type FuncResult struct {
	Fn *cfg.Function

	// Diags are the derived dataflow diagnostics, in source order.
	Diags []Diagnostic

	ix                *funcIndex
	rules             *config.TaintRules
	liveIn, liveOut   [][]int
	rdIn, rdOut       [][]int
	taintIn, taintOut []taintEnv
}

// Analyze runs liveness, reaching definitions and taint propagation over
// one function and derives its diagnostics. It returns an error wrapping
// ErrNonTermination when any loop exceeds its cap; no partial result is
// returned in that case.
func Analyze(fn *cfg.Function, opts Options) (*FuncResult, error) {
	rules := opts.Rules
	if rules == nil {
		rules = &config.TaintRules{}
	}
	ix := newFuncIndex(fn)
	nb := len(fn.Blocks)

	liveIn, liveOut, err := ix.liveness(sweepCap(nb, len(ix.vars), opts.MaxIterations))
	if err != nil {
		return nil, err
	}
	rdIn, rdOut, err := ix.reachingDefs(sweepCap(nb, len(ix.defs), opts.MaxIterations))
	if err != nil {
		return nil, err
	}
	taintIn, taintOut, err := ix.taint(rules, sweepCap(nb, len(ix.vars)*(rules.NumSources()+1), opts.MaxIterations))
	if err != nil {
		return nil, err
	}

	r := &FuncResult{
		Fn:      fn,
		ix:      ix,
		rules:   rules,
		liveIn:  liveIn,
		liveOut: liveOut,
		rdIn:    rdIn,
		rdOut:   rdOut,
		taintIn: taintIn, taintOut: taintOut,
	}
	r.Diags = r.diagnostics()
	return r, nil
}

// AnalyzeAll solves every function of a file. Functions are independent,
// so they are spread across goroutines; results come back in input order
// and the first error (in input order) wins.
func AnalyzeAll(fns []*cfg.Function, opts Options) ([]*FuncResult, error) {
	routines := opts.Parallelism
	if routines <= 0 {
		routines = runtime.NumCPU()
	}
	type outcome struct {
		res *FuncResult
		err error
	}
	outs := funcutil.MapParallel(fns, func(fn *cfg.Function) outcome {
		res, err := Analyze(fn, opts)
		return outcome{res, err}
	}, routines)
	results := make([]*FuncResult, len(outs))
	for i, o := range outs {
		if o.err != nil {
			return nil, o.err
		}
		results[i] = o.res
	}
	return results, nil
}

// Vars returns the function's variables in first-appearance order,
// parameters first.
func (r *FuncResult) Vars() []string {
	return append([]string(nil), r.ix.vars...)
}

// LiveIn returns the variables live on entry to the block, sorted by name.
func (r *FuncResult) LiveIn(block int) []string { return r.names(r.liveIn[block]) }

// LiveOut returns the variables live on exit from the block, sorted by
// name.
func (r *FuncResult) LiveOut(block int) []string { return r.names(r.liveOut[block]) }

func (r *FuncResult) names(vars []int) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, r.ix.vars[v])
	}
	sort.Strings(out)
	return out
}

// Def describes one reaching definition site.
type Def struct {
	Var string   `json:"var"`
	Pos lang.Pos `json:"pos"`
}

// ReachIn returns the definitions reaching the block entry, in definition
// order (parameter bindings first, then source order).
func (r *FuncResult) ReachIn(block int) []Def { return r.defViews(r.rdIn[block]) }

// ReachOut returns the definitions reaching the block exit.
func (r *FuncResult) ReachOut(block int) []Def { return r.defViews(r.rdOut[block]) }

func (r *FuncResult) defViews(ids []int) []Def {
	out := make([]Def, 0, len(ids))
	for _, id := range ids {
		d := r.ix.defs[id]
		out = append(out, Def{Var: r.ix.vars[d.Var], Pos: d.Pos})
	}
	return out
}

// TaintIn returns the taint environment on entry to the block: tainted
// variables mapped to their sorted label sets.
func (r *FuncResult) TaintIn(block int) map[string][]string { return r.envView(r.taintIn[block]) }

// TaintOut returns the taint environment on exit from the block.
func (r *FuncResult) TaintOut(block int) map[string][]string { return r.envView(r.taintOut[block]) }

func (r *FuncResult) envView(env taintEnv) map[string][]string {
	out := map[string][]string{}
	for v, labels := range env {
		if len(labels) > 0 {
			out[r.ix.vars[v]] = append([]string(nil), labels...)
		}
	}
	return out
}

// CallSite is one call together with the taint labels its arguments carry
// at that program point.
type CallSite struct {
	Call      *lang.CallExpr
	Block     int
	ArgLabels [][]string
}

// EachCall invokes f for every call site of the function, in block order
// and statement order within a block. Argument labels are replayed from
// the converged solution, so they reflect the taint state just before the
// statement runs.
func (r *FuncResult) EachCall(f func(CallSite)) {
	for _, blk := range r.Fn.Blocks {
		env := cloneEnv(r.taintIn[blk.ID])
		for _, s := range blk.Stmts {
			for _, e := range lang.StmtExprs(s) {
				for _, c := range lang.Calls(e) {
					cs := CallSite{Call: c, Block: blk.ID, ArgLabels: make([][]string, len(c.Args))}
					for i, a := range c.Args {
						cs.ArgLabels[i] = r.ix.evalTaint(env, a, r.rules)
					}
					f(cs)
				}
			}
			r.ix.taintStmt(env, s, r.rules)
		}
	}
}
