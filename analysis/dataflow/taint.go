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
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/lang"
)

// taintEnv maps interned variables to their sorted taint label sets. A nil
// entry means untainted. Entries are replaced, never mutated, so envs can
// share label slices freely.
type taintEnv [][]string

func cloneEnv(e taintEnv) taintEnv {
	c := make(taintEnv, len(e))
	copy(c, e)
	return c
}

func sameEnv(a, b taintEnv) bool {
	for v := range a {
		if !sameSet(a[v], b[v]) {
			return false
		}
	}
	return true
}

// unionInto merges src into dst per variable and reports whether dst was
// already an upper bound.
func unionInto(dst, src taintEnv) bool {
	same := true
	for v := range dst {
		var s bool
		dst[v], s = union(dst[v], src[v])
		if !s {
			same = false
		}
	}
	return same
}

// taint propagates taint labels forward over the block graph. It runs after
// reaching definitions and reuses the variable index built for it; the
// label universe is bounded by the source rules, so the lattice is finite.
func (ix *funcIndex) taint(rules *config.TaintRules, maxSweeps int) (in, out []taintEnv, err error) {
	n := len(ix.fn.Blocks)
	nv := len(ix.vars)
	in = make([]taintEnv, n)
	out = make([]taintEnv, n)
	for i := range in {
		in[i] = make(taintEnv, nv)
		out[i] = make(taintEnv, nv)
	}
	changed := make([]bool, n)
	for i := range changed {
		changed[i] = true
	}
	for sweeps := 0; ; sweeps++ {
		if sweeps >= maxSweeps {
			return nil, nil, &SolveError{Function: ix.fn.Info.Name, Analysis: "taint", Iterations: sweeps}
		}
		sweepChanged := false
		for i := 0; i < n; i++ {
			if !changed[i] {
				continue
			}
			changed[i] = false
			sweepChanged = true
			env := cloneEnv(in[i])
			for _, s := range ix.fn.Blocks[i].Stmts {
				ix.taintStmt(env, s, rules)
			}
			if sameEnv(env, out[i]) {
				continue
			}
			out[i] = env
			for _, sc := range ix.fn.Blocks[i].Succs {
				if !unionInto(in[sc], env) {
					changed[sc] = true
				}
			}
		}
		if !sweepChanged {
			break
		}
	}
	return in, out, nil
}

// taintStmt applies one statement's effects to env. Call effects come
// first: a source call taints the variables of its arguments (the
// out-parameter pattern of scanf and friends) as well as its value, and a
// sanitizer called in statement position scrubs the variable behind its
// first argument (the strncpy style; in value position a sanitizer only
// yields a clean result). The assignment effect then binds the value's
// labels to the written variable, weakly for element and dereference
// stores.
func (ix *funcIndex) taintStmt(env taintEnv, s lang.Stmt, rules *config.TaintRules) {
	if es, ok := s.(*lang.ExprStmt); ok {
		if c, ok := rootCall(es.X); ok && rules.IsSanitizer(c.Fun) && len(c.Args) > 0 {
			if name, ok := rootOf(c.Args[0]); ok {
				if v, ok := ix.lookup(name); ok {
					env[v] = nil
				}
			}
		}
	}
	for _, e := range lang.StmtExprs(s) {
		for _, c := range lang.Calls(e) {
			if rules.IsSanitizer(c.Fun) {
				continue
			}
			if label, ok := rules.SourceLabel(c.Fun); ok {
				for _, a := range c.Args {
					for _, name := range lang.VarsRead(a) {
						if v, ok := ix.lookup(name); ok {
							env[v], _ = union(env[v], []string{label})
						}
					}
				}
			}
		}
	}
	switch x := s.(type) {
	case *lang.DeclStmt:
		v, ok := ix.lookup(x.Name)
		if !ok {
			return
		}
		if x.Init != nil {
			env[v] = ix.evalTaint(env, x.Init, rules)
		} else {
			env[v] = nil
		}
	case *lang.AssignStmt:
		v, ok := ix.lookup(x.Name)
		if !ok {
			return
		}
		labels := ix.evalTaint(env, x.Value, rules)
		if x.Op != "=" || x.Target != nil {
			labels, _ = union(labels, env[v])
		}
		env[v] = labels
	}
}

// evalTaint computes the labels of an expression under env. Sanitizer
// calls are clean, source calls carry their label, any other call is as
// tainted as its arguments. Indexing reads the container's taint; the
// index itself does not flow into the value.
func (ix *funcIndex) evalTaint(env taintEnv, e lang.Expr, rules *config.TaintRules) []string {
	switch x := e.(type) {
	case *lang.Ident:
		if v, ok := ix.lookup(x.Name); ok {
			return env[v]
		}
		return nil
	case *lang.Lit:
		return nil
	case *lang.CallExpr:
		if rules.IsSanitizer(x.Fun) {
			return nil
		}
		if label, ok := rules.SourceLabel(x.Fun); ok {
			return []string{label}
		}
		var r []string
		for _, a := range x.Args {
			r, _ = union(r, ix.evalTaint(env, a, rules))
		}
		return r
	case *lang.BinaryExpr:
		r, _ := union(ix.evalTaint(env, x.X, rules), ix.evalTaint(env, x.Y, rules))
		return r
	case *lang.UnaryExpr:
		return ix.evalTaint(env, x.X, rules)
	case *lang.IndexExpr:
		return ix.evalTaint(env, x.X, rules)
	case *lang.ParenExpr:
		return ix.evalTaint(env, x.X, rules)
	}
	return nil
}

// rootCall unwraps parentheses around a statement-position call.
func rootCall(e lang.Expr) (*lang.CallExpr, bool) {
	switch x := e.(type) {
	case *lang.CallExpr:
		return x, true
	case *lang.ParenExpr:
		return rootCall(x.X)
	}
	return nil, false
}

// rootOf resolves an argument expression to the variable it denotes,
// seeing through address-of, dereference, indexing and parentheses.
func rootOf(e lang.Expr) (string, bool) {
	switch x := e.(type) {
	case *lang.Ident:
		return x.Name, true
	case *lang.UnaryExpr:
		return rootOf(x.X)
	case *lang.IndexExpr:
		return rootOf(x.X)
	case *lang.ParenExpr:
		return rootOf(x.X)
	}
	return "", false
}
