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

package lang

// Inspect walks the expression tree rooted at e in preorder. If f returns
// false for a node, its children are skipped.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch x := e.(type) {
	case *CallExpr:
		for _, a := range x.Args {
			Inspect(a, f)
		}
	case *BinaryExpr:
		Inspect(x.X, f)
		Inspect(x.Y, f)
	case *UnaryExpr:
		Inspect(x.X, f)
	case *IndexExpr:
		Inspect(x.X, f)
		Inspect(x.Index, f)
	case *ParenExpr:
		Inspect(x.X, f)
	}
}

// VarsRead returns the variables read by e, deduplicated, in first-use
// order.
func VarsRead(e Expr) []string {
	var vars []string
	seen := map[string]bool{}
	Inspect(e, func(x Expr) bool {
		if id, ok := x.(*Ident); ok && !seen[id.Name] {
			seen[id.Name] = true
			vars = append(vars, id.Name)
		}
		return true
	})
	return vars
}

// Calls returns every call expression in e, in preorder. Nested calls in
// argument position are included after their enclosing call.
func Calls(e Expr) []*CallExpr {
	var calls []*CallExpr
	Inspect(e, func(x Expr) bool {
		if c, ok := x.(*CallExpr); ok {
			calls = append(calls, c)
		}
		return true
	})
	return calls
}

// StmtExprs returns the expressions a statement evaluates itself, not
// those of nested bodies. For branching statements that is the condition.
func StmtExprs(s Stmt) []Expr {
	switch x := s.(type) {
	case *DeclStmt:
		if x.Init != nil {
			return []Expr{x.Init}
		}
	case *AssignStmt:
		if x.Target != nil {
			return []Expr{x.Value, x.Target}
		}
		return []Expr{x.Value}
	case *ExprStmt:
		return []Expr{x.X}
	case *CondStmt:
		return []Expr{x.Cond}
	case *IfStmt:
		return []Expr{x.Cond}
	case *WhileStmt:
		if x.Cond != nil {
			return []Expr{x.Cond}
		}
	case *ForStmt:
		if x.Cond != nil {
			return []Expr{x.Cond}
		}
	case *ReturnStmt:
		if x.Value != nil {
			return []Expr{x.Value}
		}
	}
	return nil
}

// Def returns the variable a statement assigns, if any. Both declarations
// with initializers and plain declarations count as definitions.
func Def(s Stmt) (string, bool) {
	switch x := s.(type) {
	case *DeclStmt:
		return x.Name, true
	case *AssignStmt:
		return x.Name, true
	}
	return "", false
}

// StrongDef reports whether the statement's definition supersedes earlier
// definitions of the variable. Element and dereference stores do not: they
// update part of the value, so earlier definitions stay live.
func StrongDef(s Stmt) bool {
	if a, ok := s.(*AssignStmt); ok {
		return a.Target == nil
	}
	_, ok := Def(s)
	return ok
}

// Reads returns the variables a statement reads, deduplicated in first-use
// order. A compound assignment reads its own target first.
func Reads(s Stmt) []string {
	var vars []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	if a, ok := s.(*AssignStmt); ok && (a.Op != "=" || a.Target != nil) {
		add(a.Name)
	}
	for _, e := range StmtExprs(s) {
		for _, v := range VarsRead(e) {
			add(v)
		}
	}
	return vars
}

// WalkStmts calls f for every statement in body, recursing into nested
// bodies in source order.
func WalkStmts(body []Stmt, f func(Stmt)) {
	for _, s := range body {
		f(s)
		switch x := s.(type) {
		case *IfStmt:
			WalkStmts(x.Then, f)
			WalkStmts(x.Else, f)
		case *WhileStmt:
			WalkStmts(x.Body, f)
		case *ForStmt:
			if x.Init != nil {
				f(x.Init)
			}
			WalkStmts(x.Body, f)
			if x.Post != nil {
				f(x.Post)
			}
		}
	}
}
