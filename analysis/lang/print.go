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

import (
	"fmt"
	"strings"
)

// ExprString renders an expression in a compact C-like form. The output is
// meant for diagnostics, snapshots and graph labels, not for re-parsing.
func ExprString(e Expr) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *Ident:
		return x.Name
	case *Lit:
		if x.Kind == StringLit {
			return fmt.Sprintf("%q", x.Value)
		}
		if x.Kind == CharLit {
			return "'" + x.Value + "'"
		}
		return x.Value
	case *CallExpr:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = ExprString(a)
		}
		return x.Fun + "(" + strings.Join(args, ", ") + ")"
	case *BinaryExpr:
		return ExprString(x.X) + " " + x.Op + " " + ExprString(x.Y)
	case *UnaryExpr:
		return x.Op + ExprString(x.X)
	case *IndexExpr:
		return ExprString(x.X) + "[" + ExprString(x.Index) + "]"
	case *ParenExpr:
		return "(" + ExprString(x.X) + ")"
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

// StmtString renders a statement on one line. Branching statements render
// only their own header since their bodies live in other basic blocks once
// a CFG has been built.
func StmtString(s Stmt) string {
	switch x := s.(type) {
	case nil:
		return ""
	case *DeclStmt:
		if x.Init != nil {
			return "var " + x.Name + " = " + ExprString(x.Init)
		}
		return "var " + x.Name
	case *AssignStmt:
		if x.Target != nil {
			return ExprString(x.Target) + " " + x.Op + " " + ExprString(x.Value)
		}
		return x.Name + " " + x.Op + " " + ExprString(x.Value)
	case *ExprStmt:
		return ExprString(x.X)
	case *CondStmt:
		return "if " + ExprString(x.Cond)
	case *IfStmt:
		return "if " + ExprString(x.Cond) + " ..."
	case *WhileStmt:
		return "while " + ExprString(x.Cond) + " ..."
	case *ForStmt:
		return "for ..."
	case *ReturnStmt:
		if x.Value != nil {
			return "return " + ExprString(x.Value)
		}
		return "return"
	case *BreakStmt:
		return "break"
	case *ContinueStmt:
		return "continue"
	default:
		return fmt.Sprintf("<%T>", s)
	}
}
