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

// Package lang defines the abstract syntax shared by every reflow front
// end. A front end turns source text into a *File; the control-flow and
// dataflow layers consume that and never look at source text again.
//
// The statement set is deliberately small: declarations, assignments,
// expression statements, structured control flow and returns. Front ends
// lower richer languages onto these forms and drop what does not map.
package lang

// Node is implemented by every syntax node.
type Node interface {
	// Pos returns the position of the first token of the node.
	Pos() Pos
	// End returns the position just past the last token of the node.
	End() Pos
}

// File is the parsed form of one source file.
type File struct {
	// Path the file was parsed from. Kept verbatim; paths are opaque keys.
	Path string

	// Funcs are the function definitions, in source order.
	Funcs []*FuncDecl

	// Directives are taint-role annotations attached to functions through
	// source comments.
	Directives []Directive
}

// Directive attaches a taint role to a function name. Front ends produce
// one for each recognized annotation comment preceding a declaration.
type Directive struct {
	// Kind is one of "source", "sink", "sanitizer" or "validator".
	Kind string

	// Func is the annotated function's name.
	Func string

	// Label carries the source label for sources and the sink kind for
	// sinks; empty otherwise.
	Label string
}

// FuncDecl is one function definition.
type FuncDecl struct {
	Name   string
	Params []string
	Body   []Stmt
	Span   Range
}

// Pos implements Node.
func (d *FuncDecl) Pos() Pos { return d.Span.Start }

// End implements Node.
func (d *FuncDecl) End() Pos { return d.Span.End }

// Stmt is implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// DeclStmt declares a variable, optionally with an initializer.
type DeclStmt struct {
	Name string
	Init Expr // may be nil
	Span Range
}

// AssignStmt assigns to a variable. Op is "=" for plain assignment or a
// compound operator such as "+="; compound forms read Name as well.
//
// When the written location is an element or a dereference rather than the
// variable itself, Target holds the full lvalue expression and Name its
// root variable. Such stores update the variable weakly: they read it and
// do not supersede its earlier definitions.
type AssignStmt struct {
	Name   string
	Op     string
	Value  Expr
	Target Expr // non-nil only for element and dereference stores
	Span   Range
}

// ExprStmt evaluates an expression for effect, typically a call.
type ExprStmt struct {
	X    Expr
	Span Range
}

// IfStmt branches on Cond. Else may be empty.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Span Range
}

// WhileStmt loops while Cond holds.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Span Range
}

// ForStmt is the three-clause loop. Init and Post may be nil; a nil Cond
// loops unconditionally.
type ForStmt struct {
	Init Stmt
	Cond Expr
	Post Stmt
	Body []Stmt
	Span Range
}

// ReturnStmt exits the enclosing function. Value may be nil.
type ReturnStmt struct {
	Value Expr
	Span  Range
}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	Span Range
}

// ContinueStmt jumps to the innermost loop header.
type ContinueStmt struct {
	Span Range
}

// CondStmt is a branch guard. Front ends never produce it; the CFG builder
// synthesizes one per branching construct so that basic blocks contain
// only straight-line statements.
type CondStmt struct {
	Cond Expr
	Span Range
}

func (s *DeclStmt) Pos() Pos     { return s.Span.Start }
func (s *DeclStmt) End() Pos     { return s.Span.End }
func (s *AssignStmt) Pos() Pos   { return s.Span.Start }
func (s *AssignStmt) End() Pos   { return s.Span.End }
func (s *ExprStmt) Pos() Pos     { return s.Span.Start }
func (s *ExprStmt) End() Pos     { return s.Span.End }
func (s *IfStmt) Pos() Pos       { return s.Span.Start }
func (s *IfStmt) End() Pos       { return s.Span.End }
func (s *WhileStmt) Pos() Pos    { return s.Span.Start }
func (s *WhileStmt) End() Pos    { return s.Span.End }
func (s *ForStmt) Pos() Pos      { return s.Span.Start }
func (s *ForStmt) End() Pos      { return s.Span.End }
func (s *ReturnStmt) Pos() Pos   { return s.Span.Start }
func (s *ReturnStmt) End() Pos   { return s.Span.End }
func (s *BreakStmt) Pos() Pos    { return s.Span.Start }
func (s *BreakStmt) End() Pos    { return s.Span.End }
func (s *ContinueStmt) Pos() Pos { return s.Span.Start }
func (s *ContinueStmt) End() Pos { return s.Span.End }
func (s *CondStmt) Pos() Pos     { return s.Span.Start }
func (s *CondStmt) End() Pos     { return s.Span.End }

func (*DeclStmt) stmtNode()     {}
func (*AssignStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*CondStmt) stmtNode()     {}

// LitKind discriminates literal forms.
type LitKind int

const (
	NumberLit LitKind = iota
	StringLit
	CharLit
)

// Ident is a variable reference.
type Ident struct {
	Name string
	Span Range
}

// Lit is a literal constant. Value is the source text.
type Lit struct {
	Kind  LitKind
	Value string
	Span  Range
}

// CallExpr is a call to a named function.
type CallExpr struct {
	Fun  string
	Args []Expr
	Span Range
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op   string
	X, Y Expr
	Span Range
}

// UnaryExpr applies a prefix operator.
type UnaryExpr struct {
	Op   string
	X    Expr
	Span Range
}

// IndexExpr subscripts X with Index.
type IndexExpr struct {
	X     Expr
	Index Expr
	Span  Range
}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	X    Expr
	Span Range
}

func (e *Ident) Pos() Pos      { return e.Span.Start }
func (e *Ident) End() Pos      { return e.Span.End }
func (e *Lit) Pos() Pos        { return e.Span.Start }
func (e *Lit) End() Pos        { return e.Span.End }
func (e *CallExpr) Pos() Pos   { return e.Span.Start }
func (e *CallExpr) End() Pos   { return e.Span.End }
func (e *BinaryExpr) Pos() Pos { return e.Span.Start }
func (e *BinaryExpr) End() Pos { return e.Span.End }
func (e *UnaryExpr) Pos() Pos  { return e.Span.Start }
func (e *UnaryExpr) End() Pos  { return e.Span.End }
func (e *IndexExpr) Pos() Pos  { return e.Span.Start }
func (e *IndexExpr) End() Pos  { return e.Span.End }
func (e *ParenExpr) Pos() Pos  { return e.Span.Start }
func (e *ParenExpr) End() Pos  { return e.Span.End }

func (*Ident) exprNode()      {}
func (*Lit) exprNode()        {}
func (*CallExpr) exprNode()   {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*IndexExpr) exprNode()  {}
func (*ParenExpr) exprNode()  {}
