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

package parse

import (
	"go/parser"
	"go/scanner"
	gotoken "go/token"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"

	"github.com/reflowlabs/reflow/analysis/lang"
)

// GoSource parses a Go file through the dst decorator and lowers the
// straight-line subset onto the analysis syntax. Statements outside the
// subset (go, defer, select, switch, range, parallel assignment) are
// rejected with a parse error rather than silently dropped, so a file that
// parses analyzes faithfully. Methods are named "Type.Method"; calls
// through a selector fold to the selector name, package-qualified calls to
// "pkg.Func".
func GoSource(path, content string) (*lang.File, error) {
	fset := gotoken.NewFileSet()
	dec := decorator.NewDecorator(fset)
	df, err := dec.ParseFile(path, content, parser.ParseComments)
	if err != nil {
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			e := list[0]
			return nil, lang.Errorf(path, lang.Pos{Line: e.Pos.Line, Col: e.Pos.Column}, "%s", e.Msg)
		}
		return nil, lang.Errorf(path, lang.Pos{}, "%v", err)
	}

	g := &goLower{path: path, dec: dec, fset: fset}
	file := &lang.File{Path: path}
	for _, decl := range df.Decls {
		fd, ok := decl.(*dst.FuncDecl)
		if !ok {
			continue
		}
		for _, c := range fd.Decs.Start {
			if d, ok := directive(c); ok {
				file.Directives = append(file.Directives, d)
			}
		}
		fn, err := g.funcDecl(fd)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			file.Funcs = append(file.Funcs, fn)
		}
	}
	return file, nil
}

type goLower struct {
	path string
	dec  *decorator.Decorator
	fset *gotoken.FileSet
}

func (g *goLower) rangeOf(n dst.Node) lang.Range {
	if an, ok := g.dec.Ast.Nodes[n]; ok {
		s := g.fset.Position(an.Pos())
		e := g.fset.Position(an.End())
		return lang.Range{
			Start: lang.Pos{Line: s.Line, Col: s.Column},
			End:   lang.Pos{Line: e.Line, Col: e.Column},
		}
	}
	return lang.Range{}
}

func (g *goLower) errAt(n dst.Node, format string, args ...interface{}) error {
	return lang.Errorf(g.path, g.rangeOf(n).Start, format, args...)
}

func (g *goLower) funcDecl(fd *dst.FuncDecl) (*lang.FuncDecl, error) {
	if fd.Body == nil {
		return nil, nil
	}
	name := fd.Name.Name
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		if rt := recvTypeName(fd.Recv.List[0].Type); rt != "" {
			name = rt + "." + name
		}
	}
	var params []string
	if fd.Type.Params != nil {
		for _, f := range fd.Type.Params.List {
			for _, n := range f.Names {
				params = append(params, n.Name)
			}
		}
	}
	body, err := g.stmts(fd.Body.List)
	if err != nil {
		return nil, err
	}
	return &lang.FuncDecl{Name: name, Params: params, Body: body, Span: g.rangeOf(fd)}, nil
}

func recvTypeName(e dst.Expr) string {
	switch x := e.(type) {
	case *dst.Ident:
		return x.Name
	case *dst.StarExpr:
		return recvTypeName(x.X)
	case *dst.IndexExpr:
		return recvTypeName(x.X)
	}
	return ""
}

func (g *goLower) stmts(list []dst.Stmt) ([]lang.Stmt, error) {
	var out []lang.Stmt
	for _, s := range list {
		if err := g.stmt(s, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (g *goLower) single(s dst.Stmt) (lang.Stmt, error) {
	var tmp []lang.Stmt
	if err := g.stmt(s, &tmp); err != nil {
		return nil, err
	}
	if len(tmp) != 1 {
		return nil, g.errAt(s, "unsupported loop clause")
	}
	return tmp[0], nil
}

func (g *goLower) stmt(s dst.Stmt, out *[]lang.Stmt) error {
	switch x := s.(type) {
	case *dst.DeclStmt:
		gd, ok := x.Decl.(*dst.GenDecl)
		if !ok || (gd.Tok != gotoken.VAR && gd.Tok != gotoken.CONST) {
			return g.errAt(x, "unsupported declaration")
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*dst.ValueSpec)
			if !ok {
				return g.errAt(x, "unsupported declaration")
			}
			for i, nm := range vs.Names {
				var init lang.Expr
				if i < len(vs.Values) {
					var err error
					init, err = g.expr(vs.Values[i])
					if err != nil {
						return err
					}
				}
				*out = append(*out, &lang.DeclStmt{Name: nm.Name, Init: init, Span: g.rangeOf(spec)})
			}
		}
	case *dst.AssignStmt:
		if len(x.Lhs) != 1 || len(x.Rhs) != 1 {
			return g.errAt(x, "parallel assignment is not supported")
		}
		rhs, err := g.expr(x.Rhs[0])
		if err != nil {
			return err
		}
		if x.Tok == gotoken.DEFINE {
			id, ok := x.Lhs[0].(*dst.Ident)
			if !ok {
				return g.errAt(x, "cannot declare this expression")
			}
			*out = append(*out, &lang.DeclStmt{Name: id.Name, Init: rhs, Span: g.rangeOf(x)})
			return nil
		}
		lhs, err := g.expr(x.Lhs[0])
		if err != nil {
			return err
		}
		if id, ok := lhs.(*lang.Ident); ok && id.Name == "_" {
			*out = append(*out, &lang.ExprStmt{X: rhs, Span: g.rangeOf(x)})
			return nil
		}
		name, target, ok := lvalue(lhs)
		if !ok {
			return g.errAt(x, "cannot assign to this expression")
		}
		op := x.Tok.String()
		*out = append(*out, &lang.AssignStmt{Name: name, Op: op, Value: rhs, Target: target, Span: g.rangeOf(x)})
	case *dst.ExprStmt:
		e, err := g.expr(x.X)
		if err != nil {
			return err
		}
		*out = append(*out, &lang.ExprStmt{X: e, Span: g.rangeOf(x)})
	case *dst.IfStmt:
		if x.Init != nil {
			if err := g.stmt(x.Init, out); err != nil {
				return err
			}
		}
		cond, err := g.expr(x.Cond)
		if err != nil {
			return err
		}
		then, err := g.stmts(x.Body.List)
		if err != nil {
			return err
		}
		var els []lang.Stmt
		switch e := x.Else.(type) {
		case nil:
		case *dst.BlockStmt:
			els, err = g.stmts(e.List)
			if err != nil {
				return err
			}
		case *dst.IfStmt:
			if err := g.stmt(e, &els); err != nil {
				return err
			}
		default:
			return g.errAt(x, "unsupported else clause")
		}
		*out = append(*out, &lang.IfStmt{Cond: cond, Then: then, Else: els, Span: g.rangeOf(x)})
	case *dst.ForStmt:
		var err error
		var init, post lang.Stmt
		var cond lang.Expr
		if x.Init != nil {
			init, err = g.single(x.Init)
			if err != nil {
				return err
			}
		}
		if x.Cond != nil {
			cond, err = g.expr(x.Cond)
			if err != nil {
				return err
			}
		}
		if x.Post != nil {
			post, err = g.single(x.Post)
			if err != nil {
				return err
			}
		}
		body, err := g.stmts(x.Body.List)
		if err != nil {
			return err
		}
		if init == nil && post == nil && cond != nil {
			*out = append(*out, &lang.WhileStmt{Cond: cond, Body: body, Span: g.rangeOf(x)})
			return nil
		}
		*out = append(*out, &lang.ForStmt{Init: init, Cond: cond, Post: post, Body: body, Span: g.rangeOf(x)})
	case *dst.ReturnStmt:
		if len(x.Results) > 1 {
			return g.errAt(x, "multiple return values are not supported")
		}
		var val lang.Expr
		if len(x.Results) == 1 {
			var err error
			val, err = g.expr(x.Results[0])
			if err != nil {
				return err
			}
		}
		*out = append(*out, &lang.ReturnStmt{Value: val, Span: g.rangeOf(x)})
	case *dst.BranchStmt:
		if x.Label != nil {
			return g.errAt(x, "labeled branches are not supported")
		}
		switch x.Tok {
		case gotoken.BREAK:
			*out = append(*out, &lang.BreakStmt{Span: g.rangeOf(x)})
		case gotoken.CONTINUE:
			*out = append(*out, &lang.ContinueStmt{Span: g.rangeOf(x)})
		default:
			return g.errAt(x, "%s statements are not supported", x.Tok)
		}
	case *dst.IncDecStmt:
		e, err := g.expr(x.X)
		if err != nil {
			return err
		}
		name, target, ok := lvalue(e)
		if !ok {
			return g.errAt(x, "cannot assign to this expression")
		}
		op := "+="
		if x.Tok == gotoken.DEC {
			op = "-="
		}
		one := &lang.Lit{Kind: lang.NumberLit, Value: "1", Span: g.rangeOf(x)}
		*out = append(*out, &lang.AssignStmt{Name: name, Op: op, Value: one, Target: target, Span: g.rangeOf(x)})
	case *dst.BlockStmt:
		inner, err := g.stmts(x.List)
		if err != nil {
			return err
		}
		*out = append(*out, inner...)
	case *dst.EmptyStmt:
	default:
		return g.errAt(s, "unsupported statement")
	}
	return nil
}

func (g *goLower) expr(e dst.Expr) (lang.Expr, error) {
	switch x := e.(type) {
	case *dst.Ident:
		return &lang.Ident{Name: x.Name, Span: g.rangeOf(x)}, nil
	case *dst.BasicLit:
		var kind lang.LitKind
		value := x.Value
		switch x.Kind {
		case gotoken.STRING:
			kind, value = lang.StringLit, unquote(x.Value)
		case gotoken.CHAR:
			kind, value = lang.CharLit, unquote(x.Value)
		default:
			kind = lang.NumberLit
		}
		return &lang.Lit{Kind: kind, Value: value, Span: g.rangeOf(x)}, nil
	case *dst.CallExpr:
		fun, ok := callName(x.Fun)
		if !ok {
			return nil, g.errAt(x, "unsupported call target")
		}
		var args []lang.Expr
		for _, a := range x.Args {
			la, err := g.expr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, la)
		}
		return &lang.CallExpr{Fun: fun, Args: args, Span: g.rangeOf(x)}, nil
	case *dst.BinaryExpr:
		lx, err := g.expr(x.X)
		if err != nil {
			return nil, err
		}
		ly, err := g.expr(x.Y)
		if err != nil {
			return nil, err
		}
		return &lang.BinaryExpr{Op: x.Op.String(), X: lx, Y: ly, Span: g.rangeOf(x)}, nil
	case *dst.UnaryExpr:
		if x.Op == gotoken.ARROW {
			return nil, g.errAt(x, "channel operations are not supported")
		}
		lx, err := g.expr(x.X)
		if err != nil {
			return nil, err
		}
		return &lang.UnaryExpr{Op: x.Op.String(), X: lx, Span: g.rangeOf(x)}, nil
	case *dst.StarExpr:
		lx, err := g.expr(x.X)
		if err != nil {
			return nil, err
		}
		return &lang.UnaryExpr{Op: "*", X: lx, Span: g.rangeOf(x)}, nil
	case *dst.IndexExpr:
		lx, err := g.expr(x.X)
		if err != nil {
			return nil, err
		}
		idx, err := g.expr(x.Index)
		if err != nil {
			return nil, err
		}
		return &lang.IndexExpr{X: lx, Index: idx, Span: g.rangeOf(x)}, nil
	case *dst.ParenExpr:
		lx, err := g.expr(x.X)
		if err != nil {
			return nil, err
		}
		return &lang.ParenExpr{X: lx, Span: g.rangeOf(x)}, nil
	case *dst.SelectorExpr:
		// Field reads fold to their base variable.
		return g.expr(x.X)
	default:
		return nil, g.errAt(e, "unsupported expression")
	}
}

func callName(e dst.Expr) (string, bool) {
	switch x := e.(type) {
	case *dst.Ident:
		return x.Name, true
	case *dst.SelectorExpr:
		if base, ok := x.X.(*dst.Ident); ok {
			return base.Name + "." + x.Sel.Name, true
		}
		return x.Sel.Name, true
	case *dst.ParenExpr:
		return callName(x.X)
	}
	return "", false
}
