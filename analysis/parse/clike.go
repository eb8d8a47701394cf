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
	"github.com/reflowlabs/reflow/analysis/lang"
)

// CLike parses a C-style source file into the analysis syntax. Function
// bodies are lowered onto the statement set of package lang; prototypes,
// typedefs, preprocessor lines and global declarations are skipped. Field
// accesses fold to their base variable and casts fold to their operand,
// since the analyses track whole variables.
func CLike(path, content string) (*lang.File, error) {
	lx := newLexer(path, content, lang.Pos{})
	toks, dirs, err := lx.lex()
	if err != nil {
		return nil, err
	}
	p := &cparser{path: path, toks: toks}
	file := &lang.File{Path: path, Directives: dirs}
	for !p.atEOF() {
		if err := p.topLevel(file); err != nil {
			return nil, err
		}
	}
	return file, nil
}

// typeWords are identifiers that can only start or qualify a type.
var typeWords = map[string]bool{
	"void": true, "int": true, "char": true, "float": true, "double": true,
	"long": true, "short": true, "signed": true, "unsigned": true,
	"bool": true, "size_t": true, "ssize_t": true, "FILE": true,
	"struct": true, "union": true, "enum": true,
	"const": true, "static": true, "extern": true, "register": true,
	"volatile": true, "inline": true,
}

// stmtWords are identifiers that start a statement and therefore never a
// declaration.
var stmtWords = map[string]bool{
	"if": true, "else": true, "while": true, "for": true, "do": true,
	"return": true, "break": true, "continue": true, "switch": true,
	"goto": true,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

type cparser struct {
	path string
	toks []token
	i    int
}

func (p *cparser) tok() token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *cparser) peekAt(k int) token {
	if p.i+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+k]
}

func (p *cparser) next() token {
	t := p.tok()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *cparser) atEOF() bool { return p.tok().kind == tokEOF }

func (p *cparser) prevEnd() lang.Pos {
	if p.i == 0 {
		return p.tok().pos
	}
	return p.toks[p.i-1].end()
}

func (p *cparser) is(text string) bool {
	t := p.tok()
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *cparser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func tokDesc(t token) string {
	if t.kind == tokEOF {
		return "end of file"
	}
	return "\"" + t.text + "\""
}

func (p *cparser) expect(text string) (token, error) {
	if !p.is(text) {
		t := p.tok()
		return token{}, lang.Errorf(p.path, t.pos, "expected %q, found %s", text, tokDesc(t))
	}
	return p.next(), nil
}

func (p *cparser) expectIdent() (token, error) {
	t := p.tok()
	if t.kind != tokIdent {
		return token{}, lang.Errorf(p.path, t.pos, "expected identifier, found %s", tokDesc(t))
	}
	return p.next(), nil
}

// skipTo consumes tokens through the next occurrence of stop at bracket
// depth zero. When stop is a closing bracket, its opener must already have
// been consumed.
func (p *cparser) skipTo(stop string) error {
	depth := 0
	for !p.atEOF() {
		t := p.next()
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			if depth == 0 && t.text == stop {
				return nil
			}
			depth--
		default:
			if depth <= 0 && t.text == stop {
				return nil
			}
		}
	}
	return lang.Errorf(p.path, p.tok().pos, "unexpected end of file")
}

// topLevel parses one top-level declaration. Function definitions are kept;
// everything else is recognized well enough to be skipped.
func (p *cparser) topLevel(file *lang.File) error {
	start := p.tok()
	if start.kind != tokIdent {
		return lang.Errorf(p.path, start.pos, "expected declaration, found %s", tokDesc(start))
	}
	if start.text == "typedef" {
		return p.skipTo(";")
	}

	var name token
	for {
		t := p.tok()
		switch {
		case t.kind == tokIdent:
			name = t
			p.next()
		case t.kind == tokPunct && t.text == "*":
			p.next()
		case t.kind == tokPunct && t.text == "(":
			if name.kind != tokIdent {
				return lang.Errorf(p.path, t.pos, "expected function name before %q", "(")
			}
			return p.funcRest(file, start, name)
		case t.kind == tokPunct && t.text == "[":
			// Global array dimension.
			p.next()
			if err := p.skipTo("]"); err != nil {
				return err
			}
		case t.kind == tokPunct && t.text == "{":
			// Aggregate type definition; skip the body and trailing
			// declarators.
			p.next()
			if err := p.skipTo("}"); err != nil {
				return err
			}
			return p.skipTo(";")
		case t.kind == tokPunct && (t.text == ";"):
			p.next()
			return nil
		case t.kind == tokPunct && (t.text == "=" || t.text == ","):
			// Global variable with initializer or a declarator list.
			return p.skipTo(";")
		default:
			return lang.Errorf(p.path, t.pos, "unexpected %s in declaration", tokDesc(t))
		}
	}
}

// funcRest parses a function from its opening parenthesis: either a
// prototype, which is skipped, or a definition.
func (p *cparser) funcRest(file *lang.File, start, name token) error {
	params, err := p.params()
	if err != nil {
		return err
	}
	if p.accept(";") {
		return nil
	}
	if !p.is("{") {
		t := p.tok()
		return lang.Errorf(p.path, t.pos, "expected function body or %q, found %s", ";", tokDesc(t))
	}
	body, err := p.block()
	if err != nil {
		return err
	}
	file.Funcs = append(file.Funcs, &lang.FuncDecl{
		Name:   name.text,
		Params: params,
		Body:   body,
		Span:   lang.Range{Start: start.pos, End: p.prevEnd()},
	})
	return nil
}

// params parses a parameter list from its opening parenthesis through the
// closing one and returns the parameter names. Unnamed parameters, void
// and varargs contribute no name.
func (p *cparser) params() ([]string, error) {
	p.next()
	var names []string
	if p.accept(")") {
		return names, nil
	}
	for {
		if p.accept("...") {
			break
		}
		last := ""
		consumed := false
		for {
			t := p.tok()
			if t.kind == tokIdent {
				last = t.text
				p.next()
				consumed = true
				continue
			}
			if t.kind == tokPunct && t.text == "*" {
				// The parameter name can only follow the last star.
				last = ""
				p.next()
				consumed = true
				continue
			}
			if t.kind == tokPunct && t.text == "[" {
				p.next()
				if err := p.skipTo("]"); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if !consumed {
			t := p.tok()
			return nil, lang.Errorf(p.path, t.pos, "expected parameter, found %s", tokDesc(t))
		}
		if last != "" && !typeWords[last] {
			names = append(names, last)
		}
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *cparser) block() ([]lang.Stmt, error) {
	lbrace, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	var out []lang.Stmt
	for {
		if p.atEOF() {
			return nil, lang.Errorf(p.path, lbrace.pos, "unterminated block")
		}
		if p.accept("}") {
			return out, nil
		}
		if err := p.stmtInto(&out); err != nil {
			return nil, err
		}
	}
}

// stmtInto parses one statement. Bare blocks splice their contents and a
// declaration with several declarators contributes one statement each,
// which is why the result goes into a list.
func (p *cparser) stmtInto(out *[]lang.Stmt) error {
	t := p.tok()
	if t.kind == tokPunct {
		switch t.text {
		case "{":
			inner, err := p.block()
			if err != nil {
				return err
			}
			*out = append(*out, inner...)
			return nil
		case ";":
			p.next()
			return nil
		}
	}
	if t.kind == tokIdent {
		switch t.text {
		case "if":
			s, err := p.ifStmt()
			if err != nil {
				return err
			}
			*out = append(*out, s)
			return nil
		case "while":
			s, err := p.whileStmt()
			if err != nil {
				return err
			}
			*out = append(*out, s)
			return nil
		case "for":
			return p.forStmt(out)
		case "return":
			p.next()
			var val lang.Expr
			if !p.is(";") {
				var err error
				val, err = p.expr()
				if err != nil {
					return err
				}
			}
			if _, err := p.expect(";"); err != nil {
				return err
			}
			*out = append(*out, &lang.ReturnStmt{Value: val, Span: lang.Range{Start: t.pos, End: p.prevEnd()}})
			return nil
		case "break":
			p.next()
			if _, err := p.expect(";"); err != nil {
				return err
			}
			*out = append(*out, &lang.BreakStmt{Span: lang.Range{Start: t.pos, End: p.prevEnd()}})
			return nil
		case "continue":
			p.next()
			if _, err := p.expect(";"); err != nil {
				return err
			}
			*out = append(*out, &lang.ContinueStmt{Span: lang.Range{Start: t.pos, End: p.prevEnd()}})
			return nil
		case "do", "switch", "goto":
			return lang.Errorf(p.path, t.pos, "%s statements are not supported", t.text)
		}
	}
	if p.looksLikeDecl() {
		decls, err := p.declList()
		if err != nil {
			return err
		}
		if _, err := p.expect(";"); err != nil {
			return err
		}
		*out = append(*out, decls...)
		return nil
	}
	s, err := p.simple()
	if err != nil {
		return err
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	*out = append(*out, s)
	return nil
}

// looksLikeDecl reports whether the upcoming tokens read as a variable
// declaration. Known type words decide immediately; for typedef'd types the
// shape "ident *... ident" followed by '=', ';', ',' or '[' counts, which
// also resolves the classic "a * b;" ambiguity toward a declaration.
func (p *cparser) looksLikeDecl() bool {
	t := p.tok()
	if t.kind != tokIdent || stmtWords[t.text] {
		return false
	}
	if typeWords[t.text] {
		return true
	}
	k := 1
	for p.peekAt(k).kind == tokPunct && p.peekAt(k).text == "*" {
		k++
	}
	if p.peekAt(k).kind != tokIdent {
		return false
	}
	after := p.peekAt(k + 1)
	if after.kind != tokPunct {
		return false
	}
	switch after.text {
	case "=", ";", ",", "[":
		return true
	}
	return false
}

// declList parses "type declarator, declarator, ..." up to but not
// including the terminating token.
func (p *cparser) declList() ([]lang.Stmt, error) {
	for {
		t := p.tok()
		if t.kind == tokIdent {
			nt := p.peekAt(1)
			if nt.kind == tokIdent || (nt.kind == tokPunct && nt.text == "*") {
				p.next()
				continue
			}
			break
		}
		if t.kind == tokPunct && t.text == "*" {
			p.next()
			continue
		}
		return nil, lang.Errorf(p.path, t.pos, "expected declarator, found %s", tokDesc(t))
	}

	var out []lang.Stmt
	for {
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		for p.is("[") {
			p.next()
			if err := p.skipTo("]"); err != nil {
				return nil, err
			}
		}
		var init lang.Expr
		if p.accept("=") {
			if p.is("{") {
				// Aggregate initializer; contents are not modeled.
				p.next()
				if err := p.skipTo("}"); err != nil {
					return nil, err
				}
			} else {
				init, err = p.expr()
				if err != nil {
					return nil, err
				}
			}
		}
		out = append(out, &lang.DeclStmt{
			Name: nameTok.text,
			Init: init,
			Span: lang.Range{Start: nameTok.pos, End: p.prevEnd()},
		})
		if !p.accept(",") {
			break
		}
		for p.accept("*") {
		}
	}
	return out, nil
}

func (p *cparser) ifStmt() (lang.Stmt, error) {
	ifTok := p.next()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	then, err := p.branchBody()
	if err != nil {
		return nil, err
	}
	var els []lang.Stmt
	if p.accept("else") {
		if p.is("if") {
			s, err := p.ifStmt()
			if err != nil {
				return nil, err
			}
			els = []lang.Stmt{s}
		} else {
			els, err = p.branchBody()
			if err != nil {
				return nil, err
			}
		}
	}
	return &lang.IfStmt{Cond: cond, Then: then, Else: els, Span: lang.Range{Start: ifTok.pos, End: p.prevEnd()}}, nil
}

func (p *cparser) whileStmt() (lang.Stmt, error) {
	whileTok := p.next()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.branchBody()
	if err != nil {
		return nil, err
	}
	return &lang.WhileStmt{Cond: cond, Body: body, Span: lang.Range{Start: whileTok.pos, End: p.prevEnd()}}, nil
}

func (p *cparser) forStmt(out *[]lang.Stmt) error {
	forTok := p.next()
	if _, err := p.expect("("); err != nil {
		return err
	}
	var init lang.Stmt
	if !p.is(";") {
		if p.looksLikeDecl() {
			decls, err := p.declList()
			if err != nil {
				return err
			}
			// Extra declarators run before the loop.
			*out = append(*out, decls[:len(decls)-1]...)
			init = decls[len(decls)-1]
		} else {
			var err error
			init, err = p.simple()
			if err != nil {
				return err
			}
		}
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	var cond lang.Expr
	if !p.is(";") {
		var err error
		cond, err = p.expr()
		if err != nil {
			return err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	var post lang.Stmt
	if !p.is(")") {
		var err error
		post, err = p.simple()
		if err != nil {
			return err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	body, err := p.branchBody()
	if err != nil {
		return err
	}
	*out = append(*out, &lang.ForStmt{
		Init: init,
		Cond: cond,
		Post: post,
		Body: body,
		Span: lang.Range{Start: forTok.pos, End: p.prevEnd()},
	})
	return nil
}

func (p *cparser) branchBody() ([]lang.Stmt, error) {
	if p.is("{") {
		return p.block()
	}
	var out []lang.Stmt
	if err := p.stmtInto(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// simple parses an expression or assignment statement without its
// terminator. Increment and decrement statements lower to compound
// assignments.
func (p *cparser) simple() (lang.Stmt, error) {
	start := p.tok().pos
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	t := p.tok()
	if t.kind == tokPunct && assignOps[t.text] {
		p.next()
		rhs, err := p.expr()
		if err != nil {
			return nil, err
		}
		return p.assign(e, t.text, rhs, start)
	}
	if u, ok := e.(*lang.UnaryExpr); ok && (u.Op == "++" || u.Op == "--") {
		op := "+="
		if u.Op == "--" {
			op = "-="
		}
		one := &lang.Lit{Kind: lang.NumberLit, Value: "1", Span: lang.Range{Start: u.Span.End, End: u.Span.End}}
		return p.assign(u.X, op, one, start)
	}
	return &lang.ExprStmt{X: e, Span: lang.Range{Start: start, End: p.prevEnd()}}, nil
}

func (p *cparser) assign(lhs lang.Expr, op string, rhs lang.Expr, start lang.Pos) (lang.Stmt, error) {
	name, target, ok := lvalue(lhs)
	if !ok {
		return nil, lang.Errorf(p.path, lhs.Pos(), "cannot assign to this expression")
	}
	return &lang.AssignStmt{
		Name:   name,
		Op:     op,
		Value:  rhs,
		Target: target,
		Span:   lang.Range{Start: start, End: p.prevEnd()},
	}, nil
}

// lvalue resolves an assignable expression to its root variable. Element
// and dereference stores keep the full expression as the target.
func lvalue(e lang.Expr) (string, lang.Expr, bool) {
	if id, ok := e.(*lang.Ident); ok {
		return id.Name, nil, true
	}
	name, ok := rootVar(e)
	return name, e, ok
}

func rootVar(e lang.Expr) (string, bool) {
	switch x := e.(type) {
	case *lang.Ident:
		return x.Name, true
	case *lang.IndexExpr:
		return rootVar(x.X)
	case *lang.ParenExpr:
		return rootVar(x.X)
	case *lang.UnaryExpr:
		if x.Op == "*" {
			return rootVar(x.X)
		}
	}
	return "", false
}

var binPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *cparser) expr() (lang.Expr, error) {
	c, err := p.binary(1)
	if err != nil {
		return nil, err
	}
	if !p.is("?") {
		return c, nil
	}
	p.next()
	a, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	b, err := p.expr()
	if err != nil {
		return nil, err
	}
	arms := &lang.BinaryExpr{Op: ":", X: a, Y: b, Span: lang.Range{Start: a.Pos(), End: b.End()}}
	return &lang.BinaryExpr{Op: "?", X: c, Y: arms, Span: lang.Range{Start: c.Pos(), End: b.End()}}, nil
}

func (p *cparser) binary(min int) (lang.Expr, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		if t.kind != tokPunct {
			return x, nil
		}
		prec, ok := binPrec[t.text]
		if !ok || prec < min {
			return x, nil
		}
		p.next()
		y, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		x = &lang.BinaryExpr{Op: t.text, X: x, Y: y, Span: lang.Range{Start: x.Pos(), End: y.End()}}
	}
}

var unaryOps = map[string]bool{
	"!": true, "~": true, "-": true, "+": true, "*": true, "&": true,
	"++": true, "--": true,
}

func (p *cparser) unary() (lang.Expr, error) {
	t := p.tok()
	if t.kind == tokPunct && unaryOps[t.text] {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &lang.UnaryExpr{Op: t.text, X: x, Span: lang.Range{Start: t.pos, End: x.End()}}, nil
	}
	return p.postfix()
}

func (p *cparser) postfix() (lang.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	field := ""
	for {
		t := p.tok()
		if t.kind != tokPunct {
			return x, nil
		}
		switch t.text {
		case "(":
			fun := field
			if fun == "" {
				var ok bool
				fun, ok = rootVar(x)
				if !ok {
					return nil, lang.Errorf(p.path, t.pos, "call of non-function expression")
				}
			}
			p.next()
			var args []lang.Expr
			if !p.is(")") {
				for {
					a, err := p.expr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.accept(",") {
						break
					}
				}
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			x = &lang.CallExpr{Fun: fun, Args: args, Span: lang.Range{Start: x.Pos(), End: p.prevEnd()}}
			field = ""
		case "[":
			p.next()
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &lang.IndexExpr{X: x, Index: idx, Span: lang.Range{Start: x.Pos(), End: p.prevEnd()}}
			field = ""
		case ".", "->":
			// Field accesses fold to their base variable.
			p.next()
			ft, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			field = ft.text
		case "++", "--":
			p.next()
			x = &lang.UnaryExpr{Op: t.text, X: x, Span: lang.Range{Start: x.Pos(), End: p.prevEnd()}}
			field = ""
		default:
			return x, nil
		}
	}
}

// cast consumes "(type)" when the current token opens one and reports
// whether it did.
func (p *cparser) cast() bool {
	j := p.i + 1
	n := 0
	for j < len(p.toks) {
		t := p.toks[j]
		if t.kind == tokIdent && typeWords[t.text] {
			n++
			j++
			continue
		}
		if t.kind == tokPunct && t.text == "*" {
			n++
			j++
			continue
		}
		break
	}
	if n == 0 || j >= len(p.toks) {
		return false
	}
	if p.toks[j].kind == tokPunct && p.toks[j].text == ")" {
		p.i = j + 1
		return true
	}
	return false
}

func (p *cparser) primary() (lang.Expr, error) {
	t := p.tok()
	switch t.kind {
	case tokIdent:
		p.next()
		return &lang.Ident{Name: t.text, Span: lang.Range{Start: t.pos, End: t.end()}}, nil
	case tokNumber:
		p.next()
		return &lang.Lit{Kind: lang.NumberLit, Value: t.text, Span: lang.Range{Start: t.pos, End: t.end()}}, nil
	case tokString:
		p.next()
		return &lang.Lit{Kind: lang.StringLit, Value: unquote(t.text), Span: lang.Range{Start: t.pos, End: t.end()}}, nil
	case tokChar:
		p.next()
		return &lang.Lit{Kind: lang.CharLit, Value: unquote(t.text), Span: lang.Range{Start: t.pos, End: t.end()}}, nil
	case tokPunct:
		if t.text == "(" {
			if p.cast() {
				// Casts fold to their operand.
				return p.unary()
			}
			p.next()
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return &lang.ParenExpr{X: e, Span: lang.Range{Start: t.pos, End: p.prevEnd()}}, nil
		}
	}
	return nil, lang.Errorf(p.path, t.pos, "expected expression, found %s", tokDesc(t))
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
