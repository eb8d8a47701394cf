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
	"encoding/json"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
)

// Exporter documents carry control flow graphs produced by an external
// compiler front end. Statements arrive as source text with absolute
// ranges; conditions of branching blocks appear as their own "if (expr)"
// statement. Block IDs may be arbitrary and are remapped to dense indices
// in document order.

type exportDoc struct {
	Functions []exportFunction `json:"functions"`
}

type exportFunction struct {
	Name   string        `json:"name"`
	File   string        `json:"file"`
	Params []string      `json:"params"`
	Range  exportRange   `json:"range"`
	Blocks []exportBlock `json:"blocks"`
}

type exportBlock struct {
	ID           int               `json:"id"`
	Label        string            `json:"label"`
	IsEntry      bool              `json:"isEntry"`
	IsExit       bool              `json:"isExit"`
	Statements   []exportStatement `json:"statements"`
	Successors   []int             `json:"successors"`
	Predecessors []int             `json:"predecessors"`
}

type exportStatement struct {
	Text  string      `json:"text"`
	Range exportRange `json:"range"`
}

type exportRange struct {
	Start exportPos `json:"start"`
	End   exportPos `json:"end"`
}

type exportPos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (r exportRange) span() lang.Range {
	return lang.Range{
		Start: lang.Pos{Line: r.Start.Line, Col: r.Start.Column},
		End:   lang.Pos{Line: r.End.Line, Col: r.End.Column},
	}
}

// DecodeExport parses an exporter document into raw functions ready for
// cfg.Assemble.
func DecodeExport(path, content string) ([]cfg.RawFunction, error) {
	var doc exportDoc
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, lang.Errorf(path, lang.Pos{}, "invalid exporter document: %v", err)
	}
	var fns []cfg.RawFunction
	for i := range doc.Functions {
		fn, err := decodeFunction(path, &doc.Functions[i])
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func decodeFunction(path string, ef *exportFunction) (cfg.RawFunction, error) {
	span := ef.Range.span()
	idx := make(map[int]int, len(ef.Blocks))
	for i, b := range ef.Blocks {
		if _, dup := idx[b.ID]; dup {
			return cfg.RawFunction{}, lang.Errorf(path, span.Start, "function %s: duplicate block id %d", ef.Name, b.ID)
		}
		idx[b.ID] = i
	}

	raw := cfg.RawFunction{
		Name:   ef.Name,
		Params: ef.Params,
		Span:   span,
		Blocks: make([]cfg.RawBlock, len(ef.Blocks)),
	}
	for i := range ef.Blocks {
		eb := &ef.Blocks[i]
		rb := cfg.RawBlock{IsEntry: eb.IsEntry, IsExit: eb.IsExit}
		for _, s := range eb.Statements {
			at := s.Range.span()
			stmt, err := parseFragment(path, s.Text, at)
			if err != nil {
				return cfg.RawFunction{}, err
			}
			rb.Stmts = append(rb.Stmts, stmt)
			rb.Span = lang.Span(rb.Span, at)
		}
		for _, succ := range eb.Successors {
			j, ok := idx[succ]
			if !ok {
				return cfg.RawFunction{}, lang.Errorf(path, span.Start, "function %s: block %d has unknown successor %d", ef.Name, eb.ID, succ)
			}
			rb.Succs = append(rb.Succs, j)
		}
		raw.Blocks[i] = rb
	}
	return raw, nil
}

// parseFragment parses one straight-line statement from an exporter
// document. The given range becomes the statement span; positions inside
// the fragment are derived from the range start.
func parseFragment(path, text string, at lang.Range) (lang.Stmt, error) {
	lx := newLexer(path, text, at.Start)
	toks, _, err := lx.lex()
	if err != nil {
		return nil, err
	}
	p := &cparser{path: path, toks: toks}

	var s lang.Stmt
	t := p.tok()
	switch {
	case t.kind == tokIdent && (t.text == "if" || t.text == "while"):
		p.next()
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		c, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		s = &lang.CondStmt{Cond: c, Span: at}
	case t.kind == tokIdent && t.text == "return":
		p.next()
		var val lang.Expr
		if !p.is(";") && !p.atEOF() {
			val, err = p.expr()
			if err != nil {
				return nil, err
			}
		}
		s = &lang.ReturnStmt{Value: val, Span: at}
	case t.kind == tokIdent && t.text == "break":
		// The jump itself is already encoded in the block edges.
		p.next()
		s = &lang.BreakStmt{Span: at}
	case t.kind == tokIdent && t.text == "continue":
		p.next()
		s = &lang.ContinueStmt{Span: at}
	case p.looksLikeDecl():
		decls, err := p.declList()
		if err != nil {
			return nil, err
		}
		if len(decls) != 1 {
			return nil, lang.Errorf(path, at.Start, "expected a single declaration in %q", text)
		}
		s = decls[0]
	default:
		s, err = p.simple()
		if err != nil {
			return nil, err
		}
	}
	p.accept(";")
	if !p.atEOF() {
		return nil, lang.Errorf(path, p.tok().pos, "trailing tokens after statement in %q", text)
	}
	setSpan(s, at)
	return s, nil
}

func setSpan(s lang.Stmt, at lang.Range) {
	if !at.Start.IsValid() {
		return
	}
	switch x := s.(type) {
	case *lang.DeclStmt:
		x.Span = at
	case *lang.AssignStmt:
		x.Span = at
	case *lang.ExprStmt:
		x.Span = at
	case *lang.ReturnStmt:
		x.Span = at
	case *lang.CondStmt:
		x.Span = at
	}
}
