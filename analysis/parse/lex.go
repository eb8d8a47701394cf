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
	"strings"

	"github.com/reflowlabs/reflow/analysis/lang"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokChar
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  lang.Pos
}

// end returns the position just past the token. Tokens never span lines.
func (t token) end() lang.Pos {
	return lang.Pos{Line: t.pos.Line, Col: t.pos.Col + len(t.text)}
}

type lexer struct {
	path string
	src  string
	off  int
	line int
	col  int
}

// newLexer starts lexing src at the given position, which lets callers lex
// statement fragments extracted from a larger file while keeping absolute
// source locations.
func newLexer(path, src string, at lang.Pos) *lexer {
	if !at.IsValid() {
		at = lang.Pos{Line: 1, Col: 1}
	}
	return &lexer{path: path, src: src, line: at.Line, col: at.Col}
}

// lex tokenizes the whole input. Annotation comments of the form
// //reflow:KIND are returned separately in source order; other comments and
// preprocessor lines are skipped.
func (lx *lexer) lex() ([]token, []lang.Directive, error) {
	var toks []token
	var dirs []lang.Directive
	for {
		lx.skipSpace()
		if lx.eof() {
			toks = append(toks, token{kind: tokEOF, pos: lx.pos()})
			return toks, dirs, nil
		}
		c := lx.src[lx.off]
		switch {
		case c == '#':
			lx.skipLine()
		case c == '/' && lx.at("//"):
			if d, ok := directive(lx.rest()); ok {
				dirs = append(dirs, d)
			}
			lx.skipLine()
		case c == '/' && lx.at("/*"):
			if err := lx.skipBlockComment(); err != nil {
				return nil, nil, err
			}
		case isIdentStart(c):
			toks = append(toks, lx.ident())
		case c >= '0' && c <= '9':
			toks = append(toks, lx.number())
		case c == '"':
			t, err := lx.quoted('"', tokString, "string literal")
			if err != nil {
				return nil, nil, err
			}
			toks = append(toks, t)
		case c == '\'':
			t, err := lx.quoted('\'', tokChar, "character literal")
			if err != nil {
				return nil, nil, err
			}
			toks = append(toks, t)
		default:
			t, err := lx.punct()
			if err != nil {
				return nil, nil, err
			}
			toks = append(toks, t)
		}
	}
}

func (lx *lexer) pos() lang.Pos { return lang.Pos{Line: lx.line, Col: lx.col} }

func (lx *lexer) eof() bool { return lx.off >= len(lx.src) }

func (lx *lexer) at(s string) bool { return strings.HasPrefix(lx.src[lx.off:], s) }

// rest returns the remainder of the current line without advancing.
func (lx *lexer) rest() string {
	end := strings.IndexByte(lx.src[lx.off:], '\n')
	if end < 0 {
		return lx.src[lx.off:]
	}
	return lx.src[lx.off : lx.off+end]
}

func (lx *lexer) advance() {
	if lx.src[lx.off] == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	lx.off++
}

func (lx *lexer) skipSpace() {
	for !lx.eof() {
		switch lx.src[lx.off] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			lx.advance()
		default:
			return
		}
	}
}

func (lx *lexer) skipLine() {
	for !lx.eof() && lx.src[lx.off] != '\n' {
		lx.advance()
	}
}

func (lx *lexer) skipBlockComment() error {
	open := lx.pos()
	lx.advance()
	lx.advance()
	for !lx.eof() {
		if lx.at("*/") {
			lx.advance()
			lx.advance()
			return nil
		}
		lx.advance()
	}
	return lang.Errorf(lx.path, open, "unterminated comment")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (lx *lexer) ident() token {
	t := token{kind: tokIdent, pos: lx.pos()}
	start := lx.off
	for !lx.eof() && isIdentPart(lx.src[lx.off]) {
		lx.advance()
	}
	t.text = lx.src[start:lx.off]
	return t
}

func (lx *lexer) number() token {
	t := token{kind: tokNumber, pos: lx.pos()}
	start := lx.off
	if lx.at("0x") || lx.at("0X") {
		lx.advance()
		lx.advance()
		for !lx.eof() && isHexDigit(lx.src[lx.off]) {
			lx.advance()
		}
	} else {
		lx.digits()
		if !lx.eof() && lx.src[lx.off] == '.' {
			lx.advance()
			lx.digits()
		}
		if !lx.eof() && (lx.src[lx.off] == 'e' || lx.src[lx.off] == 'E') {
			lx.advance()
			if !lx.eof() && (lx.src[lx.off] == '+' || lx.src[lx.off] == '-') {
				lx.advance()
			}
			lx.digits()
		}
	}
	// Integer and float suffixes stay part of the literal text.
	for !lx.eof() && strings.IndexByte("uUlLfF", lx.src[lx.off]) >= 0 {
		lx.advance()
	}
	t.text = lx.src[start:lx.off]
	return t
}

func (lx *lexer) digits() {
	for !lx.eof() && lx.src[lx.off] >= '0' && lx.src[lx.off] <= '9' {
		lx.advance()
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// quoted lexes a string or character literal. The token text keeps its
// quotes so that positions stay exact; consumers strip them.
func (lx *lexer) quoted(quote byte, kind tokKind, what string) (token, error) {
	t := token{kind: kind, pos: lx.pos()}
	start := lx.off
	lx.advance()
	for !lx.eof() {
		c := lx.src[lx.off]
		if c == '\n' {
			break
		}
		if c == '\\' && lx.off+1 < len(lx.src) {
			lx.advance()
			lx.advance()
			continue
		}
		if c == quote {
			lx.advance()
			t.text = lx.src[start:lx.off]
			return t, nil
		}
		lx.advance()
	}
	return token{}, lang.Errorf(lx.path, t.pos, "unterminated %s", what)
}

// puncts are tried longest first so that multi-character operators win.
var puncts = []string{
	"<<=", ">>=", "...",
	"==", "!=", "<=", ">=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"++", "--", "->", "<<", ">>",
	"(", ")", "{", "}", "[", "]", ";", ",", "=", "<", ">",
	"+", "-", "*", "/", "%", "!", "&", "|", "^", "~", "?", ":", ".",
}

func (lx *lexer) punct() (token, error) {
	t := token{kind: tokPunct, pos: lx.pos()}
	for _, p := range puncts {
		if lx.at(p) {
			t.text = p
			for range p {
				lx.advance()
			}
			return t, nil
		}
	}
	return token{}, lang.Errorf(lx.path, t.pos, "unexpected character %q", lx.src[lx.off])
}

// directive recognizes annotation comments. The accepted forms are
//
//	//reflow:source <func> [label]
//	//reflow:sink <func> [kind]
//	//reflow:sanitizer <func>
//	//reflow:validator <func>
//
// Anything else starting with //reflow: is ignored rather than rejected so
// that unrelated tooling comments cannot fail a parse.
func directive(comment string) (lang.Directive, bool) {
	body, ok := strings.CutPrefix(comment, "//reflow:")
	if !ok {
		return lang.Directive{}, false
	}
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return lang.Directive{}, false
	}
	d := lang.Directive{Kind: fields[0], Func: fields[1]}
	if len(fields) > 2 {
		d.Label = fields[2]
	}
	switch d.Kind {
	case "source", "sink", "sanitizer", "validator":
		return d, true
	}
	return lang.Directive{}, false
}
