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

import "fmt"

// Pos is a position in a source file. Line and Col are 1-based; the zero
// Pos means "no position".
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// IsValid reports whether the position carries a real location.
func (p Pos) IsValid() bool { return p.Line > 0 }

// Before reports whether p sorts before q in source order.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Range spans from Start up to but not including End.
type Range struct {
	Start Pos `json:"start"`
	End   Pos `json:"end"`
}

// Span returns the range covering both a and b.
func Span(a, b Range) Range {
	r := a
	if b.Start.IsValid() && (!r.Start.IsValid() || b.Start.Before(r.Start)) {
		r.Start = b.Start
	}
	if b.End.IsValid() && r.End.Before(b.End) {
		r.End = b.End
	}
	return r
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// ParseError reports malformed source, either rejected by a front end or
// by the CFG builder when the syntax tree cannot form a well-formed graph.
type ParseError struct {
	Path string
	Pos  Pos
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%s: %s", e.Path, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// Errorf builds a ParseError at the given position.
func Errorf(path string, pos Pos, format string, args ...interface{}) *ParseError {
	return &ParseError{Path: path, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
