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

package parse_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/parse"
)

const sampleGo = `package sample

//reflow:sink runQuery query
func handler(req string) string {
	q := build(req)
	if len(q) > 0 {
		runQuery(q)
	}
	total := 0
	for i := 0; i < 3; i++ {
		total += i
	}
	return q
}

type store struct{ n int }

func (s *store) flush(n int) {
	for n > 0 {
		n--
	}
}
`

func TestGoSourceLowering(t *testing.T) {
	file, err := parse.GoSource("sample.go", sampleGo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(file.Funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(file.Funcs))
	}
	if file.Funcs[0].Name != "handler" {
		t.Errorf("unexpected name %q", file.Funcs[0].Name)
	}
	if file.Funcs[1].Name != "store.flush" {
		t.Errorf("method name = %q, want store.flush", file.Funcs[1].Name)
	}

	if len(file.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(file.Directives))
	}
	if d := file.Directives[0]; d.Kind != "sink" || d.Func != "runQuery" || d.Label != "query" {
		t.Errorf("unexpected directive %+v", d)
	}

	body := file.Funcs[0].Body
	if len(body) != 5 {
		t.Fatalf("expected 5 statements in handler, got %d", len(body))
	}
	if d, ok := body[0].(*lang.DeclStmt); !ok || d.Name != "q" {
		t.Errorf("statement 0 should declare q, got %s", lang.StmtString(body[0]))
	}
	if _, ok := body[1].(*lang.IfStmt); !ok {
		t.Errorf("statement 1 is %T, want if", body[1])
	}
	loop, ok := body[3].(*lang.ForStmt)
	if !ok {
		t.Fatalf("statement 3 is %T, want for", body[3])
	}
	if _, ok := loop.Init.(*lang.DeclStmt); !ok {
		t.Errorf("loop init is %T, want declaration", loop.Init)
	}
	post, ok := loop.Post.(*lang.AssignStmt)
	if !ok || post.Op != "+=" {
		t.Errorf("i++ should lower to a compound assignment, got %s", lang.StmtString(loop.Post))
	}

	// A condition-only for lowers to while.
	if _, ok := file.Funcs[1].Body[0].(*lang.WhileStmt); !ok {
		t.Errorf("cond-only for is %T, want while", file.Funcs[1].Body[0])
	}
}

func TestGoSourceQualifiedCalls(t *testing.T) {
	src := `package sample

func f() {
	v := os.Getenv("HOME")
	print(v)
}
`
	file, err := parse.GoSource("calls.go", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	decl := file.Funcs[0].Body[0].(*lang.DeclStmt)
	call, ok := decl.Init.(*lang.CallExpr)
	if !ok || call.Fun != "os.Getenv" {
		t.Errorf("qualified call = %s, want os.Getenv(...)", lang.ExprString(decl.Init))
	}
}

func TestGoSourceRejectsUnsupported(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"go statement", "package p\nfunc f() { go f() }", "unsupported statement"},
		{"select", "package p\nfunc f() { select {} }", "unsupported statement"},
		{"parallel assign", "package p\nfunc f() { a, b := 1, 2; _ = a; _ = b }", "parallel assignment"},
		{"range loop", "package p\nfunc f(xs []int) { for range xs {} }", "unsupported statement"},
		{"syntax error", "package p\nfunc f() {", "expected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse.GoSource("bad.go", tc.src)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			var perr *lang.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error is %T, want *lang.ParseError", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
