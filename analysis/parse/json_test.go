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
	"strings"
	"testing"

	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/parse"
)

const sampleExport = `{
  "functions": [
    {
      "name": "main",
      "file": "m.c",
      "params": [],
      "range": {"start": {"line": 1, "column": 1}, "end": {"line": 9, "column": 2}},
      "blocks": [
        {"id": 10, "label": "Entry", "isEntry": true, "statements": [], "successors": [11]},
        {"id": 11, "label": "B1", "statements": [
          {"text": "int x = read_int()", "range": {"start": {"line": 2, "column": 5}, "end": {"line": 2, "column": 23}}},
          {"text": "if (x > 0)", "range": {"start": {"line": 3, "column": 5}, "end": {"line": 3, "column": 15}}}
        ], "successors": [12, 13]},
        {"id": 12, "label": "B2", "statements": [
          {"text": "x = x + 1", "range": {"start": {"line": 4, "column": 9}, "end": {"line": 4, "column": 18}}}
        ], "successors": [13]},
        {"id": 13, "label": "Exit", "isExit": true, "statements": [], "successors": []}
      ]
    }
  ]
}`

func TestDecodeExport(t *testing.T) {
	fns, err := parse.DecodeExport("m.json", sampleExport)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(fns) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fns))
	}
	fn := fns[0]
	if fn.Name != "main" || len(fn.Blocks) != 4 {
		t.Fatalf("unexpected function %q with %d blocks", fn.Name, len(fn.Blocks))
	}

	// IDs remap to dense indices in document order.
	if got := fn.Blocks[1].Succs; len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("remapped successors = %v, want [2 3]", got)
	}
	if !fn.Blocks[0].IsEntry || !fn.Blocks[3].IsExit {
		t.Errorf("entry/exit flags lost in decoding")
	}

	stmts := fn.Blocks[1].Stmts
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements in block 1, got %d", len(stmts))
	}
	decl, ok := stmts[0].(*lang.DeclStmt)
	if !ok || decl.Name != "x" {
		t.Fatalf("statement 0 = %s, want declaration of x", lang.StmtString(stmts[0]))
	}
	if got := decl.Pos(); got.Line != 2 || got.Col != 5 {
		t.Errorf("declaration position = %v, want 2:5", got)
	}
	if _, ok := stmts[1].(*lang.CondStmt); !ok {
		t.Errorf("statement 1 is %T, want condition", stmts[1])
	}
}

func TestDecodeExportBuilds(t *testing.T) {
	build := parse.ForPath("m.json")
	res, err := build("m.json", sampleExport)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	fn := res.Function("main")
	if fn == nil {
		t.Fatalf("main missing from result")
	}
	if fn.Entry != 0 || fn.Exit != 3 {
		t.Errorf("entry/exit = %d/%d, want 0/3", fn.Entry, fn.Exit)
	}
	if got := fn.Blocks[3].Preds; len(got) != 2 {
		t.Errorf("exit predecessors = %v, want two", got)
	}
	if len(fn.Info.Calls) != 1 || fn.Info.Calls[0].Callee != "read_int" {
		t.Errorf("call edges = %+v, want one to read_int", fn.Info.Calls)
	}
}

func TestDecodeExportErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"invalid json", "{", "invalid exporter document"},
		{
			"unknown successor",
			`{"functions":[{"name":"f","blocks":[{"id":0,"isEntry":true,"successors":[7]},{"id":1,"isExit":true}]}]}`,
			"unknown successor",
		},
		{
			"duplicate block",
			`{"functions":[{"name":"f","blocks":[{"id":0,"isEntry":true},{"id":0,"isExit":true}]}]}`,
			"duplicate block",
		},
		{
			"bad statement",
			`{"functions":[{"name":"f","blocks":[{"id":0,"isEntry":true,"statements":[{"text":"x = "}]},{"id":1,"isExit":true}]}]}`,
			"expected expression",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse.DecodeExport("bad.json", tc.doc)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	// The C-like front end is the default; only extensions change it.
	if _, err := parse.ForPath("x.c")("x.c", "int f() { return 0; }"); err != nil {
		t.Errorf("c path failed: %v", err)
	}
	if _, err := parse.ForPath("x")("x", "int f() { return 0; }"); err != nil {
		t.Errorf("extensionless path failed: %v", err)
	}
	if _, err := parse.ForPath("x.go")("x.go", "package p\nfunc f() {}"); err != nil {
		t.Errorf("go path failed: %v", err)
	}
	if _, err := parse.ForPath("x.json")("x.json", `{"functions":[]}`); err != nil {
		t.Errorf("json path failed: %v", err)
	}
}
