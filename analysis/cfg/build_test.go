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

package cfg_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/parse"
)

func buildC(t *testing.T, src string) *cfg.Result {
	t.Helper()
	file, err := parse.CLike("test.c", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return res
}

func succs(fn *cfg.Function, id int) []int { return fn.Blocks[id].Succs }

func hasEdge(fn *cfg.Function, from, to int) bool {
	for _, s := range succs(fn, from) {
		if s == to {
			return true
		}
	}
	return false
}

func TestBuildLinear(t *testing.T) {
	res := buildC(t, `
int f(int a) {
    int b = a + 1;
    return b;
}
`)
	fn := res.Function("f")
	if fn == nil {
		t.Fatalf("function f missing")
	}
	if len(fn.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(fn.Blocks))
	}
	if fn.Blocks[fn.Entry].Kind != cfg.EntryBlock || fn.Blocks[fn.Exit].Kind != cfg.ExitBlock {
		t.Errorf("entry/exit kinds wrong")
	}
	if !hasEdge(fn, fn.Entry, 2) || !hasEdge(fn, 2, fn.Exit) {
		t.Errorf("linear edges wrong: %v, %v", succs(fn, fn.Entry), succs(fn, 2))
	}
	if len(fn.Blocks[2].Stmts) != 2 {
		t.Errorf("body block has %d statements, want 2", len(fn.Blocks[2].Stmts))
	}
}

func TestBuildIfElse(t *testing.T) {
	res := buildC(t, `
int f(int a) {
    int r = 0;
    if (a > 0) {
        r = 1;
    } else {
        r = 2;
    }
    return r;
}
`)
	fn := res.Function("f")
	// entry, exit, first, then, else, join
	if len(fn.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(fn.Blocks))
	}
	first := fn.Blocks[2]
	last := first.Stmts[len(first.Stmts)-1]
	if _, ok := last.(*lang.CondStmt); !ok {
		t.Errorf("branching block should end with a condition, got %s", lang.StmtString(last))
	}
	if len(first.Succs) != 2 {
		t.Fatalf("branching block has %d successors, want 2", len(first.Succs))
	}
	thenID, elseID := first.Succs[0], first.Succs[1]
	join := fn.Blocks[thenID].Succs[0]
	if !hasEdge(fn, elseID, join) {
		t.Errorf("both branches should meet at the join block")
	}
	if !hasEdge(fn, join, fn.Exit) {
		t.Errorf("join should fall through to exit")
	}
}

func TestBuildWhile(t *testing.T) {
	res := buildC(t, `
void f(int n) {
    while (n > 0) {
        n = n - 1;
    }
    n = 0;
}
`)
	fn := res.Function("f")
	// entry, exit, first, header, body, after
	if len(fn.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(fn.Blocks))
	}
	header := fn.Blocks[3]
	if _, ok := header.Stmts[0].(*lang.CondStmt); !ok {
		t.Fatalf("loop header should hold the condition")
	}
	body, after := header.Succs[0], header.Succs[1]
	if !hasEdge(fn, body, header.ID) {
		t.Errorf("loop body should edge back to the header")
	}
	if !hasEdge(fn, after, fn.Exit) {
		t.Errorf("loop exit should continue to the function exit")
	}
	// The header joins the initial edge and the back edge.
	if len(header.Preds) != 2 {
		t.Errorf("header preds = %v, want two", header.Preds)
	}
}

func TestBuildForLoop(t *testing.T) {
	res := buildC(t, `
void f(int n) {
    int s = 0;
    for (int i = 0; i < n; i++) {
        s += i;
    }
}
`)
	fn := res.Function("f")
	// entry, exit, first(s,i), header, body, after, post
	if len(fn.Blocks) != 7 {
		t.Fatalf("expected 7 blocks, got %d", len(fn.Blocks))
	}
	first := fn.Blocks[2]
	if len(first.Stmts) != 2 {
		t.Errorf("init block should hold s and i declarations, has %d statements", len(first.Stmts))
	}
	header := fn.Blocks[3]
	body := header.Succs[0]
	post := fn.Blocks[6]
	if !hasEdge(fn, body, post.ID) || !hasEdge(fn, post.ID, header.ID) {
		t.Errorf("post block should sit between body and header")
	}
	if len(post.Stmts) != 1 {
		t.Errorf("post block should hold the increment")
	}
}

func TestBuildBreakContinue(t *testing.T) {
	res := buildC(t, `
void f(int n) {
    while (n > 0) {
        if (n == 3) {
            break;
        }
        if (n == 4) {
            continue;
        }
        n--;
    }
}
`)
	fn := res.Function("f")
	header := fn.Blocks[3]
	after := header.Succs[1]

	foundBreak, foundContinue := false, false
	for _, blk := range fn.Blocks {
		for _, s := range blk.Succs {
			if s == after && blk.ID != header.ID {
				foundBreak = true
			}
			if s == header.ID && blk.ID != 2 {
				// A non-entry edge back into the header is either the back
				// edge or a continue.
				foundContinue = true
			}
		}
	}
	if !foundBreak {
		t.Errorf("break should edge to the loop exit")
	}
	if !foundContinue {
		t.Errorf("continue should edge back to the header")
	}
}

func TestBuildReturnEdges(t *testing.T) {
	res := buildC(t, `
int f(int a) {
    if (a > 0) {
        return 1;
    } else {
        return 2;
    }
}
`)
	fn := res.Function("f")
	exit := fn.Blocks[fn.Exit]
	if len(exit.Preds) != 2 {
		t.Errorf("exit preds = %v, want both returning branches", exit.Preds)
	}
	// The empty join after two returning branches is allowed.
	for _, blk := range fn.Blocks {
		if len(blk.Preds) == 0 && blk.Kind == cfg.BodyBlock && len(blk.Stmts) > 0 {
			t.Errorf("non-empty unreachable block %d survived the build", blk.ID)
		}
	}
}

func TestBuildRejectsUnreachable(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"after return", "int f() { return 1; int x = 2; }"},
		{"after break", "void f() { while (1) { break; int x = 2; } }"},
		{"after terminating if", "int f(int a) { if (a) { return 1; } else { return 2; } int x = 3; return x; }"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file, err := parse.CLike("test.c", tc.src)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			_, err = cfg.Build(file)
			if err == nil {
				t.Fatalf("expected unreachable code error")
			}
			var perr *lang.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error is %T, want *lang.ParseError", err)
			}
			if !strings.Contains(err.Error(), "unreachable code") {
				t.Errorf("error %q should mention unreachable code", err)
			}
		})
	}
}

func TestBuildRejectsStrayBranches(t *testing.T) {
	file, err := parse.CLike("test.c", "void f() { break; }")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, err := cfg.Build(file); err == nil || !strings.Contains(err.Error(), "break outside a loop") {
		t.Errorf("expected break outside a loop error, got %v", err)
	}
}

func TestBuildRejectsRedefinition(t *testing.T) {
	file, err := parse.CLike("test.c", "int f() { return 1; }\nint f() { return 2; }")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, err := cfg.Build(file); err == nil || !strings.Contains(err.Error(), "redefined") {
		t.Errorf("expected redefinition error, got %v", err)
	}
}

func TestBuildCallEdges(t *testing.T) {
	res := buildC(t, `
int helper(int n) {
    return n;
}

int f(int a) {
    int b = helper(outside(a));
    if (b > 0) {
        log_value(b);
    }
    return helper(b);
}
`)
	fn := res.Function("f")
	calls := fn.Info.Calls
	if len(calls) != 4 {
		t.Fatalf("expected 4 call edges, got %+v", calls)
	}
	// Edges sort by source location.
	for i := 1; i < len(calls); i++ {
		if calls[i].Site.Before(calls[i-1].Site) {
			t.Errorf("call edges out of order: %+v", calls)
		}
	}
	names := map[string]int{}
	for _, c := range calls {
		names[c.Callee]++
	}
	if names["helper"] != 2 || names["outside"] != 1 || names["log_value"] != 1 {
		t.Errorf("unexpected callees %v", names)
	}
}

func TestBuildInfiniteLoop(t *testing.T) {
	res := buildC(t, `
void f() {
    for (;;) {
        tick();
    }
}
`)
	fn := res.Function("f")
	// The exit block is unreachable but empty, which is fine.
	if len(fn.Blocks[fn.Exit].Preds) != 0 {
		t.Errorf("infinite loop should leave the exit unreachable, preds %v", fn.Blocks[fn.Exit].Preds)
	}
}
