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

package dataflow_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/parse"
)

func buildFunc(t *testing.T, src, name string) *cfg.Function {
	t.Helper()
	file, err := parse.CLike("test.c", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	fn := res.Function(name)
	if fn == nil {
		t.Fatalf("function %s missing", name)
	}
	return fn
}

func analyze(t *testing.T, src, name string) *dataflow.FuncResult {
	t.Helper()
	res, err := dataflow.Analyze(buildFunc(t, src, name), dataflow.Options{})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	return res
}

func TestLivenessIfJoin(t *testing.T) {
	res := analyze(t, `
int f(int a, int b) {
    int x = a + 1;
    int y = 2;
    if (x > b) {
        y = x;
    }
    return y;
}
`, "f")
	// Blocks: 0 entry, 1 exit, 2 first (x, y, cond), 3 then (y = x),
	// 4 join (return y).
	cases := []struct {
		block int
		in    []string
		out   []string
	}{
		{0, []string{"a", "b"}, []string{"a", "b"}},
		{2, []string{"a", "b"}, []string{"x", "y"}},
		{3, []string{"x"}, []string{"y"}},
		{4, []string{"y"}, nil},
	}
	for _, tc := range cases {
		if got := res.LiveIn(tc.block); !sameStrings(got, tc.in) {
			t.Errorf("LiveIn(%d) = %v, want %v", tc.block, got, tc.in)
		}
		if got := res.LiveOut(tc.block); !sameStrings(got, tc.out) {
			t.Errorf("LiveOut(%d) = %v, want %v", tc.block, got, tc.out)
		}
	}
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || reflect.DeepEqual(a, b)
}

func TestReachingDefsBranches(t *testing.T) {
	res := analyze(t, `
int f(int a, int b) {
    int x = a + 1;
    int y = 2;
    if (x > b) {
        y = x;
    }
    return y;
}
`, "f")
	// Both definitions of y reach the return block.
	in := res.ReachIn(4)
	count := map[string]int{}
	for _, d := range in {
		count[d.Var]++
	}
	if count["y"] != 2 {
		t.Errorf("expected both y definitions at the join, got %v", in)
	}
	// Parameter bindings count as definitions.
	if count["a"] != 1 || count["b"] != 1 {
		t.Errorf("parameter bindings missing from ReachIn: %v", in)
	}
	// The then-branch sees only the initial y.
	count = map[string]int{}
	for _, d := range res.ReachIn(3) {
		count[d.Var]++
	}
	if count["y"] != 1 {
		t.Errorf("then branch should see one y definition, got %v", res.ReachIn(3))
	}
}

func TestReachingDefsLoop(t *testing.T) {
	res := analyze(t, `
int count(int n) {
    int i = 0;
    while (i < n) {
        i = i + 1;
    }
    return i;
}
`, "count")
	// Blocks: 2 first (i = 0), 3 header, 4 body (i = i + 1), 5 return.
	// The body's definition flows around the back edge into the header.
	headerDefs := map[string]int{}
	for _, d := range res.ReachIn(3) {
		headerDefs[d.Var]++
	}
	if headerDefs["i"] != 2 {
		t.Errorf("loop header should see both i definitions, got %v", res.ReachIn(3))
	}
	retDefs := map[string]int{}
	for _, d := range res.ReachIn(5) {
		retDefs[d.Var]++
	}
	if retDefs["i"] != 2 || retDefs["n"] != 1 {
		t.Errorf("return block ReachIn = %v", res.ReachIn(5))
	}
}

func TestLivenessLoop(t *testing.T) {
	res := analyze(t, `
int count(int n) {
    int i = 0;
    while (i < n) {
        i = i + 1;
    }
    return i;
}
`, "count")
	// i and n stay live around the loop; only i survives it.
	if got := res.LiveIn(3); !sameStrings(got, []string{"i", "n"}) {
		t.Errorf("LiveIn(header) = %v, want [i n]", got)
	}
	if got := res.LiveIn(5); !sameStrings(got, []string{"i"}) {
		t.Errorf("LiveIn(return) = %v, want [i]", got)
	}
}

func TestSolverIterationCap(t *testing.T) {
	fn := buildFunc(t, `
int f(int a) {
    int x = a;
    return x;
}
`, "f")
	_, err := dataflow.Analyze(fn, dataflow.Options{MaxIterations: 1})
	if err == nil {
		t.Fatalf("expected the cap to trip")
	}
	if !errors.Is(err, dataflow.ErrNonTermination) {
		t.Errorf("error should unwrap to ErrNonTermination, got %v", err)
	}
	var serr *dataflow.SolveError
	if !errors.As(err, &serr) {
		t.Fatalf("error is %T, want *SolveError", err)
	}
	if serr.Function != "f" || serr.Analysis != "liveness" {
		t.Errorf("SolveError = %+v", serr)
	}
}

func TestAnalyzeAllKeepsOrder(t *testing.T) {
	file, err := parse.CLike("test.c", `
int first(int a) { return a; }
int second(int b) { return b + 1; }
int third() { return 0; }
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	all, err := dataflow.AnalyzeAll(res.Functions, dataflow.Options{Parallelism: 3})
	if err != nil {
		t.Fatalf("AnalyzeAll failed: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, r := range all {
		if r.Fn.Info.Name != want[i] {
			t.Errorf("result %d is %s, want %s", i, r.Fn.Info.Name, want[i])
		}
	}
}

func TestAnalyzeAllPropagatesError(t *testing.T) {
	file, err := parse.CLike("test.c", `
int ok() { return 0; }
int loopy(int n) {
    while (n > 0) {
        n = n - 1;
    }
    return n;
}
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, err := dataflow.AnalyzeAll(res.Functions, dataflow.Options{MaxIterations: 1}); !errors.Is(err, dataflow.ErrNonTermination) {
		t.Errorf("expected ErrNonTermination, got %v", err)
	}
}
