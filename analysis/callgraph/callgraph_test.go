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

package callgraph_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/reflowlabs/reflow/analysis/callgraph"
	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/state"
)

func fn(name, file string, callees ...string) *cfg.FunctionInfo {
	info := &cfg.FunctionInfo{Name: name, File: file}
	for i, c := range callees {
		info.Calls = append(info.Calls, cfg.CallEdge{Callee: c, Site: lang.Pos{Line: i + 1, Col: 1}})
	}
	return info
}

func snapshot(fns ...*cfg.FunctionInfo) *state.Snapshot {
	byFile := map[string][]*cfg.FunctionInfo{}
	for _, info := range fns {
		byFile[info.File] = append(byFile[info.File], info)
	}
	s := state.Empty()
	for path, infos := range byFile {
		fs := &state.FileState{Path: path}
		for _, info := range infos {
			fs.Functions = append(fs.Functions, &state.FuncView{Info: info})
		}
		s = s.WithFileUpdate(path, fs)
	}
	return s
}

func TestRecursiveSelfCall(t *testing.T) {
	g := callgraph.Build(snapshot(
		fn("fact", "a.c", "fact"),
		fn("main", "a.c", "fact"),
	))
	if got := g.Recursive(); !reflect.DeepEqual(got, []string{"fact"}) {
		t.Errorf("recursive = %v, want [fact]", got)
	}
	cycles := g.Cycles()
	if len(cycles) != 1 || !reflect.DeepEqual(cycles[0], []string{"fact", "fact"}) {
		t.Errorf("cycles = %v", cycles)
	}
}

func TestRecursiveMutualCrossFile(t *testing.T) {
	g := callgraph.Build(snapshot(
		fn("even", "a.c", "odd"),
		fn("odd", "b.c", "even"),
		fn("main", "a.c", "even"),
	))
	if got := g.Recursive(); !reflect.DeepEqual(got, []string{"even", "odd"}) {
		t.Errorf("recursive = %v, want [even odd]", got)
	}
	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %v", cycles)
	}
	c := cycles[0]
	if len(c) != 3 || c[0] != c[len(c)-1] {
		t.Errorf("cycle %v is not a closed path", c)
	}
}

func TestExternalCalleesAreNodes(t *testing.T) {
	g := callgraph.Build(snapshot(fn("f", "a.c", "printf", "f")))
	defined, external := g.Size()
	if defined != 1 || external != 1 {
		t.Errorf("size = %d defined, %d external", defined, external)
	}
	if _, ok := g.ID("printf"); !ok {
		t.Error("external callee missing from node table")
	}
	if got := g.Recursive(); !reflect.DeepEqual(got, []string{"f"}) {
		t.Errorf("recursive = %v", got)
	}
}

func TestDirectedAdapter(t *testing.T) {
	g := callgraph.Build(snapshot(
		fn("a", "x.c", "b"),
		fn("b", "x.c"),
	))
	d := g.Directed()
	ida, _ := g.ID("a")
	idb, _ := g.ID("b")
	if !d.HasEdgeFromTo(ida, idb) {
		t.Error("edge a->b missing in gonum view")
	}
	if d.HasEdgeFromTo(idb, ida) {
		t.Error("unexpected edge b->a in gonum view")
	}
	if n := d.Node(ida); n == nil || n.ID() != ida {
		t.Error("node lookup through gonum view failed")
	}
}

func TestWriteGraphviz(t *testing.T) {
	g := callgraph.Build(snapshot(fn("f", "a.c", "g", "printf"), fn("g", "a.c")))
	var b strings.Builder
	if err := g.WriteGraphviz(&b); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "digraph callgraph {\n") || !strings.HasSuffix(out, "}\n") {
		t.Errorf("malformed dot output:\n%s", out)
	}
	for _, want := range []string{
		`"f" -> "g";`,
		`"f" -> "printf" [style=dashed];`,
		`"printf" [shape=oval,style=dashed];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteCFGGraphviz(t *testing.T) {
	fv := &state.FuncView{
		Info: &cfg.FunctionInfo{Name: "f", File: "a.c"},
		Blocks: []state.BlockView{
			{ID: 0, Label: "Entry", Succs: []int{2}},
			{ID: 1, Label: "Exit"},
			{ID: 2, Label: "B2", Succs: []int{3, 4}, Stmts: []state.StmtView{{Text: `x = "a"`}, {Text: "if x > 0"}}},
			{ID: 3, Label: "B3", Succs: []int{1}},
			{ID: 4, Label: "B4", Succs: []int{1}},
		},
	}
	var b strings.Builder
	if err := callgraph.WriteCFGGraphviz(&b, fv); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"digraph \"f\" {",
		`n2 [label="B2\nx = \"a\"\nif x > 0"];`,
		`n2 -> n3 [label="T"];`,
		`n2 -> n4 [label="F"];`,
		"n0 -> n2;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}
