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

package state_test

import (
	"reflect"
	"testing"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/parse"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/analysis/state"
)

// analyzeFile runs the full per-file pipeline the coordinator runs.
func analyzeFile(t *testing.T, path, src string) *state.FileState {
	t.Helper()
	file, err := parse.CLike(path, src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	rules := config.NewDefault().TaintRules()
	solved, err := dataflow.AnalyzeAll(res.Functions, dataflow.Options{Rules: rules})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	findings := scanner.New(rules).Scan(solved)
	return state.NewFileState(path, solved, findings)
}

func TestNewFileStateRendersArtifacts(t *testing.T) {
	fs := analyzeFile(t, "a.c", `
void f() {
    char buf[64];
    gets(buf);
    system(buf);
}
`)
	if fs.Path != "a.c" {
		t.Errorf("path = %s", fs.Path)
	}
	fv := fs.Function("f")
	if fv == nil {
		t.Fatal("function f missing")
	}
	if len(fv.Blocks) != len(fv.Facts) {
		t.Fatalf("blocks and facts out of step: %d vs %d", len(fv.Blocks), len(fv.Facts))
	}

	var body *state.BlockView
	for i := range fv.Blocks {
		if len(fv.Blocks[i].Stmts) > 0 {
			body = &fv.Blocks[i]
		}
	}
	if body == nil {
		t.Fatal("no block with statements")
	}
	texts := make([]string, len(body.Stmts))
	for i, sv := range body.Stmts {
		texts[i] = sv.Text
	}
	want := []string{"var buf", "gets(buf)", "system(buf)"}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("rendered statements = %v, want %v", texts, want)
	}
	for _, sv := range body.Stmts {
		if !sv.Span.Start.IsValid() {
			t.Errorf("statement %q has no position", sv.Text)
		}
	}

	taint := fv.Facts[body.ID].TaintOut
	if !reflect.DeepEqual(taint["buf"], []string{"user-input"}) {
		t.Errorf("taint out of body block = %v", taint)
	}

	if len(fs.Findings) != 1 || fs.Findings[0].Sink != "system" {
		t.Errorf("findings = %v", fs.Findings)
	}
}

func TestNewFileStateSharesFunctionInfo(t *testing.T) {
	fs := analyzeFile(t, "a.c", `
void f() {
    int x = 1;
    return x;
}
`)
	s := state.Empty().WithFileUpdate("a.c", fs)
	info, ok := s.Function("f")
	if !ok {
		t.Fatal("f missing from table")
	}
	if info != fs.Function("f").Info {
		t.Error("table entry and file view should share one record")
	}
	if info.File != "a.c" {
		t.Errorf("info.File = %s", info.File)
	}
}

func TestNewFileStateRecordsDiagnostics(t *testing.T) {
	fs := analyzeFile(t, "a.c", `
void f() {
    int dead = 1;
    return 0;
}
`)
	fv := fs.Function("f")
	if fv == nil {
		t.Fatal("function f missing")
	}
	found := false
	for _, d := range fv.Diags {
		if d.Kind == dataflow.UnusedAssignment && d.Var == "dead" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want unused-assignment for dead", fv.Diags)
	}
}
