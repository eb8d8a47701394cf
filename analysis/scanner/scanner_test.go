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

package scanner_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/parse"
	"github.com/reflowlabs/reflow/analysis/scanner"
)

func solveFile(t *testing.T, src string, rules *config.TaintRules) []*dataflow.FuncResult {
	t.Helper()
	file, err := parse.CLike("test.c", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	solved, err := dataflow.AnalyzeAll(res.Functions, dataflow.Options{Rules: rules})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	return solved
}

func scanFile(t *testing.T, src string) []scanner.Finding {
	t.Helper()
	rules := config.NewDefault().TaintRules()
	return scanner.New(rules).Scan(solveFile(t, src, rules))
}

func TestScanTaintedSink(t *testing.T) {
	findings := scanFile(t, `
void f() {
    char buf[64];
    gets(buf);
    system(buf);
}
`)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d: %v", len(findings), findings)
	}
	f := findings[0]
	if f.RuleID != "TAINT-EXEC" {
		t.Errorf("rule id = %s, want TAINT-EXEC", f.RuleID)
	}
	if f.Severity != scanner.SeverityCritical {
		t.Errorf("severity = %s, want critical", f.Severity)
	}
	if f.File != "test.c" || f.Function != "f" || f.Sink != "system" {
		t.Errorf("finding location = %s/%s sink %s", f.File, f.Function, f.Sink)
	}
	if f.Span.Start.Line != 5 {
		t.Errorf("finding at line %d, want 5", f.Span.Start.Line)
	}
	if !reflect.DeepEqual(f.Labels, []string{"user-input"}) {
		t.Errorf("labels = %v, want [user-input]", f.Labels)
	}
	if !strings.Contains(f.Message, "system") {
		t.Errorf("message %q does not name the sink", f.Message)
	}
	if f.Fingerprint == "" {
		t.Error("empty fingerprint")
	}
}

func TestScanFixedInputHasNoFinding(t *testing.T) {
	findings := scanFile(t, `
void f() {
    char buf[64];
    buf = "ls -l";
    system(buf);
}
`)
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %v", findings)
	}
}

func TestScanSanitizerRemovesFinding(t *testing.T) {
	findings := scanFile(t, `
void f() {
    char buf[64];
    gets(buf);
    sanitize_buffer(buf);
    system(buf);
}
`)
	if len(findings) != 0 {
		t.Fatalf("expected no findings after sanitizer, got %v", findings)
	}
}

func TestScanOrderIsDeterministic(t *testing.T) {
	src := `
void a() {
    char s[8];
    gets(s);
    query(s);
    system(s);
}
void b() {
    int n;
    scanf("%d", &n);
    printf("%d", n);
}
`
	rules := config.NewDefault().TaintRules()
	solved := solveFile(t, src, rules)
	sc := scanner.New(rules)
	forward := sc.Scan(solved)

	reversed := []*dataflow.FuncResult{solved[1], solved[0]}
	backward := sc.Scan(reversed)
	if !reflect.DeepEqual(forward, backward) {
		t.Fatalf("scan order depends on input order:\n%v\n%v", forward, backward)
	}

	want := []string{"TAINT-QUERY", "TAINT-EXEC", "TAINT-FORMAT"}
	var got []string
	for _, f := range forward {
		got = append(got, f.RuleID)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rule order = %v, want %v", got, want)
	}
	for i := 1; i < len(forward); i++ {
		if forward[i].Span.Start.Before(forward[i-1].Span.Start) {
			t.Errorf("finding %d out of source order", i)
		}
	}
}

func TestScanSeverityFallsBackToRule(t *testing.T) {
	rules := config.NewDefault().TaintRules()
	rules.AddSink("emit_log", config.SinkFormat)
	rules.AddSink("post_data", "net")
	findings := scanner.New(rules).Scan(solveFile(t, `
void f() {
    char s[8];
    gets(s);
    emit_log(s);
    post_data(s);
}
`, rules))
	if len(findings) != 2 {
		t.Fatalf("expected two findings, got %v", findings)
	}
	if findings[0].RuleID != "TAINT-FORMAT" || findings[0].Severity != scanner.SeverityMedium {
		t.Errorf("emit_log finding = %s/%s", findings[0].RuleID, findings[0].Severity)
	}
	if findings[1].RuleID != "TAINT-SINK" || findings[1].Severity != scanner.SeverityMedium {
		t.Errorf("post_data finding = %s/%s", findings[1].RuleID, findings[1].Severity)
	}
}

func TestScanUntrustedLabelFilter(t *testing.T) {
	rules := config.NewDefault().TaintRules()
	solved := solveFile(t, `
void f() {
    char a[8];
    char b[8];
    gets(a);
    recv(0, b, 8);
    query(a);
    query(b);
}
`, rules)
	sc := scanner.New(rules)
	sc.Registry().Register(scanner.Rule{
		ID:        "TAINT-QUERY-NET",
		Kind:      config.SinkQuery,
		Severity:  scanner.SeverityHigh,
		Untrusted: []string{"network"},
		Message:   "network data reaches query sink %s (labels: %s)",
	})
	findings := sc.Scan(solved)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %v", findings)
	}
	f := findings[0]
	if f.RuleID != "TAINT-QUERY-NET" || !reflect.DeepEqual(f.Labels, []string{"network"}) {
		t.Errorf("finding = %s labels %v", f.RuleID, f.Labels)
	}
}

func TestAddingSourceOnlyAddsFindings(t *testing.T) {
	src := `
void f() {
    char buf[64];
    gets(buf);
    system(buf);
    char opt[64];
    opt = load_setting("app.cfg");
    system(opt);
}
`
	base := config.NewDefault().TaintRules()
	before := scanner.New(base).Scan(solveFile(t, src, base))

	wider := config.NewDefault().TaintRules()
	wider.AddSource("load_setting", "config")
	after := scanner.New(wider).Scan(solveFile(t, src, wider))

	if len(before) != 1 || len(after) != 2 {
		t.Fatalf("findings: %d before, %d after", len(before), len(after))
	}
	kept := map[string]bool{}
	for _, f := range after {
		kept[f.Fingerprint] = true
	}
	for _, f := range before {
		if !kept[f.Fingerprint] {
			t.Errorf("finding %s at %v disappeared after adding a source", f.RuleID, f.Span.Start)
		}
	}
}

func TestFingerprintStability(t *testing.T) {
	src := `
void f() {
    char s[8];
    gets(s);
    system(s);
    system(s);
}
`
	first := scanFile(t, src)
	second := scanFile(t, src)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected two findings per scan, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Fingerprint != second[i].Fingerprint {
			t.Errorf("fingerprint %d not stable across scans", i)
		}
	}
	if first[0].Fingerprint == first[1].Fingerprint {
		t.Error("distinct call sites share a fingerprint")
	}
}

func TestSeverityOrdering(t *testing.T) {
	if !scanner.SeverityGTE(scanner.SeverityCritical, scanner.SeverityLow) {
		t.Error("critical should grade above low")
	}
	if scanner.SeverityGTE(scanner.SeverityMedium, scanner.SeverityHigh) {
		t.Error("medium should grade below high")
	}
	if !scanner.SeverityGTE(scanner.SeverityHigh, scanner.SeverityHigh) {
		t.Error("a grade should satisfy itself")
	}
	if got := scanner.ParseSeverity("bogus"); got != scanner.SeverityLow {
		t.Errorf("ParseSeverity(bogus) = %s, want low", got)
	}
}

func TestMaxSeverity(t *testing.T) {
	fs := []scanner.Finding{
		{Severity: scanner.SeverityMedium},
		{Severity: scanner.SeverityCritical},
		{Severity: scanner.SeverityLow},
	}
	if got := scanner.MaxSeverity(fs); got != scanner.SeverityCritical {
		t.Errorf("MaxSeverity = %s, want critical", got)
	}
	if got := scanner.MaxSeverity(nil); got != "" {
		t.Errorf("MaxSeverity(nil) = %s, want empty", got)
	}
}
