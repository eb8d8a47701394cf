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

// Package scanner turns converged taint solutions into vulnerability
// findings. A finding is emitted for every sink call that consumes at
// least one argument carrying a taint label the sink's rule treats as
// untrusted.
package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/internal/funcutil"
)

// Scanner applies per-sink-kind rules to solved functions.
type Scanner struct {
	rules *config.TaintRules
	reg   *Registry
}

// New returns a scanner over the given taint rules, with the builtin
// sink rules installed.
func New(rules *config.TaintRules) *Scanner {
	reg := NewRegistry()
	reg.RegisterBuiltin()
	return &Scanner{rules: rules, reg: reg}
}

// Registry exposes the rule registry so callers can install custom rules
// before scanning.
func (s *Scanner) Registry() *Registry { return s.reg }

// Scan emits the findings of the solved functions. The output order is
// deterministic regardless of input order: file, then source location,
// then rule id.
func (s *Scanner) Scan(results []*dataflow.FuncResult) []Finding {
	var findings []Finding
	for _, res := range results {
		res.EachCall(func(cs dataflow.CallSite) {
			sink, ok := s.rules.Sink(cs.Call.Fun)
			if !ok {
				return
			}
			set := map[string]bool{}
			for _, ls := range cs.ArgLabels {
				for _, l := range ls {
					set[l] = true
				}
			}
			rule := s.reg.ForKind(sink.Kind)
			labels := rule.triggers(funcutil.SetToOrderedSlice(set))
			if len(labels) == 0 {
				return
			}
			sev := rule.Severity
			if sink.Severity != "" {
				sev = ParseSeverity(sink.Severity)
			}
			f := Finding{
				RuleID:   rule.ID,
				Severity: sev,
				File:     res.Fn.Info.File,
				Function: res.Fn.Info.Name,
				Span:     cs.Call.Span,
				Sink:     cs.Call.Fun,
				Labels:   labels,
				Message:  fmt.Sprintf(rule.Message, cs.Call.Fun, strings.Join(labels, ", ")),
			}
			f.Fingerprint = Fingerprint(f.RuleID, f.File, f.Span, f.Sink)
			findings = append(findings, f)
		})
	}
	sort.Slice(findings, func(i, j int) bool {
		a, b := &findings[i], &findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start.Before(b.Span.Start)
		}
		return a.RuleID < b.RuleID
	})
	return findings
}
