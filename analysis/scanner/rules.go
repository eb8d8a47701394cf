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

package scanner

import "github.com/reflowlabs/reflow/analysis/config"

// A Rule turns a tainted sink call of its kind into a finding. Severity
// is the default grade, used when the sink identifier carries none.
// Untrusted restricts which taint labels trigger the rule; nil means
// every label does.
type Rule struct {
	ID        string
	Kind      string
	Severity  Severity
	Untrusted []string
	Message   string
}

// Registry holds the rule for each sink kind plus a fallback for kinds
// no rule claims.
type Registry struct {
	byKind   map[string]Rule
	fallback Rule
}

// NewRegistry returns an empty registry with the generic fallback rule.
func NewRegistry() *Registry {
	return &Registry{
		byKind: map[string]Rule{},
		fallback: Rule{
			ID:       "TAINT-SINK",
			Severity: SeverityMedium,
			Message:  "tainted data reaches sink %s (labels: %s)",
		},
	}
}

// Register installs the rule for its kind, replacing any previous one. A
// rule with an empty kind replaces the fallback.
func (r *Registry) Register(rule Rule) {
	if rule.Kind == "" {
		r.fallback = rule
		return
	}
	r.byKind[rule.Kind] = rule
}

// RegisterBuiltin installs the rules for the sink kinds the default
// config knows about.
func (r *Registry) RegisterBuiltin() {
	r.Register(Rule{
		ID:       "TAINT-EXEC",
		Kind:     config.SinkExec,
		Severity: SeverityCritical,
		Message:  "tainted data reaches command execution sink %s (labels: %s)",
	})
	r.Register(Rule{
		ID:       "TAINT-QUERY",
		Kind:     config.SinkQuery,
		Severity: SeverityHigh,
		Message:  "tainted data reaches query sink %s (labels: %s)",
	})
	r.Register(Rule{
		ID:       "TAINT-BUFFER",
		Kind:     config.SinkBuffer,
		Severity: SeverityHigh,
		Message:  "tainted data reaches unbounded buffer write %s (labels: %s)",
	})
	r.Register(Rule{
		ID:       "TAINT-FORMAT",
		Kind:     config.SinkFormat,
		Severity: SeverityMedium,
		Message:  "tainted data reaches format string sink %s (labels: %s)",
	})
}

// ForKind returns the rule claiming the sink kind, or the fallback.
func (r *Registry) ForKind(kind string) Rule {
	if rule, ok := r.byKind[kind]; ok {
		return rule
	}
	return r.fallback
}

// triggers returns the labels that trigger the rule, in sorted order, or
// nil when none do. Labels must be sorted.
func (rule Rule) triggers(labels []string) []string {
	if rule.Untrusted == nil {
		return labels
	}
	var out []string
	for _, l := range labels {
		for _, u := range rule.Untrusted {
			if l == u {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
