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

package config

import "regexp"

// A CallIdentifier identifies a called function that is a source, sink,
// sanitizer or validator. Function is matched against the callee name as
// an anchored regex, falling back to exact comparison when the pattern
// does not compile.
type CallIdentifier struct {
	// Function is the callee name pattern
	Function string

	// Label is the taint label attached by a source; ignored for other
	// roles
	Label string

	// Kind is the sink kind (one of the Sink* constants); ignored for
	// other roles
	Kind string

	// Severity is the severity of findings against this sink; ignored
	// for other roles
	Severity string

	// This is not part of the yaml config
	computedRegex *regexp.Regexp
}

// CompileRegexes compiles the identifier's pattern into an anchored
// regex. An identifier whose pattern does not compile keeps exact-match
// semantics.
func CompileRegexes(cid CallIdentifier) CallIdentifier {
	if cid.Function == "" {
		return cid
	}
	r, err := regexp.Compile("^(?:" + cid.Function + ")$")
	if err != nil {
		return cid
	}
	cid.computedRegex = r
	return cid
}

// MatchesName reports whether the identifier matches the callee name.
func (cid *CallIdentifier) MatchesName(name string) bool {
	if cid.computedRegex != nil {
		return cid.computedRegex.MatchString(name)
	}
	return cid.Function != "" && cid.Function == name
}

// TaintRules is the compiled form of the taint specs, merged across all
// problems, that the solver and scanner consume. Entries added after
// compilation (per-file source directives) use exact-name matching.
type TaintRules struct {
	sources    []CallIdentifier
	sinks      []CallIdentifier
	sanitizers []CallIdentifier
}

// TaintRules merges every taint tracking problem of the config into one
// compiled rule table. Validators are folded into the sanitizers.
func (c *Config) TaintRules() *TaintRules {
	t := &TaintRules{}
	for _, spec := range c.TaintTrackingProblems {
		t.sources = append(t.sources, spec.Sources...)
		t.sinks = append(t.sinks, spec.Sinks...)
		t.sanitizers = append(t.sanitizers, spec.Sanitizers...)
		t.sanitizers = append(t.sanitizers, spec.Validators...)
	}
	return t
}

// Clone returns a copy that can be extended without affecting the
// receiver.
func (t *TaintRules) Clone() *TaintRules {
	c := &TaintRules{
		sources:    make([]CallIdentifier, len(t.sources)),
		sinks:      make([]CallIdentifier, len(t.sinks)),
		sanitizers: make([]CallIdentifier, len(t.sanitizers)),
	}
	copy(c.sources, t.sources)
	copy(c.sinks, t.sinks)
	copy(c.sanitizers, t.sanitizers)
	return c
}

// AddSource registers an exact-name source with the given label.
func (t *TaintRules) AddSource(fn, label string) {
	t.sources = append(t.sources, CompileRegexes(CallIdentifier{Function: regexp.QuoteMeta(fn), Label: label}))
}

// AddSink registers an exact-name sink of the given kind.
func (t *TaintRules) AddSink(fn, kind string) {
	t.sinks = append(t.sinks, CompileRegexes(CallIdentifier{Function: regexp.QuoteMeta(fn), Kind: kind}))
}

// AddSanitizer registers an exact-name sanitizer.
func (t *TaintRules) AddSanitizer(fn string) {
	t.sanitizers = append(t.sanitizers, CompileRegexes(CallIdentifier{Function: regexp.QuoteMeta(fn)}))
}

// SourceLabel returns the label attached to calls of fn when fn is a
// source. An empty configured label defaults to the function name.
func (t *TaintRules) SourceLabel(fn string) (string, bool) {
	for i := range t.sources {
		if t.sources[i].MatchesName(fn) {
			if t.sources[i].Label != "" {
				return t.sources[i].Label, true
			}
			return fn, true
		}
	}
	return "", false
}

// Sink returns the sink identifier matching fn.
func (t *TaintRules) Sink(fn string) (CallIdentifier, bool) {
	for i := range t.sinks {
		if t.sinks[i].MatchesName(fn) {
			return t.sinks[i], true
		}
	}
	return CallIdentifier{}, false
}

// IsSanitizer reports whether calls of fn strip taint.
func (t *TaintRules) IsSanitizer(fn string) bool {
	for i := range t.sanitizers {
		if t.sanitizers[i].MatchesName(fn) {
			return true
		}
	}
	return false
}

// NumSources returns the number of source identifiers.
func (t *TaintRules) NumSources() int { return len(t.sources) }
