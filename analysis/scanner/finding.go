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

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/reflowlabs/reflow/analysis/lang"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps a config string to a Severity, defaulting to low.
func ParseSeverity(s string) Severity {
	switch s {
	case string(SeverityCritical):
		return SeverityCritical
	case string(SeverityHigh):
		return SeverityHigh
	case string(SeverityMedium):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityGTE reports whether a grades at least as severe as b. The zero
// Severity grades below low.
func SeverityGTE(a, b Severity) bool {
	order := map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4}
	return order[a] >= order[b]
}

// A Finding reports tainted data reaching a sink call. Two scans of the
// same solved functions with the same rules produce the same findings in
// the same order, and the fingerprint identifies a finding across scans.
type Finding struct {
	RuleID      string     `json:"ruleId"`
	Severity    Severity   `json:"severity"`
	File        string     `json:"file"`
	Function    string     `json:"function"`
	Span        lang.Range `json:"span"`
	Sink        string     `json:"sink"`
	Labels      []string   `json:"labels"`
	Message     string     `json:"message"`
	Fingerprint string     `json:"fingerprint"`
}

// Fingerprint computes the stable hash identifying a finding across
// scans. It covers the rule, the file, the call site range and the sink,
// not the message text.
func Fingerprint(ruleID, file string, span lang.Range, sink string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d:%d|%d:%d|%s",
		ruleID, file, span.Start.Line, span.Start.Col, span.End.Line, span.End.Col, sink)
	return hex.EncodeToString(h.Sum(nil))
}

// MaxSeverity returns the most severe grade among the findings, or the
// empty Severity when there are none.
func MaxSeverity(fs []Finding) Severity {
	var max Severity
	for _, f := range fs {
		if max == "" || SeverityGTE(f.Severity, max) {
			max = f.Severity
		}
	}
	return max
}
