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

package state

import (
	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/internal/funcutil"
)

// Function returns the function table entry for name.
func (s *Snapshot) Function(name string) (*cfg.FunctionInfo, bool) {
	info, ok := s.Functions[name]
	return info, ok
}

// File returns the artifacts of path.
func (s *Snapshot) File(path string) (*FileState, bool) {
	fs, ok := s.Files[path]
	return fs, ok
}

// Resolves reports whether a call edge naming callee would resolve
// against the function table.
func (s *Snapshot) Resolves(callee string) bool {
	_, ok := s.Functions[callee]
	return ok
}

// A CallRef is one call edge seen through the snapshot, with its derived
// resolution.
type CallRef struct {
	Caller   string   `json:"caller"`
	Callee   string   `json:"callee"`
	Site     lang.Pos `json:"site"`
	Resolved bool     `json:"resolved"`
}

// Callees lists the calls made by the named function, in site order.
func (s *Snapshot) Callees(name string) []CallRef {
	info, ok := s.Functions[name]
	if !ok {
		return nil
	}
	refs := make([]CallRef, 0, len(info.Calls))
	for _, e := range info.Calls {
		refs = append(refs, CallRef{Caller: name, Callee: e.Callee, Site: e.Site, Resolved: s.Resolves(e.Callee)})
	}
	return refs
}

// Callers lists the call edges targeting name from anywhere in the
// table, sorted by caller then site.
func (s *Snapshot) Callers(name string) []CallRef {
	var refs []CallRef
	for _, caller := range funcutil.SortedKeys(s.Functions) {
		for _, e := range s.Functions[caller].Calls {
			if e.Callee == name {
				refs = append(refs, CallRef{Caller: caller, Callee: name, Site: e.Site, Resolved: s.Resolves(name)})
			}
		}
	}
	return refs
}

// Unresolved lists every dangling call edge of the snapshot, sorted by
// caller then site.
func (s *Snapshot) Unresolved() []CallRef {
	var refs []CallRef
	for _, caller := range funcutil.SortedKeys(s.Functions) {
		for _, e := range s.Functions[caller].Calls {
			if !s.Resolves(e.Callee) {
				refs = append(refs, CallRef{Caller: caller, Callee: e.Callee, Site: e.Site})
			}
		}
	}
	return refs
}

// Paths returns the tracked file paths in sorted order.
func (s *Snapshot) Paths() []string { return funcutil.SortedKeys(s.Files) }

// StalePaths returns the stale-marked paths in sorted order.
func (s *Snapshot) StalePaths() []string { return funcutil.SortedKeys(s.Stale) }

// FunctionNames returns the function table keys in sorted order.
func (s *Snapshot) FunctionNames() []string { return funcutil.SortedKeys(s.Functions) }

// AllFindings returns every file's findings, ordered by file, then
// source location, then rule. Per-file slices are already in that order,
// so concatenating over sorted paths preserves it.
func (s *Snapshot) AllFindings() []scanner.Finding {
	var all []scanner.Finding
	for _, path := range s.Paths() {
		all = append(all, s.Files[path].Findings...)
	}
	return all
}
