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

// Package state holds the shared analysis state. A Snapshot is one
// immutable version of everything the analyses produced across all
// files; updates derive successor snapshots by copy-on-write and publish
// them through State with a single pointer swap, so readers always see a
// complete, internally consistent version.
package state

import (
	"errors"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/lang"
)

// StaleInfo records why a file's artifacts are out of date with respect
// to its latest known content.
type StaleInfo struct {
	Reason string   `json:"reason"`
	Pos    lang.Pos `json:"pos,omitempty"`
}

// Snapshot is one version of the analysis state.
type Snapshot struct {
	// Generation counts derivations since the empty snapshot. Strictly
	// increasing along the chain of published snapshots.
	Generation uint64

	// Functions is the cross-file function table, keyed by function
	// name. Every function of every entry in Files appears here, and
	// nothing else does. The FunctionInfo values are immutable and
	// shared with older and newer snapshots.
	Functions map[string]*cfg.FunctionInfo

	// Files holds the per-file artifacts, keyed by path.
	Files map[string]*FileState

	// Stale marks files whose most recent update failed before
	// producing artifacts. The file's last good entry in Files, if any,
	// stays visible while the mark is set.
	Stale map[string]StaleInfo
}

// Empty returns the generation-zero snapshot.
func Empty() *Snapshot {
	return &Snapshot{
		Functions: map[string]*cfg.FunctionInfo{},
		Files:     map[string]*FileState{},
		Stale:     map[string]StaleInfo{},
	}
}

// clone returns a shallow copy with the generation bumped: fresh maps,
// shared values.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Generation: s.Generation + 1,
		Functions:  make(map[string]*cfg.FunctionInfo, len(s.Functions)),
		Files:      make(map[string]*FileState, len(s.Files)),
		Stale:      make(map[string]StaleInfo, len(s.Stale)),
	}
	for k, v := range s.Functions {
		c.Functions[k] = v
	}
	for k, v := range s.Files {
		c.Files[k] = v
	}
	for k, v := range s.Stale {
		c.Stale[k] = v
	}
	return c
}

// dropFunctionsOf removes every function table entry defined in path.
func (s *Snapshot) dropFunctionsOf(path string) {
	for name, info := range s.Functions {
		if info.File == path {
			delete(s.Functions, name)
		}
	}
}

// WithFileUpdate derives the snapshot that results from replacing path's
// artifacts with fs. The functions previously defined in the file leave
// the table and the file's new functions enter it. Call edges in other
// files that name a removed function are not touched: resolution is
// derived against the table, so such edges dangle now and re-link if a
// later update brings the name back.
func (s *Snapshot) WithFileUpdate(path string, fs *FileState) *Snapshot {
	c := s.clone()
	c.dropFunctionsOf(path)
	for _, fv := range fs.Functions {
		c.Functions[fv.Info.Name] = fv.Info
	}
	c.Files[path] = fs
	delete(c.Stale, path)
	return c
}

/// WithFileRemoved derives the snapshot without path: its artifacts, its
// functions and any stale mark are gone. Inbound call edges dangle as in
// WithFileUpdate.
func (s *Snapshot) WithFileRemoved(path string) *Snapshot {
	c := s.clone()
	c.dropFunctionsOf(path)
	delete(c.Files, path)
	delete(c.Stale, path)
	return c
}

// WithStale derives the snapshot that records a failed update of path.
// Functions and Files carry over unchanged; only the stale table and the
// generation move.
func (s *Snapshot) WithStale(path string, err error) *Snapshot {
	c := s.clone()
	info := StaleInfo{Reason: err.Error()}
	var pe *lang.ParseError
	if errors.As(err, &pe) {
		info.Pos = pe.Pos
	}
	c.Stale[path] = info
	return c
}
