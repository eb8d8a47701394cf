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

import "sync/atomic"

// State is the publication point for snapshots. Readers call Current and
// work with an immutable snapshot; the update pipeline installs
// successors with Publish. A read racing a publish sees either the old
// or the new snapshot, never a mix.
type State struct {
	current atomic.Pointer[Snapshot]
}

// NewState returns a State holding snap, or the empty snapshot when snap
// is nil.
func NewState(snap *Snapshot) *State {
	s := &State{}
	if snap == nil {
		snap = Empty()
	}
	s.current.Store(snap)
	return s
}

// Current returns the last published snapshot.
func (s *State) Current() *Snapshot { return s.current.Load() }

// Publish installs snap as the current snapshot.
func (s *State) Publish(snap *Snapshot) { s.current.Store(snap) }
