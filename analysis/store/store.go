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

// Package store persists analysis snapshots between runs. The durable
// copy is advisory: a failed save never invalidates the in-memory
// snapshot it was taken from.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/reflowlabs/reflow/analysis/state"
)

// ErrNoSnapshot is returned by Load when the store holds nothing.
var ErrNoSnapshot = errors.New("no snapshot in store")

// A SaveError reports a failed durable save. The snapshot the save was
// taken from stays valid in memory.
type SaveError struct {
	Generation uint64
	Err        error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving snapshot generation %d: %v", e.Generation, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Store is the persistence collaborator of the update pipeline.
type Store interface {
	// Save makes snap the durable snapshot, replacing any previous one.
	Save(ctx context.Context, snap *state.Snapshot) error

	// Load reassembles the last saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*state.Snapshot, error)

	// Clear removes the durable snapshot.
	Clear(ctx context.Context) error

	// Close releases the store's resources. Only Close may be called
	// afterwards.
	Close() error
}

// Nop is the store used when persistence is configured off. Saves and
// clears succeed without doing anything; loads find nothing.
type Nop struct{}

// Save implements Store.
func (Nop) Save(context.Context, *state.Snapshot) error { return nil }

// Load implements Store.
func (Nop) Load(context.Context) (*state.Snapshot, error) { return nil, ErrNoSnapshot }

// Clear implements Store.
func (Nop) Clear(context.Context) error { return nil }

// Close implements Store.
func (Nop) Close() error { return nil }
