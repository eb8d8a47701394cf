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

package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reflowlabs/reflow/analysis/state"
)

// schemaVersion is bumped whenever the wire layout changes shape.
const schemaVersion = 1

// ErrSchema is returned by Load when the durable records carry a
// schema version this build does not speak.
var ErrSchema = errors.New("snapshot schema version mismatch")

// metaWire is the durable header record.
type metaWire struct {
	Version    int                        `json:"version"`
	Generation uint64                     `json:"generation"`
	Stale      map[string]state.StaleInfo `json:"stale,omitempty"`
}

// fileWire wraps one file's artifacts. Each record carries the version
// so a partially rewritten store is detected record by record.
type fileWire struct {
	Version int              `json:"version"`
	File    *state.FileState `json:"file"`
}

func encodeMeta(snap *state.Snapshot) ([]byte, error) {
	return json.Marshal(metaWire{
		Version:    schemaVersion,
		Generation: snap.Generation,
		Stale:      snap.Stale,
	})
}

func decodeMeta(data []byte) (metaWire, error) {
	var m metaWire
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decoding snapshot header: %w", err)
	}
	if m.Version != schemaVersion {
		return m, fmt.Errorf("%w: stored %d, supported %d", ErrSchema, m.Version, schemaVersion)
	}
	return m, nil
}

func encodeFile(fs *state.FileState) ([]byte, error) {
	return json.Marshal(fileWire{Version: schemaVersion, File: fs})
}

func decodeFile(data []byte) (*state.FileState, error) {
	var w fileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding file record: %w", err)
	}
	if w.Version != schemaVersion {
		return nil, fmt.Errorf("%w: stored %d, supported %d", ErrSchema, w.Version, schemaVersion)
	}
	if w.File == nil {
		return nil, fmt.Errorf("decoding file record: empty payload")
	}
	return w.File, nil
}

// assemble rebuilds a snapshot from decoded records. The function table
// derives from the file records rather than being stored, so a loaded
// snapshot cannot disagree with its own files.
func assemble(meta metaWire, files []*state.FileState) *state.Snapshot {
	snap := state.Empty()
	snap.Generation = meta.Generation
	for path, mark := range meta.Stale {
		snap.Stale[path] = mark
	}
	for _, fs := range files {
		snap.Files[fs.Path] = fs
		for _, fv := range fs.Functions {
			snap.Functions[fv.Info.Name] = fv.Info
		}
	}
	return snap
}
