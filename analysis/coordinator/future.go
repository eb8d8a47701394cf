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

package coordinator

import (
	"context"
	"sync/atomic"

	"github.com/reflowlabs/reflow/analysis/scanner"
)

// Status is the lifecycle stage of one update.
type Status int32

const (
	StatusQueued Status = iota
	StatusRunning
	StatusCommitted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusCommitted:
		return "committed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is what a committed update produced.
type Result struct {
	Path       string
	Status     Status
	Findings   []scanner.Finding
	Generation uint64
}

// unit is one queued update. Its identity is stable across coalescing:
// a newer request for the same still-queued path replaces content on the
// existing unit, so every future handed out for that path shares the
// outcome of the content that eventually runs. path, content and remove
// are guarded by the coordinator's mutex until the unit leaves the
// queue; after that only the worker touches them.
type unit struct {
	path    string
	content string
	remove  bool

	status atomic.Int32
	result Result
	err    error
	done   chan struct{}
}

func newUnit(path, content string, remove bool) *unit {
	return &unit{path: path, content: content, remove: remove, done: make(chan struct{})}
}

// resolve commits the unit. result and err are published to waiters by
// the channel close.
func (u *unit) resolve(r Result) {
	u.result = r
	u.status.Store(int32(StatusCommitted))
	close(u.done)
}

func (u *unit) fail(err error) {
	u.err = err
	u.status.Store(int32(StatusFailed))
	close(u.done)
}

// Future is the handle on a requested update. All futures for updates
// coalesced into one unit observe the same outcome.
type Future struct {
	u *unit
}

// Path returns the file the update targets.
func (f *Future) Path() string { return f.u.path }

// Status reports the update's current lifecycle stage without blocking.
func (f *Future) Status() Status { return Status(f.u.status.Load()) }

// Wait blocks until the update commits or fails, or until the context
// expires. An expired context abandons the wait only; the update itself
// keeps running and other waiters are unaffected.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-f.u.done:
		if f.u.err != nil {
			return Result{}, f.u.err
		}
		return f.u.result, nil
	}
}
