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

// Package coordinator serializes file updates against the shared
// analysis state. One worker goroutine drains a FIFO of update units:
// each unit parses its file, solves the dataflow problems, scans for
// findings, merges the result into a successor snapshot and publishes
// it with a single pointer swap. Requests return futures; requests for
// a path that is still queued coalesce onto the queued unit so only the
// latest content runs. Readers are never blocked, they see the last
// published snapshot.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/analysis/store"
)

// CoordinationError reports a fault of the scheduling itself, a closed
// coordinator or a panicking update, as opposed to a failure inside the
// analysis pipeline.
type CoordinationError struct {
	Path   string
	Reason string
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("coordination failure for %s: %s", e.Path, e.Reason)
}

// Coordinator owns the write side of an analysis session. All mutation
// of the shared state funnels through its queue; the state itself is
// only ever advanced by the worker goroutine.
type Coordinator struct {
	cfg   *config.Config
	log   *config.LogGroup
	rules *config.TaintRules
	state *state.State
	store store.Store

	mu     sync.Mutex
	q      *queue
	closed bool

	wake chan struct{}
	done chan struct{}
}

// New starts a coordinator over the given state aggregate and store.
// When the store holds a snapshot it is published as the initial state;
// an absent or unreadable snapshot falls back to whatever the state
// already holds. The context bounds hydration only. A nil store
// disables persistence.
func New(ctx context.Context, cfg *config.Config, st *state.State, db store.Store) *Coordinator {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if st == nil {
		st = state.NewState(nil)
	}
	if db == nil {
		db = store.Nop{}
	}
	c := &Coordinator{
		cfg:   cfg,
		log:   config.NewLogGroup(cfg),
		rules: cfg.TaintRules(),
		state: st,
		store: db,
		q:     newQueue(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	c.hydrate(ctx)
	go c.worker()
	return c
}

func (c *Coordinator) hydrate(ctx context.Context) {
	if c.cfg.SkipPersistence {
		return
	}
	snap, err := c.store.Load(ctx)
	switch {
	case err == nil:
		c.state.Publish(snap)
		c.log.Infof("restored snapshot generation %d (%d files, %d functions)",
			snap.Generation, len(snap.Files), len(snap.Functions))
	case errors.Is(err, store.ErrNoSnapshot):
		c.log.Debugf("no stored snapshot, starting empty")
	default:
		c.log.Warnf("ignoring stored snapshot: %v", err)
	}
}

// Request queues an update of path to content and returns its future.
// A request for a path whose update is still queued replaces that
// update's content; both futures then observe the outcome of the newer
// content.
func (c *Coordinator) Request(path, content string) *Future {
	return c.submit(path, content, false)
}

// Remove queues the removal of path's analysis results. Removal goes
// through the same queue as updates and coalesces the same way.
func (c *Coordinator) Remove(path string) *Future {
	return c.submit(path, "", true)
}

func (c *Coordinator) submit(path, content string, remove bool) *Future {
	path = filepath.Clean(path)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		u := newUnit(path, content, remove)
		u.fail(&CoordinationError{Path: path, Reason: "coordinator is closed"})
		return &Future{u: u}
	}
	if u := c.q.pending(path); u != nil {
		u.content, u.remove = content, remove
		c.mu.Unlock()
		c.log.Debugf("superseded queued update of %s", path)
		return &Future{u: u}
	}
	u := newUnit(path, content, remove)
	c.q.push(u)
	c.mu.Unlock()

	c.signal()
	return &Future{u: u}
}

// Snapshot returns the last committed snapshot. Never blocks.
func (c *Coordinator) Snapshot() *state.Snapshot {
	return c.state.Current()
}

// Logger exposes the coordinator's log group so callers can redirect its
// output, for example into an interactive terminal.
func (c *Coordinator) Logger() *config.LogGroup {
	return c.log
}

// Pending reports how many updates are queued behind the running one.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.q.size()
}

// Close stops intake, fails every still-queued unit and waits for the
// worker to finish. The context bounds the wait only; a running update
// is never cancelled mid-flight.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		for _, u := range c.q.drain() {
			u.fail(&CoordinationError{Path: u.path, Reason: "coordinator closed before the update ran"})
		}
	}
	c.mu.Unlock()
	c.signal()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// signal wakes the worker if it is parked. The buffer of one makes the
// send never block; the worker re-checks the queue after each unit, so
// a dropped signal cannot strand a queued update.
func (c *Coordinator) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
