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
	"fmt"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/parse"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/analysis/state"
)

// worker is the single goroutine allowed to advance the state. It owns
// the serialization slot: exactly one unit is running at any time, in
// submission order across all paths.
func (c *Coordinator) worker() {
	defer close(c.done)
	for {
		c.mu.Lock()
		u := c.q.pop()
		closed := c.closed
		c.mu.Unlock()

		if u == nil {
			if closed {
				return
			}
			<-c.wake
			continue
		}
		u.status.Store(int32(StatusRunning))
		c.run(u)
	}
}

// run executes one unit and resolves its future. A panic anywhere in the
// pipeline fails the unit and releases the slot instead of killing the
// worker.
func (c *Coordinator) run(u *unit) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("update of %s panicked: %v", u.path, r)
			u.fail(&CoordinationError{Path: u.path, Reason: fmt.Sprintf("update panicked: %v", r)})
		}
	}()

	res, err := c.process(u)
	if err != nil {
		u.fail(err)
		return
	}
	u.resolve(res)
}

// process runs the pipeline for one unit: parse, build, solve, scan,
// merge, save, publish. On a parse failure only a stale mark is
// published; on a solver failure nothing is; on a persistence failure
// the merge is published anyway and the error reaches the caller.
// Running units are never cancelled, so stores see a background context.
func (c *Coordinator) process(u *unit) (Result, error) {
	ctx := context.Background()
	cur := c.state.Current()

	if u.remove {
		next := cur.WithFileRemoved(u.path)
		err := c.save(ctx, next)
		c.state.Publish(next)
		if err != nil {
			c.log.Errorf("removal of %s committed but not persisted: %v", u.path, err)
			return Result{}, err
		}
		c.log.Infof("removed %s, generation %d", u.path, next.Generation)
		return Result{Path: u.path, Status: StatusCommitted, Generation: next.Generation}, nil
	}

	build := parse.ForPath(u.path)
	res, err := build(u.path, u.content)
	if err != nil {
		c.log.Warnf("analysis of %s failed: %v", u.path, err)
		c.state.Publish(cur.WithStale(u.path, err))
		return Result{}, err
	}

	rules := c.effectiveRules(res.Directives)
	solved, err := dataflow.AnalyzeAll(res.Functions, dataflow.Options{
		Rules:         rules,
		MaxIterations: c.cfg.MaxIterations,
		Parallelism:   c.cfg.Parallelism,
	})
	if err != nil {
		c.log.Errorf("solver failed on %s: %v", u.path, err)
		return Result{}, err
	}

	findings := scanner.New(rules).Scan(solved)
	fs := state.NewFileState(u.path, solved, findings)
	next := cur.WithFileUpdate(u.path, fs)

	err = c.save(ctx, next)
	c.state.Publish(next)
	if err != nil {
		c.log.Errorf("update of %s committed but not persisted: %v", u.path, err)
		return Result{}, err
	}

	c.log.Infof("committed %s: %d functions, %d findings, generation %d",
		u.path, len(fs.Functions), len(findings), next.Generation)
	return Result{Path: u.path, Status: StatusCommitted, Findings: findings, Generation: next.Generation}, nil
}

// effectiveRules layers the file's annotation directives over the
// configured tables. The shared tables are never mutated; a file with
// directives solves against its own clone.
func (c *Coordinator) effectiveRules(ds []lang.Directive) *config.TaintRules {
	if len(ds) == 0 {
		return c.rules
	}
	r := c.rules.Clone()
	for _, d := range ds {
		switch d.Kind {
		case "source":
			r.AddSource(d.Func, d.Label)
		case "sink":
			r.AddSink(d.Func, d.Label)
		case "sanitizer", "validator":
			r.AddSanitizer(d.Func)
		}
	}
	return r
}

func (c *Coordinator) save(ctx context.Context, snap *state.Snapshot) error {
	if c.cfg.SkipPersistence {
		return nil
	}
	return c.store.Save(ctx, snap)
}
