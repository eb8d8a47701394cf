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

package watch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/coordinator"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/cmd/reflow/tools"
)

const usage = ` Read file update events from standard input and stream analysis results.
Usage:
  reflow watch [options]
Protocol:
  One JSON event per input line:
    {"path": "a.c", "content": "..."}   analyze new content for a.c
    {"path": "a.c", "remove": true}     remove a.c from the analysis
  One JSON result per event on standard output, in submission order. Logs
  go to standard error.
`

// An event is one file change reported by the external watcher.
type event struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Remove  bool   `json:"remove,omitempty"`
}

// A result is the outcome of one event.
type result struct {
	Path       string            `json:"path,omitempty"`
	Status     string            `json:"status"`
	Generation uint64            `json:"generation,omitempty"`
	Findings   []scanner.Finding `json:"findings,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Input lines carry whole file contents, so they outgrow the default
// scanner buffer.
const maxEventBytes = 16 * 1024 * 1024

// Flags represents the parsed flags for the watch command.
type Flags struct {
	tools.CommonFlags
}

// NewFlags returns the parsed flags for the watch command with args.
func NewFlags(args []string) (Flags, error) {
	flags, err := tools.NewCommonFlags("watch", args, usage)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: flags}, nil
}

// Run runs the watch loop with flags until standard input closes.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}

	lg := config.NewLogGroup(cfg)
	// The result stream owns stdout.
	lg.SetAllOutput(os.Stderr)

	db, err := tools.OpenStore(cfg, lg)
	if err != nil {
		return fmt.Errorf("could not open snapshot store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	coord := coordinator.New(ctx, cfg, state.NewState(nil), db)
	return watch(ctx, coord, lg, os.Stdin, os.Stdout)
}

// An item pairs one input line with its pending outcome. Lines that never
// reached the coordinator carry only an error.
type item struct {
	fut *coordinator.Future
	err error
}

// watch pumps events from r into coord and streams one result line per
// event to w. The writer goroutine serializes access to w; results come
// out in submission order, which the coordinator's FIFO grant makes the
// completion order as well.
func watch(ctx context.Context, coord *coordinator.Coordinator, lg *config.LogGroup, r io.Reader, w io.Writer) error {
	items := make(chan item, 128)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeResults(ctx, w, lg, items)
	}()

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 1024*1024), maxEventBytes)
	for scan.Scan() {
		line := bytes.TrimSpace(scan.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			items <- item{err: fmt.Errorf("malformed event: %v", err)}
			continue
		}
		if ev.Path == "" {
			items <- item{err: fmt.Errorf("malformed event: missing path")}
			continue
		}
		if ev.Remove {
			items <- item{fut: coord.Remove(ev.Path)}
		} else {
			items <- item{fut: coord.Request(ev.Path, ev.Content)}
		}
	}
	close(items)
	wg.Wait()

	if err := coord.Close(ctx); err != nil {
		return fmt.Errorf("could not close coordinator: %v", err)
	}
	return scan.Err()
}

func writeResults(ctx context.Context, w io.Writer, lg *config.LogGroup, items <-chan item) {
	enc := json.NewEncoder(w)
	for it := range items {
		var out result
		switch {
		case it.err != nil:
			out = result{Status: "rejected", Error: it.err.Error()}
		default:
			res, err := it.fut.Wait(ctx)
			if err != nil {
				out = result{
					Path:   it.fut.Path(),
					Status: coordinator.StatusFailed.String(),
					Error:  err.Error(),
				}
			} else {
				out = result{
					Path:       res.Path,
					Status:     res.Status.String(),
					Generation: res.Generation,
					Findings:   res.Findings,
				}
			}
		}
		if err := enc.Encode(out); err != nil {
			lg.Errorf("could not write result: %v", err)
			// Keep draining so the event loop can finish and close the channel.
			for range items {
			}
			return
		}
	}
}
