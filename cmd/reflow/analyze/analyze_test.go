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

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/coordinator"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/analysis/store"
)

func testSnapshot(t *testing.T) *state.Snapshot {
	t.Helper()
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	coord := coordinator.New(context.Background(), cfg, state.NewState(nil), store.Nop{})
	defer coord.Close(context.Background())

	vuln := "void f() {\n" +
		"  char buf[64];\n" +
		"  gets(buf);\n" +
		"  system(buf);\n" +
		"}\n"
	if _, err := coord.Request("a.c", vuln).Wait(context.Background()); err != nil {
		t.Fatalf("failed to analyze a.c: %v", err)
	}
	if _, err := coord.Request("broken.c", "void g() {\n").Wait(context.Background()); err == nil {
		t.Fatalf("expected the malformed file to fail")
	}
	return coord.Snapshot()
}

func TestReportCollectsFindingsAndStale(t *testing.T) {
	snap := testSnapshot(t)

	r := newReport(snap)
	if r.Generation != snap.Generation {
		t.Errorf("expected generation %d, got %d", snap.Generation, r.Generation)
	}
	if !reflect.DeepEqual(r.Files, []string{"a.c"}) {
		t.Errorf("expected files [a.c], got %v", r.Files)
	}
	if len(r.Findings) != 1 || r.Findings[0].Sink != "system" {
		t.Errorf("expected one finding on the system call, got %+v", r.Findings)
	}
	if len(r.Stale) != 1 {
		t.Fatalf("expected one stale entry, got %+v", r.Stale)
	}
	if r.Stale[0].Path != "broken.c" || r.Stale[0].Reason == "" {
		t.Errorf("expected broken.c marked stale with a reason, got %+v", r.Stale[0])
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	snap := testSnapshot(t)

	var buf bytes.Buffer
	if err := writeJSON(&buf, snap); err != nil {
		t.Fatalf("failed to write the report: %v", err)
	}
	var decoded report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Generation != snap.Generation || len(decoded.Findings) != 1 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
	if decoded.Findings[0].Fingerprint == "" {
		t.Errorf("expected the finding fingerprint to survive encoding")
	}
}
