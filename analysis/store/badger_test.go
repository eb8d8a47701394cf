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

package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/reflowlabs/reflow/analysis/cfg"
	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/dataflow"
	"github.com/reflowlabs/reflow/analysis/lang"
	"github.com/reflowlabs/reflow/analysis/parse"
	"github.com/reflowlabs/reflow/analysis/scanner"
	"github.com/reflowlabs/reflow/analysis/state"
	"github.com/reflowlabs/reflow/analysis/store"
)

func openStore(t *testing.T) (*store.Badger, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.OpenBadger(dir, config.NewLogGroup(config.NewDefault()))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

// analyzeFile runs the per-file pipeline so round trips cover realistic
// artifacts, findings included.
func analyzeFile(t *testing.T, path, src string) *state.FileState {
	t.Helper()
	file, err := parse.CLike(path, src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := cfg.Build(file)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	rules := config.NewDefault().TaintRules()
	solved, err := dataflow.AnalyzeAll(res.Functions, dataflow.Options{Rules: rules})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	return state.NewFileState(path, solved, scanner.New(rules).Scan(solved))
}

func sampleSnapshot(t *testing.T) *state.Snapshot {
	t.Helper()
	snap := state.Empty()
	snap = snap.WithFileUpdate("a.c", analyzeFile(t, "a.c", `
void f() {
    char buf[64];
    gets(buf);
    system(buf);
    helper(buf);
}
`))
	snap = snap.WithFileUpdate("b.c", analyzeFile(t, "b.c", `
void helper(int x) {
    return x;
}
`))
	return snap
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	snap := sampleSnapshot(t)

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Generation != snap.Generation {
		t.Errorf("generation = %d, want %d", loaded.Generation, snap.Generation)
	}
	if !reflect.DeepEqual(loaded.Paths(), snap.Paths()) {
		t.Errorf("paths = %v, want %v", loaded.Paths(), snap.Paths())
	}
	if !reflect.DeepEqual(loaded.FunctionNames(), snap.FunctionNames()) {
		t.Errorf("functions = %v, want %v", loaded.FunctionNames(), snap.FunctionNames())
	}

	fs, ok := loaded.File("a.c")
	if !ok {
		t.Fatal("a.c missing after load")
	}
	if len(fs.Findings) != 1 || fs.Findings[0].Sink != "system" {
		t.Fatalf("findings after load = %v", fs.Findings)
	}
	want, _ := snap.File("a.c")
	if fs.Findings[0].Fingerprint != want.Findings[0].Fingerprint {
		t.Error("fingerprint changed across the store")
	}

	fv := fs.Function("f")
	if fv == nil {
		t.Fatal("function f missing after load")
	}
	var body *state.BlockView
	for i := range fv.Blocks {
		if len(fv.Blocks[i].Stmts) > 0 {
			body = &fv.Blocks[i]
		}
	}
	if body == nil {
		t.Fatal("no body block after load")
	}
	taint := fv.Facts[body.ID].TaintOut
	if !reflect.DeepEqual(taint["buf"], []string{"user-input"}) {
		t.Errorf("taint facts after load = %v", taint)
	}
}

func TestLoadRebuildsFunctionTable(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	info, ok := loaded.Function("helper")
	if !ok {
		t.Fatal("helper missing from rebuilt table")
	}
	fs, _ := loaded.File("b.c")
	if info != fs.Function("helper").Info {
		t.Error("rebuilt table should point into the loaded file records")
	}
	// a.c's call into b.c resolves against the rebuilt table.
	if !loaded.Resolves("helper") {
		t.Error("cross-file edge should resolve after hydration")
	}
}

func TestLoadEmpty(t *testing.T) {
	s, _ := openStore(t)
	if _, err := s.Load(context.Background()); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveDeletesRemovedFiles(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	snap := sampleSnapshot(t)
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Save(ctx, snap.WithFileRemoved("b.c")); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Paths(), []string{"a.c"}) {
		t.Errorf("paths = %v, want [a.c]", loaded.Paths())
	}
	if loaded.Resolves("helper") {
		t.Error("helper should be gone with its file")
	}
}

func TestStaleMarksSurviveRestart(t *testing.T) {
	s, dir := openStore(t)
	ctx := context.Background()
	snap := sampleSnapshot(t).WithStale("a.c", lang.Errorf("a.c", lang.Pos{Line: 2, Col: 1}, "unreachable code"))
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s2, err := store.OpenBadger(dir, config.NewLogGroup(config.NewDefault()))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	loaded, err := s2.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.StalePaths(), []string{"a.c"}) {
		t.Errorf("stale paths = %v", loaded.StalePaths())
	}
	if loaded.Stale["a.c"].Pos.Line != 2 {
		t.Errorf("stale mark = %+v", loaded.Stale["a.c"])
	}
}

func TestClear(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot after clear, got %v", err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	s, dir := openStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Rewrite the header with a version from the future.
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatalf("raw open failed: %v", err)
	}
	future, _ := json.Marshal(map[string]any{"version": 99, "generation": 7})
	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta"), future)
	}); err != nil {
		t.Fatalf("raw update failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("raw close failed: %v", err)
	}

	s2, err := store.OpenBadger(dir, config.NewLogGroup(config.NewDefault()))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Load(ctx); !errors.Is(err, store.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestNop(t *testing.T) {
	var s store.Store = store.Nop{}
	ctx := context.Background()
	if err := s.Save(ctx, state.Empty()); err != nil {
		t.Errorf("nop save = %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("nop load = %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Errorf("nop clear = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nop close = %v", err)
	}
}
