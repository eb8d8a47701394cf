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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reflowlabs/reflow/analysis/config"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	if cfg.LogLevel != int(config.DebugLevel) {
		t.Errorf("expected log-level 4, got %d", cfg.LogLevel)
	}
	if cfg.MaxIterations != 250 {
		t.Errorf("expected max-iterations 250, got %d", cfg.MaxIterations)
	}
	if cfg.Parallelism != 2 {
		t.Errorf("expected parallelism 2, got %d", cfg.Parallelism)
	}
	if cfg.StateDir != ".reflow-state" {
		t.Errorf("unexpected state-dir %q", cfg.StateDir)
	}
	if cfg.FailOn != "high" {
		t.Errorf("unexpected fail-on %q", cfg.FailOn)
	}
	if len(cfg.TaintTrackingProblems) != 1 {
		t.Fatalf("expected 1 taint problem, got %d", len(cfg.TaintTrackingProblems))
	}
	spec := cfg.TaintTrackingProblems[0]
	if len(spec.Sources) != 2 || len(spec.Sinks) != 2 || len(spec.Sanitizers) != 1 || len(spec.Validators) != 1 {
		t.Errorf("unexpected spec shape: %+v", spec)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join("testdata", "does-not-exist.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestDefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(fname, []byte("parallelism: 3\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(fname)
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}
	if cfg.LogLevel != int(config.InfoLevel) {
		t.Errorf("log level should default to info, got %d", cfg.LogLevel)
	}
	if len(cfg.TaintTrackingProblems) == 0 {
		t.Fatalf("built-in taint tables should apply when the file defines none")
	}
	rules := cfg.TaintRules()
	if _, ok := rules.SourceLabel("getenv"); !ok {
		t.Errorf("getenv should be a default source")
	}
	if sink, ok := rules.Sink("execve"); !ok || sink.Kind != config.SinkExec {
		t.Errorf("execve should be a default exec sink, got %+v ok=%v", sink, ok)
	}
}

func TestCallIdentifierMatching(t *testing.T) {
	cid := config.CompileRegexes(config.CallIdentifier{Function: "exec[a-z]*"})
	if !cid.MatchesName("execve") || !cid.MatchesName("exec") {
		t.Errorf("pattern should match execve and exec")
	}
	if cid.MatchesName("my_execve") || cid.MatchesName("executor2") {
		t.Errorf("pattern must be anchored")
	}

	// An invalid regex degrades to exact matching.
	exact := config.CompileRegexes(config.CallIdentifier{Function: "a(b"})
	if !exact.MatchesName("a(b") || exact.MatchesName("ab") {
		t.Errorf("invalid pattern should fall back to exact match")
	}
}

func TestTaintRules(t *testing.T) {
	cfg := loadTestConfig(t)
	rules := cfg.TaintRules()

	if label, ok := rules.SourceLabel("scanf"); !ok || label != "user-input" {
		t.Errorf("scanf should be a user-input source, got %q ok=%v", label, ok)
	}
	if label, ok := rules.SourceLabel("read_message"); !ok || label != "network" {
		t.Errorf("read_message should be a network source, got %q ok=%v", label, ok)
	}
	if _, ok := rules.SourceLabel("printf"); ok {
		t.Errorf("printf should not be a source")
	}
	if sink, ok := rules.Sink("system"); !ok || sink.Severity != "critical" {
		t.Errorf("system should be a critical sink")
	}
	if !rules.IsSanitizer("clean_html") {
		t.Errorf("clean_html should sanitize")
	}
	if !rules.IsSanitizer("check_input") {
		t.Errorf("validators should sanitize for propagation")
	}

	// Directive-added entries are exact.
	rules.AddSource("my_reader", "file")
	if label, ok := rules.SourceLabel("my_reader"); !ok || label != "file" {
		t.Errorf("my_reader should be a file source")
	}
	if _, ok := rules.SourceLabel("my_reader2"); ok {
		t.Errorf("directive sources must match exactly")
	}
}

func TestRelPath(t *testing.T) {
	cfg := loadTestConfig(t)
	got := cfg.RelPath(".reflow-state")
	want := filepath.Join("testdata", ".reflow-state")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	abs := string(filepath.Separator) + "tmp"
	if cfg.RelPath(abs) != abs {
		t.Errorf("absolute paths must pass through")
	}
}
