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

package tools

import (
	"testing"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/store"
)

func TestNewCommonFlags(t *testing.T) {
	flags, err := NewCommonFlags("analyze", []string{"-config", "cfg.yaml", "-v", "./src"}, "usage")
	if err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	if flags.ConfigPath != "cfg.yaml" {
		t.Errorf("expected config path cfg.yaml, got %q", flags.ConfigPath)
	}
	if !flags.Verbose {
		t.Errorf("expected verbose to be set")
	}
	if got := flags.FlagSet.Args(); len(got) != 1 || got[0] != "./src" {
		t.Errorf("expected one trailing argument ./src, got %v", got)
	}
}

func TestNewCommonFlagsDefaults(t *testing.T) {
	flags, err := NewCommonFlags("watch", nil, "usage")
	if err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	if flags.ConfigPath != "" || flags.Verbose {
		t.Errorf("expected zero defaults, got %q %t", flags.ConfigPath, flags.Verbose)
	}
	if got := flags.FlagSet.Args(); len(got) != 0 {
		t.Errorf("expected no trailing arguments, got %v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	if cfg.LogLevel != int(config.InfoLevel) {
		t.Errorf("expected default log level %d, got %d", int(config.InfoLevel), cfg.LogLevel)
	}
	if len(cfg.TaintTrackingProblems) == 0 {
		t.Errorf("expected built-in taint tables")
	}
}

func TestOpenStoreWithoutStateDir(t *testing.T) {
	cfg := config.NewDefault()
	db, err := OpenStore(cfg, config.NewLogGroup(cfg))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()
	if _, ok := db.(store.Nop); !ok {
		t.Errorf("expected the no-op store when no state directory is configured")
	}
}

func TestOpenStoreSkipPersistence(t *testing.T) {
	cfg := config.NewDefault()
	cfg.StateDir = t.TempDir()
	cfg.SkipPersistence = true
	db, err := OpenStore(cfg, config.NewLogGroup(cfg))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()
	if _, ok := db.(store.Nop); !ok {
		t.Errorf("expected the no-op store when persistence is skipped")
	}
}
