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
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/reflowlabs/reflow/analysis/config"
	"github.com/reflowlabs/reflow/analysis/state"
)

// Key layout of the badger store.
const (
	metaKey    = "meta"
	filePrefix = "file/"
)

// Badger is a Store backed by an embedded badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens the store in dir, creating it if needed. Badger's own
// logging goes through lg.
func OpenBadger(dir string, lg *config.LogGroup) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{lg})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening state store in %s: %w", dir, err)
	}
	return &Badger{db: db}, nil
}

// Save implements Store. Everything lands in one transaction: the
// header, a record per file, and deletions for files the snapshot no
// longer tracks, so a reader of the store never observes a half-written
// snapshot.
func (s *Badger) Save(ctx context.Context, snap *state.Snapshot) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		meta, err := encodeMeta(snap)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(metaKey), meta); err != nil {
			return err
		}
		var gone [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(filePrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := snap.Files[string(key[len(filePrefix):])]; !ok {
				gone = append(gone, key)
			}
		}
		it.Close()
		for _, key := range gone {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for path, fs := range snap.Files {
			data, err := encodeFile(fs)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(filePrefix+path), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &SaveError{Generation: snap.Generation, Err: err}
	}
	return nil
}

// Load implements Store.
func (s *Badger) Load(ctx context.Context) (*state.Snapshot, error) {
	var snap *state.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := txn.Get([]byte(metaKey))
		if err == badger.ErrKeyNotFound {
			return ErrNoSnapshot
		}
		if err != nil {
			return err
		}
		var meta metaWire
		if err := item.Value(func(val []byte) error {
			m, merr := decodeMeta(val)
			meta = m
			return merr
		}); err != nil {
			return err
		}
		var files []*state.FileState
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(filePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				fs, ferr := decodeFile(val)
				if ferr != nil {
					return ferr
				}
				files = append(files, fs)
				return nil
			})
			if err != nil {
				return err
			}
		}
		snap = assemble(meta, files)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Clear implements Store by dropping every key.
func (s *Badger) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.DropAll()
}

// Close implements Store.
func (s *Badger) Close() error { return s.db.Close() }

// badgerLogger adapts a LogGroup to badger's Logger interface. Badger's
// info chatter maps down a level so normal runs stay quiet.
type badgerLogger struct {
	lg *config.LogGroup
}

func (b badgerLogger) Errorf(format string, v ...interface{})   { b.lg.Errorf(format, v...) }
func (b badgerLogger) Warningf(format string, v ...interface{}) { b.lg.Warnf(format, v...) }
func (b badgerLogger) Infof(format string, v ...interface{})    { b.lg.Debugf(format, v...) }
func (b badgerLogger) Debugf(format string, v ...interface{})   { b.lg.Tracef(format, v...) }
